package costmanagement

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/rs/zerolog"
)

const apiVersion = "2023-11-01"

type Requester interface {
	Request(ctx context.Context, method, url string, rc domain.RequestContext, body any, query url.Values) (map[string]any, error)
}

// Row is one parsed cost line before tenant/subscription attribution. It is
// also the shape written to the raw snapshot layer.
type Row struct {
	Date          time.Time `json:"date"`
	ResourceGroup string    `json:"resource_group"`
	ServiceName   string    `json:"service_name"`
	MeterCategory string    `json:"meter_category"`
	Cost          float64   `json:"cost"`
	AmortizedCost float64   `json:"amortized_cost"`
	Currency      string    `json:"currency"`
}

// Connector fetches daily ActualCost and AmortizedCost for a subscription
// from the Cost Management query endpoint and merges the two result sets.
type Connector struct {
	http Requester
	now  func() time.Time
}

func NewConnector(client Requester) *Connector {
	return &Connector{http: client, now: time.Now}
}

func queryEndpoint(subscriptionID string) string {
	return fmt.Sprintf(
		"https://management.azure.com/subscriptions/%s/providers/Microsoft.CostManagement/query",
		subscriptionID,
	)
}

func queryPayload(costType string, from, to time.Time) map[string]any {
	return map[string]any{
		"type":      costType, // ActualCost | AmortizedCost
		"timeframe": "Custom",
		"timePeriod": map[string]any{
			"from": from.Format("2006-01-02"),
			"to":   to.Format("2006-01-02"),
		},
		"dataset": map[string]any{
			"granularity": "Daily",
			"aggregation": map[string]any{
				"totalCost": map[string]any{"name": "Cost", "function": "Sum"},
			},
			"grouping": []map[string]any{
				{"type": "Dimension", "name": "ResourceGroupName"},
				{"type": "Dimension", "name": "ServiceName"},
				{"type": "Dimension", "name": "MeterCategory"},
			},
		},
	}
}

// Collect fetches yesterday's costs.
func (c *Connector) Collect(ctx context.Context, rc domain.RequestContext) ([]Row, error) {
	rc = rc.WithOperation("cost_management.daily")
	yesterday := c.now().UTC().AddDate(0, 0, -1)
	return c.CollectRange(ctx, rc, yesterday, yesterday)
}

// CollectRange fetches costs for a custom date range. The actual and
// amortized queries run concurrently; rows are joined on
// (resource group, service, date) with the amortized figure defaulting to
// the actual cost when unmatched.
func (c *Connector) CollectRange(ctx context.Context, rc domain.RequestContext, from, to time.Time) ([]Row, error) {
	rc = rc.WithOperation("cost_management.range")
	endpoint := queryEndpoint(rc.SubscriptionID)
	query := url.Values{"api-version": {apiVersion}}

	var (
		wg            sync.WaitGroup
		actualData    map[string]any
		amortizedData map[string]any
		actualErr     error
		amortizedErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		actualData, actualErr = c.http.Request(ctx, http.MethodPost, endpoint, rc, queryPayload("ActualCost", from, to), query)
	}()
	go func() {
		defer wg.Done()
		amortizedData, amortizedErr = c.http.Request(ctx, http.MethodPost, endpoint, rc, queryPayload("AmortizedCost", from, to), query)
	}()
	wg.Wait()

	if actualErr != nil {
		return nil, actualErr
	}
	if amortizedErr != nil {
		return nil, amortizedErr
	}

	actualRows, err := parseCostResponse(actualData)
	if err != nil {
		return nil, err
	}
	amortizedRows, err := parseCostResponse(amortizedData)
	if err != nil {
		return nil, err
	}

	type mergeKey struct {
		rg      string
		service string
		date    time.Time
	}
	amortizedByKey := make(map[mergeKey]float64, len(amortizedRows))
	for _, row := range amortizedRows {
		amortizedByKey[mergeKey{row.ResourceGroup, row.ServiceName, row.Date}] = row.Cost
	}

	records := make([]Row, 0, len(actualRows))
	for _, row := range actualRows {
		if amortized, ok := amortizedByKey[mergeKey{row.ResourceGroup, row.ServiceName, row.Date}]; ok {
			row.AmortizedCost = amortized
		} else {
			row.AmortizedCost = row.Cost
		}
		records = append(records, row)
	}

	zerolog.Ctx(ctx).Info().
		Int("count", len(records)).
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Str("subscription_id", rc.SubscriptionID).
		Str("tenant_id", rc.TenantID).
		Msg("cost management collected")
	return records, nil
}

// parseCostResponse flattens the column/row response format.
func parseCostResponse(data map[string]any) ([]Row, error) {
	properties, _ := data["properties"].(map[string]any)
	columns, _ := properties["columns"].([]any)
	rawRows, _ := properties["rows"].([]any)

	names := make([]string, 0, len(columns))
	for _, col := range columns {
		m, _ := col.(map[string]any)
		name, _ := m["name"].(string)
		names = append(names, name)
	}

	rows := make([]Row, 0, len(rawRows))
	for _, raw := range rawRows {
		cells, _ := raw.([]any)
		byName := make(map[string]any, len(names))
		for i, name := range names {
			if i < len(cells) {
				byName[name] = cells[i]
			}
		}

		dateVal := byName["UsageDate"]
		if dateVal == nil {
			dateVal = byName["BillingMonth"]
		}
		date, err := parseUsageDate(dateVal)
		if err != nil {
			return nil, err
		}

		rows = append(rows, Row{
			Date:          date,
			ResourceGroup: strings.ToLower(stringOf(byName["ResourceGroupName"])),
			ServiceName:   stringOf(byName["ServiceName"]),
			MeterCategory: stringOf(byName["MeterCategory"]),
			Cost:          floatOf(byName["Cost"]),
			Currency:      currencyOf(byName["Currency"]),
		})
	}
	return rows, nil
}

// parseUsageDate handles both encodings the API uses for dates: an 8-digit
// YYYYMMDD integer and an ISO string.
func parseUsageDate(v any) (time.Time, error) {
	switch val := v.(type) {
	case nil:
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	case float64:
		s := fmt.Sprintf("%.0f", val)
		if len(s) == 8 {
			return time.Parse("20060102", s)
		}
		return time.Time{}, fmt.Errorf("unrecognized usage date %v", v)
	case string:
		s := val
		if len(s) > 10 {
			s = s[:10]
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t, nil
		}
		if len(s) == 8 {
			if t, err := time.Parse("20060102", s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized usage date %q", val)
	default:
		return time.Time{}, fmt.Errorf("unrecognized usage date type %T", v)
	}
}

func stringOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func floatOf(v any) float64 {
	f, _ := v.(float64)
	return f
}

func currencyOf(v any) string {
	s := stringOf(v)
	if s == "" {
		return "USD"
	}
	return s
}
