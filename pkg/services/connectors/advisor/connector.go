package advisor

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/azcops/azcops/pkg/azure"
	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/rs/zerolog"
)

const apiVersion = "2023-01-01"

type Paginator interface {
	Paginate(ctx context.Context, method, url string, rc domain.RequestContext, body any, query url.Values, opts azure.PageOptions) ([]any, error)
}

// Connector fetches provider-generated cost recommendations, filtered to the
// Cost category, following nextLink pagination.
type Connector struct {
	http Paginator
}

func NewConnector(client Paginator) *Connector {
	return &Connector{http: client}
}

func (c *Connector) Collect(ctx context.Context, rc domain.RequestContext) ([]domain.AdvisorRecommendation, error) {
	rc = rc.WithOperation("advisor.cost_recommendations")
	endpoint := fmt.Sprintf(
		"https://management.azure.com/subscriptions/%s/providers/Microsoft.Advisor/recommendations",
		rc.SubscriptionID,
	)
	query := url.Values{
		"api-version": {apiVersion},
		"$filter":     {"Category eq 'Cost'"},
	}

	items, err := c.http.Paginate(ctx, http.MethodGet, endpoint, rc, nil, query, azure.PageOptions{})
	if err != nil {
		return nil, err
	}

	records := make([]domain.AdvisorRecommendation, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, normalize(m, rc))
	}

	zerolog.Ctx(ctx).Info().
		Int("count", len(records)).
		Str("subscription_id", rc.SubscriptionID).
		Str("tenant_id", rc.TenantID).
		Msg("advisor collected")
	return records, nil
}

func normalize(item map[string]any, rc domain.RequestContext) domain.AdvisorRecommendation {
	props, _ := item["properties"].(map[string]any)
	short, _ := props["shortDescription"].(map[string]any)
	meta, _ := props["resourceMetadata"].(map[string]any)
	extended, _ := props["extendedProperties"].(map[string]any)

	impact := stringOf(props["impact"])
	if impact == "" {
		impact = "Low"
	}
	category := stringOf(props["category"])
	if category == "" {
		category = "Cost"
	}

	return domain.AdvisorRecommendation{
		AdvisorID:               stringOf(item["id"]),
		Name:                    stringOf(item["name"]),
		Category:                category,
		Impact:                  impact,
		ImpactedField:           stringOf(props["impactedField"]),
		ImpactedValue:           stringOf(props["impactedValue"]),
		ShortDescription:        stringOf(short["solution"]),
		Problem:                 stringOf(short["problem"]),
		RecommendationTypeID:    stringOf(props["recommendationTypeId"]),
		EstimatedMonthlySavings: extractSavings(props),
		ResourceID:              stringOf(meta["resourceId"]),
		SubscriptionID:          rc.SubscriptionID,
		TenantID:                rc.TenantID,
		ExtendedProperties:      extended,
	}
}

// extractSavings pulls the estimated monthly amount from whichever field the
// recommendation type populated: a direct amount first, annual divided by 12,
// then an impact-tier fallback.
func extractSavings(props map[string]any) float64 {
	extended, _ := props["extendedProperties"].(map[string]any)
	for _, key := range []string{"savingsAmount", "annualSavingsAmount", "monthlySavingsAmount"} {
		val, ok := extended[key]
		if !ok || val == nil {
			continue
		}
		amount, err := floatOf(val)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(key), "annual") {
			amount /= 12
		}
		return math.Round(amount*100) / 100
	}

	switch stringOf(props["impact"]) {
	case "High":
		return 500.0
	case "Medium":
		return 100.0
	case "Low":
		return 20.0
	default:
		return 20.0
	}
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func floatOf(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		return strconv.ParseFloat(val, 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
