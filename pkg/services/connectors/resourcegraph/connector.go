package resourcegraph

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/rs/zerolog"
)

const (
	apiVersion = "2022-10-01"
	endpoint   = "https://management.azure.com/providers/Microsoft.ResourceGraph/resources"
	pageSize   = 1000
)

// Requester is the slice of the provider client this connector needs.
type Requester interface {
	Request(ctx context.Context, method, url string, rc domain.RequestContext, body any, query url.Values) (map[string]any, error)
}

// Connector runs KQL queries against the Resource Graph query endpoint and
// flattens the column/row response into row maps. Pagination follows the
// $skipToken embedded in the response body, not the generic nextLink.
type Connector struct {
	http Requester
}

func NewConnector(client Requester) *Connector {
	return &Connector{http: client}
}

// Collect returns the full inventory for the context's subscription as raw
// row maps, ready for snapshotting before normalization.
func (c *Connector) Collect(ctx context.Context, rc domain.RequestContext) ([]map[string]any, error) {
	rc = rc.WithOperation("resource_graph.all_resources")
	rows, err := c.RunQuery(ctx, AllResources, rc)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().
		Int("count", len(rows)).
		Str("subscription_id", rc.SubscriptionID).
		Str("tenant_id", rc.TenantID).
		Msg("resource graph collected")
	return rows, nil
}

// CollectWasteCandidates runs the five targeted waste queries concurrently
// and returns results keyed by category. Usable independently of the rule
// engine.
func (c *Connector) CollectWasteCandidates(ctx context.Context, rc domain.RequestContext) (map[string][]map[string]any, error) {
	rc = rc.WithOperation("resource_graph.waste_scan")
	return c.runNamedQueries(ctx, rc, map[string]string{
		"unattached_disks":        UnattachedDisks,
		"orphaned_public_ips":     OrphanedPublicIPs,
		"orphaned_nics":           OrphanedNICs,
		"stale_snapshots":         StaleSnapshots,
		"missing_cost_center_tag": MissingCostCenterTag,
	})
}

// CollectRightsizingCandidates runs the right-sizing discovery queries.
func (c *Connector) CollectRightsizingCandidates(ctx context.Context, rc domain.RequestContext) (map[string][]map[string]any, error) {
	rc = rc.WithOperation("resource_graph.rightsizing_scan")
	return c.runNamedQueries(ctx, rc, map[string]string{
		"virtual_machines":  AllVMs,
		"app_service_plans": AppServicePlans,
		"sql_databases":     SQLDatabases,
	})
}

func (c *Connector) runNamedQueries(
	ctx context.Context,
	rc domain.RequestContext,
	queries map[string]string,
) (map[string][]map[string]any, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  = make(map[string][]map[string]any, len(queries))
		firstErr error
	)

	for name, kql := range queries {
		wg.Add(1)
		go func(name, kql string) {
			defer wg.Done()
			rows, err := c.RunQuery(ctx, kql, rc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[name] = rows
		}(name, kql)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// RunQuery executes one KQL query with $skipToken pagination and zips the
// column/row response into row maps.
func (c *Connector) RunQuery(ctx context.Context, kql string, rc domain.RequestContext) ([]map[string]any, error) {
	logger := zerolog.Ctx(ctx)

	var results []map[string]any
	skipToken := ""

	for {
		options := map[string]any{"$top": pageSize}
		if skipToken != "" {
			options["$skipToken"] = skipToken
		}
		payload := map[string]any{
			"query":         strings.TrimSpace(kql),
			"subscriptions": []string{rc.SubscriptionID},
			"options":       options,
		}

		data, err := c.http.Request(ctx, http.MethodPost, endpoint, rc, payload, url.Values{"api-version": {apiVersion}})
		if err != nil {
			return nil, err
		}

		rows := zipRows(data)
		results = append(results, rows...)

		skipToken, _ = data["$skipToken"].(string)
		if skipToken == "" {
			break
		}

		logger.Debug().
			Int("page_results", len(rows)).
			Int("total_so_far", len(results)).
			Str("operation", rc.Operation).
			Str("tenant_id", rc.TenantID).
			Msg("resource graph paginating")
	}

	return results, nil
}

// zipRows converts the columns/rows payload into one map per row.
func zipRows(data map[string]any) []map[string]any {
	inner, _ := data["data"].(map[string]any)
	columns, _ := inner["columns"].([]any)
	rows, _ := inner["rows"].([]any)

	names := make([]string, 0, len(columns))
	for _, col := range columns {
		m, _ := col.(map[string]any)
		name, _ := m["name"].(string)
		names = append(names, name)
	}

	out := make([]map[string]any, 0, len(rows))
	for _, raw := range rows {
		cells, _ := raw.([]any)
		row := make(map[string]any, len(names))
		for i, name := range names {
			if i < len(cells) {
				row[name] = cells[i]
			}
		}
		out = append(out, row)
	}
	return out
}
