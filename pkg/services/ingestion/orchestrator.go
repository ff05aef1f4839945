package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/services/connectors/costmanagement"
	"github.com/azcops/azcops/pkg/services/connectors/monitor"
	"github.com/azcops/azcops/pkg/services/connectors/resourcegraph"
	"github.com/azcops/azcops/pkg/services/engine/rules"
	"github.com/azcops/azcops/pkg/services/recommendation"
	"github.com/azcops/azcops/pkg/store/duckdb/inventory"
	"github.com/azcops/azcops/pkg/store/raw"
	"github.com/rs/zerolog"
)

// DefaultMaxConcurrentSubscriptions caps how many subscriptions a tenant run
// processes in parallel, so a large tenant doesn't flood the provider APIs.
const DefaultMaxConcurrentSubscriptions = 10

const vmType = "microsoft.compute/virtualmachines"

// waste candidate query names map to the kinds the rules consume
var candidateKinds = map[string]string{
	"unattached_disks":        "unattached_disk",
	"orphaned_public_ips":     "orphaned_public_ip",
	"orphaned_nics":           "orphaned_nic",
	"stale_snapshots":         "stale_snapshot",
	"missing_cost_center_tag": "missing_cost_center_tag",
}

type ResourceGraphConnector interface {
	Collect(ctx context.Context, rc domain.RequestContext) ([]map[string]any, error)
	CollectWasteCandidates(ctx context.Context, rc domain.RequestContext) (map[string][]map[string]any, error)
}

type CostConnector interface {
	CollectRange(ctx context.Context, rc domain.RequestContext, from, to time.Time) ([]costmanagement.Row, error)
}

type AdvisorConnector interface {
	Collect(ctx context.Context, rc domain.RequestContext) ([]domain.AdvisorRecommendation, error)
}

type MonitorConnector interface {
	Collect(ctx context.Context, rc domain.RequestContext) ([]domain.MetricRecord, error)
}

// Connectors bundles the per-source collectors one orchestrator drives.
type Connectors struct {
	ResourceGraph ResourceGraphConnector
	Costs         CostConnector
	Advisor       AdvisorConnector
	Monitor       MonitorConnector
}

// Options tune one tenant run.
type Options struct {
	// CostOnly skips inventory, advisor, monitor and recommendation
	// generation; used by the incremental scheduler mode.
	CostOnly bool
	// CostLookbackDays is how far back the cost query reaches. Zero means
	// yesterday only.
	CostLookbackDays int
	// MonthlyBudget feeds the budget governance rule. Zero disables it.
	MonthlyBudget float64
	// CorrelationID ties every connector call of this run together; empty
	// means the caller did not supply one.
	CorrelationID string
}

// Orchestrator runs the full ingestion pipeline for a tenant's
// subscriptions: collect, snapshot raw payloads, map, upsert, then hand the
// curated state to the rule engine. Subscription failures are isolated; one
// bad subscription never aborts its siblings.
type Orchestrator struct {
	connectors Connectors
	inventory  inventory.Store
	snapshots  raw.Writer
	recs       recommendation.Service

	maxConcurrent int
	now           func() time.Time
}

func NewOrchestrator(
	connectors Connectors,
	inv inventory.Store,
	snapshots raw.Writer,
	recs recommendation.Service,
	maxConcurrent int,
) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSubscriptions
	}
	return &Orchestrator{
		connectors:    connectors,
		inventory:     inv,
		snapshots:     snapshots,
		recs:          recs,
		maxConcurrent: maxConcurrent,
		now:           time.Now,
	}
}

// RunTenant ingests every given subscription, bounded by the concurrency
// limit, and aggregates the per-subscription results.
func (o *Orchestrator) RunTenant(
	ctx context.Context,
	tenant domain.Tenant,
	subscriptions []domain.Subscription,
	opts Options,
) domain.TenantIngestionResult {
	logger := zerolog.Ctx(ctx)
	start := o.now()

	logger.Info().
		Str("tenant_id", tenant.ID).
		Int("subscription_count", len(subscriptions)).
		Msg("tenant ingestion started")

	sem := make(chan struct{}, o.maxConcurrent)
	results := make([]domain.SubscriptionIngestionResult, len(subscriptions))

	var wg sync.WaitGroup
	for i, sub := range subscriptions {
		wg.Add(1)
		go func(i int, sub domain.Subscription) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error().
						Str("subscription_id", sub.SubscriptionID).
						Any("panic", r).
						Msg("subscription ingestion panicked")
					results[i] = domain.SubscriptionIngestionResult{
						SubscriptionID: sub.SubscriptionID,
						Errors:         []string{fmt.Sprintf("subscription ingestion panicked: %v", r)},
					}
				}
			}()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = o.runSubscription(ctx, tenant, sub, opts)
		}(i, sub)
	}
	wg.Wait()

	result := domain.TenantIngestionResult{
		TenantID: tenant.ID,
		Results:  results,
	}
	for _, sub := range results {
		if sub.Success() {
			result.SubscriptionsProcessed++
			result.TotalResources += sub.ResourcesUpserted
			result.TotalCostRecords += sub.CostRecordsUpserted
		} else {
			result.SubscriptionsFailed++
		}
	}
	result.DurationMS = float64(o.now().Sub(start).Milliseconds())

	logger.Info().
		Str("tenant_id", tenant.ID).
		Int("subscriptions_processed", result.SubscriptionsProcessed).
		Int("subscriptions_failed", result.SubscriptionsFailed).
		Int("total_resources", result.TotalResources).
		Int("total_cost_records", result.TotalCostRecords).
		Float64("duration_ms", result.DurationMS).
		Msg("tenant ingestion completed")
	return result
}

func (o *Orchestrator) runSubscription(
	ctx context.Context,
	tenant domain.Tenant,
	sub domain.Subscription,
	opts Options,
) domain.SubscriptionIngestionResult {
	logger := zerolog.Ctx(ctx)
	result := domain.SubscriptionIngestionResult{SubscriptionID: sub.SubscriptionID}

	rc := domain.RequestContext{
		TenantID:       tenant.AzureTenantID,
		SubscriptionID: sub.SubscriptionID,
		CorrelationID:  opts.CorrelationID,
	}

	var (
		rawResources    []map[string]any
		vmMetrics       map[string]domain.VMUtilization
		wasteCandidates map[string][]string
	)

	if !opts.CostOnly {
		var err error
		rawResources, err = o.ingestResources(ctx, rc, tenant, sub, &result)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	if err := o.ingestCosts(ctx, rc, tenant, sub, opts, &result); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	if !opts.CostOnly {
		if err := o.ingestAdvisor(ctx, rc, &result); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}

		metrics, err := o.ingestMonitor(ctx, rc, rawResources, &result)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			vmMetrics = monitor.UtilizationByVM(metrics)
		}

		wasteCandidates = o.collectWasteCandidates(ctx, rc)

		if o.recs != nil && result.ResourcesUpserted > 0 {
			if err := o.generateRecommendations(ctx, tenant, sub, vmMetrics, wasteCandidates, opts); err != nil {
				result.Errors = append(result.Errors, err.Error())
			}
		}
	}

	if !result.Success() {
		logger.Error().
			Str("subscription_id", sub.SubscriptionID).
			Str("tenant_id", tenant.ID).
			Strs("errors", result.Errors).
			Msg("subscription ingestion failed")
	}
	return result
}

func (o *Orchestrator) ingestResources(
	ctx context.Context,
	rc domain.RequestContext,
	tenant domain.Tenant,
	sub domain.Subscription,
	result *domain.SubscriptionIngestionResult,
) ([]map[string]any, error) {
	rawResources, err := o.connectors.ResourceGraph.Collect(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("resource graph: %w", err)
	}

	o.writeSnapshot(ctx, rc, "resource_graph", rawResources)

	mapped := resourcegraph.MapResources(rawResources, tenant.ID, sub.ID)
	upserted, err := o.inventory.UpsertResources(ctx, mapped)
	if err != nil {
		return rawResources, fmt.Errorf("resource upsert: %w", err)
	}
	result.ResourcesUpserted = upserted
	return rawResources, nil
}

func (o *Orchestrator) ingestCosts(
	ctx context.Context,
	rc domain.RequestContext,
	tenant domain.Tenant,
	sub domain.Subscription,
	opts Options,
	result *domain.SubscriptionIngestionResult,
) error {
	to := o.now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -1)
	if opts.CostLookbackDays > 0 {
		from = to.AddDate(0, 0, -opts.CostLookbackDays)
	}

	rows, err := o.connectors.Costs.CollectRange(ctx, rc, from, to)
	if err != nil {
		return fmt.Errorf("cost management: %w", err)
	}

	o.writeSnapshot(ctx, rc, "cost_management", toMaps(rows))

	records := costmanagement.MapCostRecords(rows, tenant.ID, sub.ID)
	upserted, err := o.inventory.UpsertCosts(ctx, records)
	if err != nil {
		return fmt.Errorf("cost upsert: %w", err)
	}
	result.CostRecordsUpserted = upserted
	return nil
}

func (o *Orchestrator) ingestAdvisor(
	ctx context.Context,
	rc domain.RequestContext,
	result *domain.SubscriptionIngestionResult,
) error {
	records, err := o.connectors.Advisor.Collect(ctx, rc)
	if err != nil {
		return fmt.Errorf("advisor: %w", err)
	}

	// advisor records are snapshot-only; the engine produces its own findings
	o.writeSnapshot(ctx, rc, "advisor", toMaps(records))
	result.AdvisorRecords = len(records)
	return nil
}

func (o *Orchestrator) ingestMonitor(
	ctx context.Context,
	rc domain.RequestContext,
	rawResources []map[string]any,
	result *domain.SubscriptionIngestionResult,
) ([]domain.MetricRecord, error) {
	rc = rc.WithVMResourceIDs(vmResourceIDs(rawResources))

	metrics, err := o.connectors.Monitor.Collect(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}

	o.writeSnapshot(ctx, rc, "monitor", toMaps(metrics))
	result.MonitorRecords = len(metrics)
	return metrics, nil
}

func (o *Orchestrator) collectWasteCandidates(ctx context.Context, rc domain.RequestContext) map[string][]string {
	byQuery, err := o.connectors.ResourceGraph.CollectWasteCandidates(ctx, rc)
	if err != nil {
		// candidates only sharpen rules that also read resource properties
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("subscription_id", rc.SubscriptionID).
			Msg("waste candidate scan failed")
		return nil
	}

	candidates := make(map[string][]string)
	for query, rows := range byQuery {
		kind, ok := candidateKinds[query]
		if !ok {
			kind = query
		}
		for _, row := range rows {
			if id, ok := row["resource_id"].(string); ok && id != "" {
				candidates[kind] = append(candidates[kind], id)
			} else if id, ok := row["id"].(string); ok && id != "" {
				candidates[kind] = append(candidates[kind], id)
			}
		}
	}
	return candidates
}

func (o *Orchestrator) generateRecommendations(
	ctx context.Context,
	tenant domain.Tenant,
	sub domain.Subscription,
	vmMetrics map[string]domain.VMUtilization,
	wasteCandidates map[string][]string,
	opts Options,
) error {
	computeSpend, dailySpend, err := o.inventory.ComputeSpend30d(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("compute spend: %w", err)
	}

	budget := rules.BudgetContext{MonthlyBudget: opts.MonthlyBudget}
	if opts.MonthlyBudget > 0 {
		mtd, err := o.inventory.MonthToDateSpend(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("month-to-date spend: %w", err)
		}
		budget.MonthToDateSpend = mtd
		budget.ProjectedSpend = projectMonthSpend(mtd, o.now().UTC())
	}

	daily := make([]rules.DailySpend, 0, len(dailySpend))
	for _, d := range dailySpend {
		daily = append(daily, rules.DailySpend{Date: d.Date, Cost: d.Cost})
	}

	_, err = o.recs.GenerateForSubscription(ctx, recommendation.GenerateParams{
		TenantID:          tenant.ID,
		SubscriptionDBID:  sub.ID,
		SubscriptionID:    sub.SubscriptionID,
		VMMetrics:         vmMetrics,
		ComputeCost30d:    computeSpend,
		DailyComputeSpend: daily,
		WasteCandidates:   wasteCandidates,
		Budget:            budget,
	})
	if err != nil {
		return fmt.Errorf("recommendation generation: %w", err)
	}
	return nil
}

func (o *Orchestrator) writeSnapshot(ctx context.Context, rc domain.RequestContext, connector string, records []map[string]any) {
	if o.snapshots == nil {
		return
	}
	if _, err := o.snapshots.WriteSnapshot(ctx, rc, connector, records); err != nil {
		// raw snapshots are best effort; curated ingestion continues
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("connector", connector).
			Str("subscription_id", rc.SubscriptionID).
			Msg("snapshot write failed")
	}
}

func vmResourceIDs(rawResources []map[string]any) []string {
	var ids []string
	for _, row := range rawResources {
		rtype, _ := row["type"].(string)
		if strings.ToLower(rtype) != vmType {
			continue
		}
		if id, ok := row["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// projectMonthSpend extrapolates month-to-date spend linearly to a full
// month total.
func projectMonthSpend(mtd float64, now time.Time) float64 {
	elapsed := now.Day()
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if elapsed == 0 {
		return mtd
	}
	return mtd / float64(elapsed) * float64(daysInMonth)
}

func toMaps(v any) []map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
