package rules

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/store/pricing"
)

// prices is the shared static price book behind every savings estimate.
var prices = pricing.NewStatic()

// DailySpend is one day of compute spend, fed to rate optimization rules.
type DailySpend struct {
	Date time.Time
	Cost float64
}

// BudgetContext carries the subscription's spend position against its
// configured monthly budget.
type BudgetContext struct {
	MonthToDateSpend float64
	ProjectedSpend   float64
	MonthlyBudget    float64
}

// EvalContext is the subscription-scoped state shared by all rules during one
// engine run. Rules only read from it.
type EvalContext struct {
	TenantID       string
	SubscriptionID string

	// VMMetrics is keyed by resource id. Absent entries mean the monitor
	// connector had nothing for that VM.
	VMMetrics map[string]domain.VMUtilization

	ComputeCost30d    float64
	DailyComputeSpend []DailySpend

	// WasteCandidates maps candidate kind (e.g. "unattached_disk") to the
	// resource ids the ingestion queries flagged.
	WasteCandidates map[string][]string

	Budget BudgetContext
}

func (c EvalContext) isWasteCandidate(kind, resourceID string) bool {
	for _, id := range c.WasteCandidates[kind] {
		if id == resourceID {
			return true
		}
	}
	return false
}

// Rule is one cost optimization heuristic. Evaluate returns nil when the rule
// does not apply to the resource; an error never aborts the engine run.
type Rule interface {
	RuleID() string
	Category() domain.RuleCategory
	Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error)
}

func makeFinding(r Rule, resource domain.Resource, evalCtx EvalContext, f domain.Finding) (*domain.Finding, error) {
	f.RuleID = r.RuleID()
	f.Category = r.Category()
	f.ResourceID = resource.ResourceID
	f.ResourceType = resource.Type
	f.ResourceName = resourceName(resource)
	f.ResourceGroup = resource.ResourceGroup
	f.SubscriptionID = evalCtx.SubscriptionID
	f.TenantID = evalCtx.TenantID

	validated, err := domain.NewFinding(f)
	if err != nil {
		return nil, fmt.Errorf("rule %s produced invalid finding: %w", r.RuleID(), err)
	}
	return &validated, nil
}

func resourceName(r domain.Resource) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ResourceID
}

func propString(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}

func propMap(props map[string]any, key string) map[string]any {
	v, _ := props[key].(map[string]any)
	return v
}

// propFloat coerces numeric or numeric-string property values; ok is false
// when the key is absent or not a number.
func propFloat(props map[string]any, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
