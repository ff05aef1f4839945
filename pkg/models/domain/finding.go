package domain

import "fmt"

type RuleCategory string

const (
	CategoryWaste            RuleCategory = "waste"
	CategoryRightsizing      RuleCategory = "rightsizing"
	CategoryRateOptimization RuleCategory = "rate_optimization"
	CategoryGovernance       RuleCategory = "governance"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type EffortLevel string

const (
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

// Finding is a single rule hit against a single resource. Immutable once
// built; construct via NewFinding so out-of-range confidence or unknown
// risk/effort values fail immediately instead of leaking downstream.
type Finding struct {
	RuleID                  string
	Category                RuleCategory
	ResourceID              string
	ResourceType            string
	ResourceName            string
	ResourceGroup           string
	SubscriptionID          string
	TenantID                string
	EstimatedMonthlySavings float64
	ConfidenceScore         float64 // 0.0 - 1.0
	RiskLevel               RiskLevel
	EffortLevel             EffortLevel
	ShortDescription        string
	Detail                  string
	Metadata                map[string]any
}

func NewFinding(f Finding) (Finding, error) {
	if f.ConfidenceScore < 0.0 || f.ConfidenceScore > 1.0 {
		return Finding{}, fmt.Errorf("confidence score must be between 0.0 and 1.0, got %v", f.ConfidenceScore)
	}
	switch f.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return Finding{}, fmt.Errorf("unknown risk level %q", f.RiskLevel)
	}
	switch f.EffortLevel {
	case EffortLow, EffortMedium, EffortHigh:
	default:
		return Finding{}, fmt.Errorf("unknown effort level %q", f.EffortLevel)
	}
	if f.EstimatedMonthlySavings < 0 {
		return Finding{}, fmt.Errorf("estimated savings must be >= 0, got %v", f.EstimatedMonthlySavings)
	}
	return f, nil
}

// ScoredFinding pairs a finding with its computed priority, the ordering key
// used for ranking.
type ScoredFinding struct {
	Finding       Finding
	PriorityScore float64
}
