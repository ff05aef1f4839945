package rules

import (
	"fmt"
	"math"

	"github.com/azcops/azcops/pkg/models/domain"
)

const riSavingPct = 0.30

// ReservedInstanceGapRule flags VMs running reservation-eligible sizes on
// on-demand pricing.
type ReservedInstanceGapRule struct{}

func (ReservedInstanceGapRule) RuleID() string { return "RATE-001" }
func (ReservedInstanceGapRule) Category() domain.RuleCategory {
	return domain.CategoryRateOptimization
}

func (r ReservedInstanceGapRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if resource.Type != "microsoft.compute/virtualmachines" {
		return nil, nil
	}

	hardwareProfile := propMap(resource.Properties, "hardwareProfile")
	vmSize := propString(hardwareProfile, "vmSize")

	onDemandCost, ok := prices.VMOnDemandMonthly(vmSize)
	if !ok {
		return nil, nil
	}

	savings := round2(onDemandCost * riSavingPct)
	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: savings,
		ConfidenceScore:         0.80,
		RiskLevel:               domain.RiskLow,
		EffortLevel:             domain.EffortLow,
		ShortDescription:        fmt.Sprintf("VM %s eligible for 1-year Reserved Instance (~30%% savings)", vmSize),
		Detail: fmt.Sprintf("VM %s is running %s at ~$%.2f/month on-demand. Purchasing a 1-year Reserved Instance saves ~$%.2f/month (30%%).",
			resourceName(resource), vmSize, onDemandCost, savings),
		Metadata: map[string]any{
			"vm_size":        vmSize,
			"on_demand_cost": onDemandCost,
			"ri_saving_pct":  riSavingPct,
		},
	})
}

const (
	savingsPlanSpendThreshold = 500.0
	savingsPlanPct            = 0.15
	savingsPlanMinActiveDays  = 20
	savingsPlanMaxCoV         = 0.5
)

// SavingsPlanOpportunityRule flags subscriptions with significant, steady
// compute spend where a savings plan would reduce rates. With a daily spend
// series available the rule additionally requires at least 20 active days and
// a coefficient of variation at or below 0.5, and scales confidence with how
// steady the spend is.
type SavingsPlanOpportunityRule struct{}

func (SavingsPlanOpportunityRule) RuleID() string { return "RATE-002" }
func (SavingsPlanOpportunityRule) Category() domain.RuleCategory {
	return domain.CategoryRateOptimization
}

func (r SavingsPlanOpportunityRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if resource.Type != "microsoft.compute/virtualmachines" {
		return nil, nil
	}

	spend := evalCtx.ComputeCost30d
	if spend < savingsPlanSpendThreshold {
		return nil, nil
	}

	confidence := 0.70
	metadata := map[string]any{
		"compute_cost_30d": spend,
		"savings_plan_pct": savingsPlanPct,
	}

	if len(evalCtx.DailyComputeSpend) > 0 {
		activeDays, cv := spendVariation(evalCtx.DailyComputeSpend)
		metadata["active_days"] = activeDays
		metadata["spend_cov"] = round2(cv)
		if activeDays < savingsPlanMinActiveDays || cv > savingsPlanMaxCoV {
			return nil, nil
		}
		confidence = math.Min(0.90, 0.70+(1-cv)*0.25)
	}

	savings := round2(spend * savingsPlanPct)
	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: savings,
		ConfidenceScore:         confidence,
		RiskLevel:               domain.RiskLow,
		EffortLevel:             domain.EffortLow,
		ShortDescription:        "Subscription has significant compute spend where a Savings Plan may reduce costs",
		Detail: fmt.Sprintf("Subscription compute spend is ~$%.2f/month. An Azure Savings Plan could reduce costs by ~$%.2f/month (15%%). Assessed on VM %s.",
			spend, savings, resourceName(resource)),
		Metadata: metadata,
	})
}

// spendVariation returns the number of days with non-zero spend and the
// coefficient of variation across those days.
func spendVariation(daily []DailySpend) (int, float64) {
	var active []float64
	for _, d := range daily {
		if d.Cost > 0 {
			active = append(active, d.Cost)
		}
	}
	if len(active) == 0 {
		return 0, 0
	}

	var sum float64
	for _, c := range active {
		sum += c
	}
	mean := sum / float64(len(active))
	if mean == 0 {
		return len(active), 0
	}

	var variance float64
	for _, c := range active {
		variance += (c - mean) * (c - mean)
	}
	variance /= float64(len(active))

	return len(active), math.Sqrt(variance) / mean
}
