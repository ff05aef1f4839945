package rules

import (
	"fmt"

	"github.com/azcops/azcops/pkg/models/domain"
)

const requiredCostTag = "cost-center"

// MissingCostCenterTagRule enforces the presence of a cost-center tag on
// every resource. Savings are zero; the finding exists for cost allocation
// hygiene.
type MissingCostCenterTagRule struct{}

func (MissingCostCenterTagRule) RuleID() string                { return "GOV-001" }
func (MissingCostCenterTagRule) Category() domain.RuleCategory { return domain.CategoryGovernance }

func (r MissingCostCenterTagRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if _, ok := resource.Tags[requiredCostTag]; ok {
		return nil, nil
	}

	existing := make([]string, 0, len(resource.Tags))
	for k := range resource.Tags {
		existing = append(existing, k)
	}

	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: 0.0,
		ConfidenceScore:         1.0,
		RiskLevel:               domain.RiskLow,
		EffortLevel:             domain.EffortLow,
		ShortDescription:        fmt.Sprintf("Resource missing required '%s' tag", requiredCostTag),
		Detail: fmt.Sprintf("Add '%s' tag to %s %s for cost allocation.",
			requiredCostTag, resource.Type, resourceName(resource)),
		Metadata: map[string]any{"missing_tag": requiredCostTag, "existing_tags": existing},
	})
}

const budgetWarnRatio = 0.8

// BudgetThresholdRule fires when month-to-date spend has reached 80% of the
// subscription's configured monthly budget. Anchored on VMs, like the other
// subscription-level assessments.
type BudgetThresholdRule struct{}

func (BudgetThresholdRule) RuleID() string                { return "GOV-002" }
func (BudgetThresholdRule) Category() domain.RuleCategory { return domain.CategoryGovernance }

func (r BudgetThresholdRule) Evaluate(resource domain.Resource, evalCtx EvalContext) (*domain.Finding, error) {
	if resource.Type != "microsoft.compute/virtualmachines" {
		return nil, nil
	}

	budget := evalCtx.Budget
	if budget.MonthlyBudget <= 0 {
		return nil, nil
	}
	if budget.MonthToDateSpend < budget.MonthlyBudget*budgetWarnRatio {
		return nil, nil
	}

	overspend := budget.ProjectedSpend - budget.MonthlyBudget
	if overspend < 0 {
		overspend = 0
	}
	overspend = round2(overspend)

	return makeFinding(r, resource, evalCtx, domain.Finding{
		EstimatedMonthlySavings: overspend,
		ConfidenceScore:         0.85,
		RiskLevel:               domain.RiskHigh,
		EffortLevel:             domain.EffortHigh,
		ShortDescription:        "Subscription spend has reached 80% of its monthly budget",
		Detail: fmt.Sprintf("Month-to-date spend is $%.2f against a budget of $%.2f; projected month total is $%.2f. Review workloads to avoid ~$%.2f overspend.",
			budget.MonthToDateSpend, budget.MonthlyBudget, budget.ProjectedSpend, overspend),
		Metadata: map[string]any{
			"month_to_date_spend": budget.MonthToDateSpend,
			"projected_spend":     budget.ProjectedSpend,
			"monthly_budget":      budget.MonthlyBudget,
		},
	})
}
