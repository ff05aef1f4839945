package engine

import (
	"context"
	"fmt"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/services/engine/rules"
	"github.com/rs/zerolog"
)

// Result summarizes one engine run over a subscription's inventory.
type Result struct {
	ResourcesEvaluated           int
	RulesFired                   int
	ScoredFindings               []domain.ScoredFinding
	TotalEstimatedMonthlySavings float64
}

// Engine evaluates every registered rule against every resource. A failing
// or panicking rule is logged and skipped; one bad heuristic never takes
// down a run.
type Engine struct {
	rules []rules.Rule
}

func New(ruleSet []rules.Rule) *Engine {
	return &Engine{rules: ruleSet}
}

func NewDefault() *Engine {
	return New(DefaultRules())
}

func (e *Engine) Run(ctx context.Context, resources []domain.Resource, evalCtx rules.EvalContext) Result {
	logger := zerolog.Ctx(ctx)

	var findings []domain.Finding
	for _, resource := range resources {
		for _, rule := range e.rules {
			finding, err := evaluateRule(rule, resource, evalCtx)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("rule_id", rule.RuleID()).
					Str("resource_id", resource.ResourceID).
					Msg("rule evaluation failed")
				continue
			}
			if finding != nil {
				findings = append(findings, *finding)
			}
		}
	}

	scored := ScoreAndRank(findings)

	var total float64
	for _, s := range scored {
		total += s.Finding.EstimatedMonthlySavings
	}

	logger.Info().
		Int("resources_evaluated", len(resources)).
		Int("rules_fired", len(findings)).
		Float64("total_estimated_monthly_savings", total).
		Str("subscription_id", evalCtx.SubscriptionID).
		Msg("engine run complete")

	return Result{
		ResourcesEvaluated:           len(resources),
		RulesFired:                   len(findings),
		ScoredFindings:               scored,
		TotalEstimatedMonthlySavings: total,
	}
}

func evaluateRule(rule rules.Rule, resource domain.Resource, evalCtx rules.EvalContext) (finding *domain.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			finding = nil
			err = fmt.Errorf("rule %s panicked: %v", rule.RuleID(), r)
		}
	}()
	return rule.Evaluate(resource, evalCtx)
}
