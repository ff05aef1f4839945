package recommendation

import (
	"context"
	"fmt"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/services/engine"
	"github.com/azcops/azcops/pkg/services/engine/rules"
	recstore "github.com/azcops/azcops/pkg/store/duckdb/recommendation"
	"github.com/rs/zerolog"
)

// ResourceReader is the inventory slice the service needs.
type ResourceReader interface {
	ListResources(ctx context.Context, subscriptionDBID string) ([]domain.Resource, error)
}

// GenerateParams carries the per-subscription context the rules evaluate
// against. All fields beyond the ids are optional.
type GenerateParams struct {
	TenantID         string
	SubscriptionDBID string
	SubscriptionID   string

	VMMetrics         map[string]domain.VMUtilization
	ComputeCost30d    float64
	DailyComputeSpend []rules.DailySpend
	WasteCandidates   map[string][]string
	Budget            rules.BudgetContext
}

// GenerateResult tallies what one engine run did to the recommendation table.
type GenerateResult struct {
	ResourcesEvaluated           int
	RulesFired                   int
	Inserted                     int
	Updated                      int
	Skipped                      int
	TotalEstimatedMonthlySavings float64
}

// Service runs the rule engine over a subscription's inventory and persists
// the scored findings.
type Service interface {
	GenerateForSubscription(ctx context.Context, params GenerateParams) (GenerateResult, error)
	TransitionStatus(ctx context.Context, id string, to domain.RecommendationStatus) (domain.Recommendation, error)
	List(ctx context.Context, filter recstore.ListFilter) ([]domain.Recommendation, error)
	Get(ctx context.Context, id string) (domain.Recommendation, error)
}

type service struct {
	resources ResourceReader
	recs      recstore.Store
	engine    *engine.Engine
}

func NewService(resources ResourceReader, recs recstore.Store, eng *engine.Engine) Service {
	if eng == nil {
		eng = engine.NewDefault()
	}
	return &service{resources: resources, recs: recs, engine: eng}
}

func (s *service) GenerateForSubscription(ctx context.Context, params GenerateParams) (GenerateResult, error) {
	logger := zerolog.Ctx(ctx)

	resources, err := s.resources.ListResources(ctx, params.SubscriptionDBID)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("failed to load resources for %s: %w", params.SubscriptionID, err)
	}
	if len(resources) == 0 {
		return GenerateResult{}, nil
	}

	engineResult := s.engine.Run(ctx, resources, rules.EvalContext{
		TenantID:          params.TenantID,
		SubscriptionID:    params.SubscriptionID,
		VMMetrics:         params.VMMetrics,
		ComputeCost30d:    params.ComputeCost30d,
		DailyComputeSpend: params.DailyComputeSpend,
		WasteCandidates:   params.WasteCandidates,
		Budget:            params.Budget,
	})

	result := GenerateResult{
		ResourcesEvaluated:           engineResult.ResourcesEvaluated,
		RulesFired:                   engineResult.RulesFired,
		TotalEstimatedMonthlySavings: engineResult.TotalEstimatedMonthlySavings,
	}

	openKeys, err := s.recs.OpenKeys(ctx, params.SubscriptionDBID)
	if err != nil {
		return result, fmt.Errorf("failed to load open recommendations for %s: %w", params.SubscriptionID, err)
	}

	// findings within one run are unique per (rule, resource); guard anyway
	// so a misbehaving rule cannot double-write
	seen := make(map[string]struct{}, len(engineResult.ScoredFindings))
	for _, scored := range engineResult.ScoredFindings {
		key := recstore.DedupKey(scored.Finding.RuleID, scored.Finding.ResourceID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		// pairs already open skip the write path entirely
		if _, open := openKeys[key]; open {
			result.Skipped++
			continue
		}

		outcome, err := s.recs.UpsertFromEngine(ctx, params.SubscriptionDBID, scored)
		if err != nil {
			return result, fmt.Errorf("failed to persist finding %s: %w", key, err)
		}
		switch outcome {
		case domain.UpsertInserted:
			result.Inserted++
		case domain.UpsertUpdated:
			result.Updated++
		case domain.UpsertSkipped:
			result.Skipped++
		}
	}

	logger.Info().
		Str("subscription_id", params.SubscriptionID).
		Int("rules_fired", result.RulesFired).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Msg("recommendations generated")
	return result, nil
}

func (s *service) TransitionStatus(ctx context.Context, id string, to domain.RecommendationStatus) (domain.Recommendation, error) {
	return s.recs.TransitionStatus(ctx, id, to)
}

func (s *service) List(ctx context.Context, filter recstore.ListFilter) ([]domain.Recommendation, error) {
	return s.recs.List(ctx, filter)
}

func (s *service) Get(ctx context.Context, id string) (domain.Recommendation, error) {
	return s.recs.Get(ctx, id)
}
