package adapters

import (
	"github.com/azcops/azcops/pkg/models/api"
	"github.com/azcops/azcops/pkg/models/domain"
)

func MapDomainRecommendationToAPI(rec domain.Recommendation) api.Recommendation {
	return api.Recommendation{
		ID:                      rec.ID,
		TenantID:                rec.TenantID,
		SubscriptionDBID:        rec.SubscriptionDBID,
		ResourceID:              rec.ResourceID,
		ResourceName:            rec.ResourceName,
		ResourceType:            rec.ResourceType,
		RuleID:                  rec.RuleID,
		Category:                string(rec.Category),
		Title:                   rec.Title,
		Description:             rec.Description,
		EstimatedMonthlySavings: rec.EstimatedMonthlySavings,
		ConfidenceScore:         rec.ConfidenceScore,
		RiskLevel:               string(rec.RiskLevel),
		EffortLevel:             string(rec.EffortLevel),
		PriorityScore:           rec.PriorityScore,
		Status:                  string(rec.Status),
		CreatedAt:               rec.CreatedAt,
		UpdatedAt:               rec.UpdatedAt,
	}
}
