package advisor

import (
	"fmt"

	"github.com/azcops/azcops/pkg/models/domain"
)

var impactToConfidence = map[string]float64{
	"High":   0.9,
	"Medium": 0.7,
	"Low":    0.5,
}

// MapRecommendation projects an Advisor record into the recommendation shape
// used by the lifecycle store. Advisor findings always land as low risk and
// low effort; the provider has already vetted them.
func MapRecommendation(record domain.AdvisorRecommendation, tenantID string) domain.Recommendation {
	typeID := record.RecommendationTypeID
	if typeID == "" {
		typeID = "unknown"
	}
	confidence, ok := impactToConfidence[record.Impact]
	if !ok {
		confidence = 0.5
	}
	title := record.ShortDescription
	if title == "" {
		title = "Azure Advisor Cost Recommendation"
	}
	description := record.Problem
	if description == "" {
		description = record.ShortDescription
	}

	return domain.Recommendation{
		TenantID:                tenantID,
		ResourceID:              record.ResourceID,
		RuleID:                  fmt.Sprintf("advisor.%s", typeID),
		Category:                domain.CategoryRateOptimization,
		Title:                   title,
		Description:             description,
		EstimatedMonthlySavings: record.EstimatedMonthlySavings,
		ConfidenceScore:         confidence,
		RiskLevel:               domain.RiskLow,
		EffortLevel:             domain.EffortLow,
		Status:                  domain.StatusOpen,
	}
}
