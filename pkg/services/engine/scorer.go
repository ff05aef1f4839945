package engine

import (
	"math"
	"sort"

	"github.com/azcops/azcops/pkg/models/domain"
)

var riskWeight = map[domain.RiskLevel]float64{
	domain.RiskLow:    1.0,
	domain.RiskMedium: 0.7,
	domain.RiskHigh:   0.4,
}

// Score computes priority as savings weighted by confidence and risk,
// rounded to 4 decimals.
func Score(f domain.Finding) domain.ScoredFinding {
	priority := f.EstimatedMonthlySavings * f.ConfidenceScore * riskWeight[f.RiskLevel]
	return domain.ScoredFinding{
		Finding:       f,
		PriorityScore: math.Round(priority*10000) / 10000,
	}
}

// ScoreAndRank scores every finding and orders them by descending priority.
// The sort is stable so equal scores keep evaluation order.
func ScoreAndRank(findings []domain.Finding) []domain.ScoredFinding {
	scored := make([]domain.ScoredFinding, 0, len(findings))
	for _, f := range findings {
		scored = append(scored, Score(f))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].PriorityScore > scored[j].PriorityScore
	})
	return scored
}
