package domain

// AdvisorRecommendation is a provider-generated cost recommendation,
// flattened from the Advisor API response.
type AdvisorRecommendation struct {
	AdvisorID               string
	Name                    string
	Category                string
	Impact                  string // High | Medium | Low
	ImpactedField           string
	ImpactedValue           string
	ShortDescription        string
	Problem                 string
	RecommendationTypeID    string
	EstimatedMonthlySavings float64
	ResourceID              string
	SubscriptionID          string
	TenantID                string
	ExtendedProperties      map[string]any
}
