package api

import "time"

// Recommendation is the wire shape of a persisted recommendation.
type Recommendation struct {
	ID                      string    `json:"id"`
	TenantID                string    `json:"tenant_id"`
	SubscriptionDBID        string    `json:"subscription_id"`
	ResourceID              string    `json:"resource_id"`
	ResourceName            string    `json:"resource_name"`
	ResourceType            string    `json:"resource_type"`
	RuleID                  string    `json:"rule_id"`
	Category                string    `json:"category"`
	Title                   string    `json:"title"`
	Description             string    `json:"description"`
	EstimatedMonthlySavings float64   `json:"estimated_monthly_savings"`
	ConfidenceScore         float64   `json:"confidence_score"`
	RiskLevel               string    `json:"risk_level"`
	EffortLevel             string    `json:"effort_level"`
	PriorityScore           float64   `json:"priority_score"`
	Status                  string    `json:"status"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// TransitionRequest asks for a recommendation lifecycle move.
type TransitionRequest struct {
	Status string `json:"status"`
}
