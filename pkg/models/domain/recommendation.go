package domain

import "time"

type RecommendationStatus string

const (
	StatusOpen      RecommendationStatus = "open"
	StatusApproved  RecommendationStatus = "approved"
	StatusRejected  RecommendationStatus = "rejected"
	StatusExecuted  RecommendationStatus = "executed"
	StatusDismissed RecommendationStatus = "dismissed"
)

// ValidStatusTransitions is the full lifecycle state machine. Executed is
// terminal; rejected and dismissed recommendations can be reopened.
var ValidStatusTransitions = map[RecommendationStatus][]RecommendationStatus{
	StatusOpen:      {StatusApproved, StatusRejected, StatusDismissed},
	StatusApproved:  {StatusExecuted, StatusRejected},
	StatusRejected:  {StatusOpen},
	StatusDismissed: {StatusOpen},
	StatusExecuted:  {},
}

// CanTransition reports whether from -> to is an allowed lifecycle move.
func CanTransition(from, to RecommendationStatus) bool {
	for _, allowed := range ValidStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Recommendation is the persisted projection of a Finding, awaiting or
// having received human disposition.
type Recommendation struct {
	ID                      string
	TenantID                string
	SubscriptionDBID        string
	ResourceID              string
	ResourceName            string
	ResourceType            string
	RuleID                  string
	Category                RuleCategory
	Title                   string
	Description             string
	EstimatedMonthlySavings float64
	ConfidenceScore         float64
	RiskLevel               RiskLevel
	EffortLevel             EffortLevel
	PriorityScore           float64
	Status                  RecommendationStatus
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// UpsertOutcome tells the caller what an idempotent write actually did.
type UpsertOutcome string

const (
	UpsertInserted UpsertOutcome = "inserted"
	UpsertUpdated  UpsertOutcome = "updated"
	UpsertSkipped  UpsertOutcome = "skipped"
)
