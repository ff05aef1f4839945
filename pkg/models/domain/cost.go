package domain

import "time"

// CostRecord is one day of spend for a (resource group, service, meter
// category) combination within a subscription. AmortizedCost falls back to
// Cost when the amortized query has no matching row.
type CostRecord struct {
	TenantID         string
	SubscriptionDBID string
	Date             time.Time // calendar date, UTC midnight
	ServiceName      string
	ResourceGroup    string
	MeterCategory    string
	Cost             float64
	AmortizedCost    float64
	Currency         string
}
