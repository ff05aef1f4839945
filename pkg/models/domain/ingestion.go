package domain

// SubscriptionIngestionResult reports one subscription's pipeline run.
// Errors are collected, never raised; a subscription with at least one error
// counts as failed at the tenant level.
type SubscriptionIngestionResult struct {
	SubscriptionID      string
	ResourcesUpserted   int
	CostRecordsUpserted int
	AdvisorRecords      int
	MonitorRecords      int
	Errors              []string
}

func (r SubscriptionIngestionResult) Success() bool {
	return len(r.Errors) == 0
}

// TenantIngestionResult aggregates subscription results bottom-up.
type TenantIngestionResult struct {
	TenantID               string
	SubscriptionsProcessed int
	SubscriptionsFailed    int
	TotalResources         int
	TotalCostRecords       int
	DurationMS             float64
	Results                []SubscriptionIngestionResult
}
