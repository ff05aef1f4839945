package api

// SubscriptionIngestionResult reports one subscription's pipeline run.
type SubscriptionIngestionResult struct {
	SubscriptionID      string   `json:"subscription_id"`
	ResourcesUpserted   int      `json:"resources_upserted"`
	CostRecordsUpserted int      `json:"cost_records_upserted"`
	AdvisorRecords      int      `json:"advisor_records"`
	MonitorRecords      int      `json:"monitor_records"`
	Errors              []string `json:"errors,omitempty"`
	Success             bool     `json:"success"`
}

// IngestionRunResponse aggregates a tenant-wide ingestion run.
type IngestionRunResponse struct {
	TenantID               string                        `json:"tenant_id"`
	SubscriptionsProcessed int                           `json:"subscriptions_processed"`
	SubscriptionsFailed    int                           `json:"subscriptions_failed"`
	TotalResources         int                           `json:"total_resources"`
	TotalCostRecords       int                           `json:"total_cost_records"`
	DurationMS             float64                       `json:"duration_ms"`
	Results                []SubscriptionIngestionResult `json:"results"`
}
