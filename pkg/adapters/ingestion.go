package adapters

import (
	"github.com/azcops/azcops/pkg/models/api"
	"github.com/azcops/azcops/pkg/models/domain"
)

func MapDomainIngestionResultToAPI(result domain.TenantIngestionResult) api.IngestionRunResponse {
	results := make([]api.SubscriptionIngestionResult, 0, len(result.Results))
	for _, sub := range result.Results {
		results = append(results, api.SubscriptionIngestionResult{
			SubscriptionID:      sub.SubscriptionID,
			ResourcesUpserted:   sub.ResourcesUpserted,
			CostRecordsUpserted: sub.CostRecordsUpserted,
			AdvisorRecords:      sub.AdvisorRecords,
			MonitorRecords:      sub.MonitorRecords,
			Errors:              sub.Errors,
			Success:             sub.Success(),
		})
	}
	return api.IngestionRunResponse{
		TenantID:               result.TenantID,
		SubscriptionsProcessed: result.SubscriptionsProcessed,
		SubscriptionsFailed:    result.SubscriptionsFailed,
		TotalResources:         result.TotalResources,
		TotalCostRecords:       result.TotalCostRecords,
		DurationMS:             result.DurationMS,
		Results:                results,
	}
}
