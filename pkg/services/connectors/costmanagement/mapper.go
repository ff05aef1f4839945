package costmanagement

import "github.com/azcops/azcops/pkg/models/domain"

// MapCostRecords attributes parsed cost rows to a tenant and subscription.
func MapCostRecords(rows []Row, tenantID, subscriptionDBID string) []domain.CostRecord {
	out := make([]domain.CostRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.CostRecord{
			TenantID:         tenantID,
			SubscriptionDBID: subscriptionDBID,
			Date:             row.Date,
			ServiceName:      row.ServiceName,
			ResourceGroup:    row.ResourceGroup,
			MeterCategory:    row.MeterCategory,
			Cost:             row.Cost,
			AmortizedCost:    row.AmortizedCost,
			Currency:         row.Currency,
		})
	}
	return out
}
