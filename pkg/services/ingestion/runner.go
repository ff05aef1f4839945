package ingestion

import (
	"context"
	"fmt"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/store/duckdb/inventory"
)

// Runner registers the configured tenant and subscriptions in the inventory
// and drives the orchestrator over them. It is the entry point shared by the
// web trigger and the scheduler command.
type Runner struct {
	orch *Orchestrator
	inv  inventory.Store

	azureTenantID   string
	tenantName      string
	subscriptionIDs []string
}

func NewRunner(
	orch *Orchestrator,
	inv inventory.Store,
	azureTenantID, tenantName string,
	subscriptionIDs []string,
) *Runner {
	return &Runner{
		orch:            orch,
		inv:             inv,
		azureTenantID:   azureTenantID,
		tenantName:      tenantName,
		subscriptionIDs: subscriptionIDs,
	}
}

// Run ensures the tenant and its configured subscriptions exist, then runs
// the ingestion pipeline over every active subscription.
func (r *Runner) Run(ctx context.Context, opts Options) (domain.TenantIngestionResult, error) {
	tenantDBID, err := r.inv.EnsureTenant(ctx, r.azureTenantID, r.tenantName)
	if err != nil {
		return domain.TenantIngestionResult{}, fmt.Errorf("ensure tenant %s: %w", r.azureTenantID, err)
	}

	for _, subID := range r.subscriptionIDs {
		if _, err := r.inv.EnsureSubscription(ctx, tenantDBID, subID, subID); err != nil {
			return domain.TenantIngestionResult{}, fmt.Errorf("ensure subscription %s: %w", subID, err)
		}
	}

	subs, err := r.inv.GetActiveSubscriptions(ctx, tenantDBID)
	if err != nil {
		return domain.TenantIngestionResult{}, fmt.Errorf("list subscriptions: %w", err)
	}

	tenant := domain.Tenant{
		ID:            tenantDBID,
		AzureTenantID: r.azureTenantID,
		Name:          r.tenantName,
		IsActive:      true,
	}
	return r.orch.RunTenant(ctx, tenant, subs, opts), nil
}
