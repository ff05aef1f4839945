package inventory

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/store/duckdb"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	store, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{db: db, store: store}
}

func TestEnsureTenantAndSubscription(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	tenantID, err := f.store.EnsureTenant(ctx, "00000000-0000-0000-0000-0000000000aa", "contoso")
	require.NoError(t, err)
	require.NotEmpty(t, tenantID)

	// idempotent
	again, err := f.store.EnsureTenant(ctx, "00000000-0000-0000-0000-0000000000aa", "contoso")
	require.NoError(t, err)
	assert.Equal(t, tenantID, again)

	subID, err := f.store.EnsureSubscription(ctx, tenantID, "sub-guid-1", "Production")
	require.NoError(t, err)
	require.NotEmpty(t, subID)

	again, err = f.store.EnsureSubscription(ctx, tenantID, "sub-guid-1", "Production")
	require.NoError(t, err)
	assert.Equal(t, subID, again)

	subs, err := f.store.GetActiveSubscriptions(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub-guid-1", subs[0].SubscriptionID)
	assert.Equal(t, "Production", subs[0].DisplayName)
	assert.True(t, subs[0].IsActive)
}

func TestUpsertResources(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	res := domain.Resource{
		TenantID:         "t1",
		SubscriptionDBID: "s1",
		ResourceID:       "/subscriptions/x/resourcegroups/rg/providers/microsoft.compute/disks/d1",
		Name:             "d1",
		Type:             "microsoft.compute/disks",
		ResourceGroup:    "rg",
		Location:         "westeurope",
		Tags:             map[string]string{"env": "prod"},
		Properties:       map[string]any{"diskState": "Unattached", "diskSizeGB": float64(512)},
		LastSeen:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	n, err := f.store.UpsertResources(ctx, []domain.Resource{res})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// second upsert with changed fields replaces, does not duplicate
	res.Name = "d1-renamed"
	res.LastSeen = res.LastSeen.AddDate(0, 0, 1)
	_, err = f.store.UpsertResources(ctx, []domain.Resource{res})
	require.NoError(t, err)

	resources, err := f.store.ListResources(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "d1-renamed", resources[0].Name)
	assert.Equal(t, "prod", resources[0].Tags["env"])
	assert.Equal(t, "Unattached", resources[0].Properties["diskState"])
}

func TestUpsertResourcesEmpty(t *testing.T) {
	f := setupFixture(t)

	n, err := f.store.UpsertResources(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpsertCosts(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := domain.CostRecord{
		TenantID:         "t1",
		SubscriptionDBID: "s1",
		Date:             day,
		ServiceName:      "Virtual Machines",
		ResourceGroup:    "rg-prod",
		MeterCategory:    "Virtual Machines",
		Cost:             42.5,
		AmortizedCost:    38.0,
		Currency:         "USD",
	}

	n, err := f.store.UpsertCosts(ctx, []domain.CostRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// re-ingesting the same day overwrites
	rec.Cost = 50.0
	rec.AmortizedCost = 45.0
	_, err = f.store.UpsertCosts(ctx, []domain.CostRecord{rec})
	require.NoError(t, err)

	var count int
	var cost float64
	err = f.db.QueryRow(
		`SELECT COUNT(*), SUM(cost) FROM costs_daily WHERE subscription_db_id = ?`, "s1",
	).Scan(&count, &cost)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 50.0, cost)
}

func TestComputeSpend30d(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	records := []domain.CostRecord{
		{TenantID: "t1", SubscriptionDBID: "s1", Date: today.AddDate(0, 0, -1),
			ServiceName: "Virtual Machines", ResourceGroup: "rg", Cost: 100, AmortizedCost: 90, Currency: "USD"},
		{TenantID: "t1", SubscriptionDBID: "s1", Date: today.AddDate(0, 0, -2),
			ServiceName: "Virtual Machines", ResourceGroup: "rg", Cost: 100, AmortizedCost: 110, Currency: "USD"},
		// different service, excluded from compute spend
		{TenantID: "t1", SubscriptionDBID: "s1", Date: today.AddDate(0, 0, -1),
			ServiceName: "Storage", ResourceGroup: "rg", Cost: 30, AmortizedCost: 30, Currency: "USD"},
		// outside the window
		{TenantID: "t1", SubscriptionDBID: "s1", Date: today.AddDate(0, 0, -45),
			ServiceName: "Virtual Machines", ResourceGroup: "rg", Cost: 999, AmortizedCost: 999, Currency: "USD"},
	}
	_, err := f.store.UpsertCosts(ctx, records)
	require.NoError(t, err)

	total, daily, err := f.store.ComputeSpend30d(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 200.0, total)
	require.Len(t, daily, 2)
	assert.True(t, daily[0].Date.Before(daily[1].Date))
}

func TestMonthToDateSpend(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	records := []domain.CostRecord{
		{TenantID: "t1", SubscriptionDBID: "s1", Date: monthStart,
			ServiceName: "Virtual Machines", ResourceGroup: "rg", Cost: 75, AmortizedCost: 75, Currency: "USD"},
		{TenantID: "t1", SubscriptionDBID: "s1", Date: monthStart,
			ServiceName: "Storage", ResourceGroup: "rg", Cost: 25, AmortizedCost: 25, Currency: "USD"},
		// previous month, excluded
		{TenantID: "t1", SubscriptionDBID: "s1", Date: monthStart.AddDate(0, 0, -1),
			ServiceName: "Storage", ResourceGroup: "rg", Cost: 500, AmortizedCost: 500, Currency: "USD"},
	}
	_, err := f.store.UpsertCosts(ctx, records)
	require.NoError(t, err)

	total, err := f.store.MonthToDateSpend(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, total)

	total, err = f.store.MonthToDateSpend(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
}
