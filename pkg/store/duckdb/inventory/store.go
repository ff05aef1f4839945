package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/store/duckdb"
	"github.com/google/uuid"
)

// DailySpend is one day of compute spend, used by rate optimization rules to
// judge how steady a subscription's usage is.
type DailySpend struct {
	Date time.Time
	Cost float64
}

// Store owns tenants, subscriptions, resources and daily costs in DuckDB.
// Writes participate in an ambient transaction when one is on the context.
type Store interface {
	EnsureTenant(ctx context.Context, azureTenantID, name string) (string, error)
	EnsureSubscription(ctx context.Context, tenantID, subscriptionID, displayName string) (string, error)
	GetActiveSubscriptions(ctx context.Context, tenantID string) ([]domain.Subscription, error)
	UpsertResources(ctx context.Context, resources []domain.Resource) (int, error)
	ListResources(ctx context.Context, subscriptionDBID string) ([]domain.Resource, error)
	UpsertCosts(ctx context.Context, records []domain.CostRecord) (int, error)
	ComputeSpend30d(ctx context.Context, subscriptionDBID string) (float64, []DailySpend, error)
	MonthToDateSpend(ctx context.Context, subscriptionDBID string) (float64, error)
}

type inventoryStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &inventoryStore{db: db}, nil
}

func (s *inventoryStore) execer(ctx context.Context) execer {
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		return tx
	}
	return s.db
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func (s *inventoryStore) EnsureTenant(ctx context.Context, azureTenantID, name string) (string, error) {
	ex := s.execer(ctx)

	var id string
	err := ex.QueryRowContext(ctx,
		`SELECT id FROM tenants WHERE azure_tenant_id = ?`, azureTenantID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup tenant %s: %w", azureTenantID, err)
	}

	id = uuid.NewString()
	_, err = ex.ExecContext(ctx,
		`INSERT INTO tenants (id, azure_tenant_id, name) VALUES (?, ?, ?)`,
		id, azureTenantID, name)
	if err != nil {
		return "", fmt.Errorf("insert tenant %s: %w", azureTenantID, err)
	}
	return id, nil
}

func (s *inventoryStore) EnsureSubscription(ctx context.Context, tenantID, subscriptionID, displayName string) (string, error) {
	ex := s.execer(ctx)

	var id string
	err := ex.QueryRowContext(ctx,
		`SELECT id FROM subscriptions WHERE subscription_id = ?`, subscriptionID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup subscription %s: %w", subscriptionID, err)
	}

	id = uuid.NewString()
	_, err = ex.ExecContext(ctx,
		`INSERT INTO subscriptions (id, tenant_id, subscription_id, display_name) VALUES (?, ?, ?, ?)`,
		id, tenantID, subscriptionID, displayName)
	if err != nil {
		return "", fmt.Errorf("insert subscription %s: %w", subscriptionID, err)
	}
	return id, nil
}

func (s *inventoryStore) GetActiveSubscriptions(ctx context.Context, tenantID string) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, subscription_id, COALESCE(display_name, ''), is_active
		FROM subscriptions
		WHERE tenant_id = ? AND is_active
		ORDER BY subscription_id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	subs := make([]domain.Subscription, 0)
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.ID, &sub.TenantID, &sub.SubscriptionID, &sub.DisplayName, &sub.IsActive); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *inventoryStore) UpsertResources(ctx context.Context, resources []domain.Resource) (int, error) {
	if len(resources) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO resources (
			resource_id, tenant_id, subscription_db_id, name, type,
			resource_group, location, tags, properties, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (resource_id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			subscription_db_id = excluded.subscription_db_id,
			name = excluded.name,
			type = excluded.type,
			resource_group = excluded.resource_group,
			location = excluded.location,
			tags = excluded.tags,
			properties = excluded.properties,
			last_seen = excluded.last_seen`

	stmt, err := s.execer(ctx).PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare resource upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range resources {
		tags, err := json.Marshal(r.Tags)
		if err != nil {
			return 0, fmt.Errorf("marshal tags for %s: %w", r.ResourceID, err)
		}
		properties, err := json.Marshal(r.Properties)
		if err != nil {
			return 0, fmt.Errorf("marshal properties for %s: %w", r.ResourceID, err)
		}

		_, err = stmt.ExecContext(ctx,
			r.ResourceID, r.TenantID, r.SubscriptionDBID, r.Name, r.Type,
			r.ResourceGroup, r.Location, tags, properties, r.LastSeen,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert resource %s: %w", r.ResourceID, err)
		}
	}
	return len(resources), nil
}

func (s *inventoryStore) ListResources(ctx context.Context, subscriptionDBID string) ([]domain.Resource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resource_id, tenant_id, subscription_db_id, COALESCE(name, ''), COALESCE(type, ''),
			COALESCE(resource_group, ''), COALESCE(location, ''), tags, properties, last_seen
		FROM resources
		WHERE subscription_db_id = ?
		ORDER BY resource_id
	`, subscriptionDBID)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	resources := make([]domain.Resource, 0)
	for rows.Next() {
		var (
			r             domain.Resource
			tagsRaw       []byte
			propertiesRaw []byte
		)
		if err := rows.Scan(&r.ResourceID, &r.TenantID, &r.SubscriptionDBID, &r.Name, &r.Type,
			&r.ResourceGroup, &r.Location, &tagsRaw, &propertiesRaw, &r.LastSeen); err != nil {
			return nil, err
		}
		r.Tags = map[string]string{}
		if len(tagsRaw) > 0 {
			_ = json.Unmarshal(tagsRaw, &r.Tags)
		}
		r.Properties = map[string]any{}
		if len(propertiesRaw) > 0 {
			_ = json.Unmarshal(propertiesRaw, &r.Properties)
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func (s *inventoryStore) UpsertCosts(ctx context.Context, records []domain.CostRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO costs_daily (
			tenant_id, subscription_db_id, usage_date, service_name,
			resource_group, meter_category, cost, amortized_cost, currency
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subscription_db_id, usage_date, service_name, resource_group) DO UPDATE SET
			meter_category = excluded.meter_category,
			cost = excluded.cost,
			amortized_cost = excluded.amortized_cost,
			currency = excluded.currency`

	stmt, err := s.execer(ctx).PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare cost upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err = stmt.ExecContext(ctx,
			rec.TenantID, rec.SubscriptionDBID, rec.Date, rec.ServiceName,
			rec.ResourceGroup, rec.MeterCategory, rec.Cost, rec.AmortizedCost, rec.Currency,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert cost record %s/%s: %w", rec.ServiceName, rec.ResourceGroup, err)
		}
	}
	return len(records), nil
}

// ComputeSpend30d returns total and per-day amortized compute spend over the
// trailing 30 days. Compute is matched on the service name and meter category
// the provider reports for virtual machines.
func (s *inventoryStore) ComputeSpend30d(ctx context.Context, subscriptionDBID string) (float64, []DailySpend, error) {
	since := time.Now().UTC().AddDate(0, 0, -30)

	rows, err := s.db.QueryContext(ctx, `
		SELECT usage_date, SUM(amortized_cost)
		FROM costs_daily
		WHERE subscription_db_id = ?
			AND usage_date >= ?
			AND (lower(service_name) LIKE '%virtual machines%' OR lower(meter_category) LIKE '%virtual machines%')
		GROUP BY usage_date
		ORDER BY usage_date
	`, subscriptionDBID, since)
	if err != nil {
		return 0, nil, fmt.Errorf("query compute spend: %w", err)
	}
	defer rows.Close()

	var total float64
	daily := make([]DailySpend, 0)
	for rows.Next() {
		var d DailySpend
		if err := rows.Scan(&d.Date, &d.Cost); err != nil {
			return 0, nil, err
		}
		total += d.Cost
		daily = append(daily, d)
	}
	return total, daily, rows.Err()
}

// MonthToDateSpend sums all spend since the first of the current month.
func (s *inventoryStore) MonthToDateSpend(ctx context.Context, subscriptionDBID string) (float64, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(cost) FROM costs_daily
		WHERE subscription_db_id = ? AND usage_date >= ?
	`, subscriptionDBID, monthStart).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query month-to-date spend: %w", err)
	}
	return total.Float64, nil
}
