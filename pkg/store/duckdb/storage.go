package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const TenantsSchema = `
	CREATE TABLE IF NOT EXISTS tenants (
		id VARCHAR PRIMARY KEY,
		azure_tenant_id VARCHAR NOT NULL UNIQUE,
		name VARCHAR NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

const SubscriptionsSchema = `
	CREATE TABLE IF NOT EXISTS subscriptions (
		id VARCHAR PRIMARY KEY,
		tenant_id VARCHAR NOT NULL,
		subscription_id VARCHAR NOT NULL UNIQUE,
		display_name VARCHAR,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

const ResourcesSchema = `
	CREATE TABLE IF NOT EXISTS resources (
		resource_id VARCHAR PRIMARY KEY,
		tenant_id VARCHAR NOT NULL,
		subscription_db_id VARCHAR NOT NULL,
		name VARCHAR,
		type VARCHAR,
		resource_group VARCHAR,
		location VARCHAR,
		tags JSON,
		properties JSON,
		last_seen TIMESTAMP NOT NULL
	);
`

const CostsDailySchema = `
	CREATE TABLE IF NOT EXISTS costs_daily (
		tenant_id VARCHAR NOT NULL,
		subscription_db_id VARCHAR NOT NULL,
		usage_date DATE NOT NULL,
		service_name VARCHAR NOT NULL,
		resource_group VARCHAR NOT NULL,
		meter_category VARCHAR,
		cost DOUBLE NOT NULL,
		amortized_cost DOUBLE NOT NULL,
		currency VARCHAR NOT NULL,
		PRIMARY KEY (subscription_db_id, usage_date, service_name, resource_group)
	);
`

const RecommendationsSchema = `
	CREATE TABLE IF NOT EXISTS recommendations (
		id VARCHAR PRIMARY KEY,
		tenant_id VARCHAR NOT NULL,
		subscription_db_id VARCHAR NOT NULL,
		rule_id VARCHAR NOT NULL,
		category VARCHAR NOT NULL,
		resource_id VARCHAR NOT NULL,
		resource_name VARCHAR,
		resource_type VARCHAR,
		title VARCHAR NOT NULL,
		description VARCHAR,
		estimated_monthly_savings DOUBLE NOT NULL,
		confidence_score DOUBLE NOT NULL,
		risk_level VARCHAR NOT NULL,
		effort_level VARCHAR NOT NULL,
		priority_score DOUBLE NOT NULL,
		status VARCHAR NOT NULL DEFAULT 'open',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

var bootQueries = []string{
	TenantsSchema,
	SubscriptionsSchema,
	ResourcesSchema,
	CostsDailySchema,
	RecommendationsSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		bootQueries := append([]string{}, bootQueries...)

		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
