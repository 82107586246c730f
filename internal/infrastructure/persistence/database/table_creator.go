package database

import (
	"database/sql"
	"fmt"
)

// tableDefinitions holds the per-tenant schema. Cart items, flow steps, and
// collected session data are stored as JSON blobs; the funnel event log is
// relational so analytics can aggregate it.
var tableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS carts (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		organization_id TEXT NOT NULL,
		offer_id TEXT,
		currency TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		shipping REAL NOT NULL DEFAULT 0,
		permissive INTEGER NOT NULL DEFAULT 0,
		items_json TEXT NOT NULL DEFAULT '[]',
		coupon_json TEXT,
		shipping_address_json TEXT,
		billing_address_json TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_carts_session ON carts(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_carts_status_updated ON carts(status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		cart_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		organization_id TEXT NOT NULL,
		flow_id TEXT,
		customer_json TEXT NOT NULL,
		items_json TEXT NOT NULL,
		totals_json TEXT NOT NULL,
		currency TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		gateway_txn_id TEXT,
		installments INTEGER NOT NULL DEFAULT 0,
		coupon_code TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL,
		paid_at TIMESTAMP,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_cart ON orders(cart_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at)`,
	`CREATE TABLE IF NOT EXISTS flows (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		offer_id TEXT,
		name TEXT NOT NULL,
		steps_json TEXT NOT NULL DEFAULT '[]',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flows_offer ON flows(offer_id, active)`,
	`CREATE TABLE IF NOT EXISTS flow_sessions (
		id TEXT PRIMARY KEY,
		flow_id TEXT NOT NULL,
		organization_id TEXT NOT NULL,
		cart_id TEXT,
		customer_id TEXT,
		one_click INTEGER NOT NULL DEFAULT 0,
		current_step_id TEXT,
		data_json TEXT NOT NULL DEFAULT '{}',
		completed_steps_json TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'active',
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		last_activity_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flow_sessions_flow ON flow_sessions(flow_id, started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_flow_sessions_status ON flow_sessions(status, last_activity_at)`,
	`CREATE TABLE IF NOT EXISTS step_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		flow_id TEXT NOT NULL,
		step_id TEXT NOT NULL,
		event TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_step_events_flow ON step_events(flow_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS webhook_endpoints (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		events_json TEXT NOT NULL DEFAULT '[]',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS webhook_deliveries (
		id TEXT PRIMARY KEY,
		endpoint_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		event_name TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		delivered_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_endpoint ON webhook_deliveries(endpoint_id, delivered_at)`,
}

// CreateTables applies the schema to a tenant database. Statements are
// idempotent so activation can run this on every startup.
func CreateTables(conn *sql.DB) error {
	for _, stmt := range tableDefinitions {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
