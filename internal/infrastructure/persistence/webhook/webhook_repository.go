// Package webhook persists tenant webhook endpoints and their delivery log
package webhook

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/clubifyhq/checkout-go/internal/domain/repositories"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
)

type Repository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewRepository(db *sql.DB, logger *logging.ChanneledLogger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) FindEndpoints(tenantID string) ([]*repositories.WebhookEndpoint, error) {
	rows, err := r.db.Query(`SELECT id, url, events_json, active, created_at FROM webhook_endpoints ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("webhook endpoint query failed: %w", err)
	}
	defer rows.Close()

	var endpoints []*repositories.WebhookEndpoint
	for rows.Next() {
		var endpoint repositories.WebhookEndpoint
		var eventsJSON string
		var active int
		if err := rows.Scan(&endpoint.ID, &endpoint.URL, &eventsJSON, &active, &endpoint.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook endpoint: %w", err)
		}
		endpoint.Active = active != 0
		if err := json.Unmarshal([]byte(eventsJSON), &endpoint.Events); err != nil {
			return nil, fmt.Errorf("failed to decode endpoint events: %w", err)
		}
		endpoints = append(endpoints, &endpoint)
	}
	return endpoints, rows.Err()
}

func (r *Repository) StoreEndpoint(tenantID string, endpoint *repositories.WebhookEndpoint) error {
	eventsJSON, err := json.Marshal(endpoint.Events)
	if err != nil {
		return fmt.Errorf("failed to encode endpoint events: %w", err)
	}

	active := 0
	if endpoint.Active {
		active = 1
	}
	_, err = r.db.Exec(
		`INSERT INTO webhook_endpoints (id, url, events_json, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		endpoint.ID, endpoint.URL, string(eventsJSON), active, endpoint.CreatedAt)
	if err != nil {
		r.logger.Database().Error("Webhook endpoint insert failed", "error", err.Error(), "id", endpoint.ID)
		return fmt.Errorf("failed to insert webhook endpoint: %w", err)
	}
	return nil
}

func (r *Repository) DeleteEndpoint(tenantID, id string) error {
	if _, err := r.db.Exec(`DELETE FROM webhook_endpoints WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete webhook endpoint: %w", err)
	}
	return nil
}

func (r *Repository) RecordDelivery(tenantID string, delivery *repositories.WebhookDelivery) error {
	success := 0
	if delivery.Success {
		success = 1
	}
	_, err := r.db.Exec(
		`INSERT INTO webhook_deliveries (id, endpoint_id, event_id, event_name, status_code, success, attempts, last_error, delivered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		delivery.ID, delivery.EndpointID, delivery.EventID, delivery.EventName,
		delivery.StatusCode, success, delivery.Attempts, delivery.LastError, delivery.DeliveredAt)
	if err != nil {
		r.logger.Database().Error("Webhook delivery insert failed", "error", err.Error(), "id", delivery.ID)
		return fmt.Errorf("failed to record webhook delivery: %w", err)
	}
	return nil
}

func (r *Repository) FindDeliveries(tenantID, endpointID string, limit int) ([]*repositories.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, endpoint_id, event_id, event_name, status_code, success, attempts, last_error, delivered_at
		 FROM webhook_deliveries WHERE endpoint_id = ? ORDER BY delivered_at DESC LIMIT ?`,
		endpointID, limit)
	if err != nil {
		return nil, fmt.Errorf("webhook delivery query failed: %w", err)
	}
	defer rows.Close()

	var deliveries []*repositories.WebhookDelivery
	for rows.Next() {
		var delivery repositories.WebhookDelivery
		var success int
		var lastError sql.NullString
		if err := rows.Scan(&delivery.ID, &delivery.EndpointID, &delivery.EventID, &delivery.EventName,
			&delivery.StatusCode, &success, &delivery.Attempts, &lastError, &delivery.DeliveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook delivery: %w", err)
		}
		delivery.Success = success != 0
		delivery.LastError = lastError.String
		deliveries = append(deliveries, &delivery)
	}
	return deliveries, rows.Err()
}
