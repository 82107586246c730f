// Package flow provides flow config and session repositories
package flow

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entities "github.com/clubifyhq/checkout-go/internal/domain/entities/flow"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/interfaces"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
)

type FlowRepository struct {
	db     *sql.DB
	cache  interfaces.FlowCache
	logger *logging.ChanneledLogger
}

func NewFlowRepository(db *sql.DB, cache interfaces.FlowCache, logger *logging.ChanneledLogger) *FlowRepository {
	return &FlowRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

const flowColumns = `id, organization_id, offer_id, name, steps_json, active, created_at, updated_at`

func (r *FlowRepository) FindByID(tenantID, id string) (*entities.Config, error) {
	if cfg, found := r.cache.GetFlow(tenantID, id); found {
		return cfg, nil
	}

	cfg, err := r.loadByQuery(fmt.Sprintf(`SELECT %s FROM flows WHERE id = ?`, flowColumns), id)
	if err != nil || cfg == nil {
		return cfg, err
	}

	r.cache.SetFlow(tenantID, cfg)
	return cfg, nil
}

func (r *FlowRepository) FindActiveByOffer(tenantID, offerID string) (*entities.Config, error) {
	if cfg, found := r.cache.GetFlowByOffer(tenantID, offerID); found && cfg.Active {
		return cfg, nil
	}

	cfg, err := r.loadByQuery(
		fmt.Sprintf(`SELECT %s FROM flows WHERE offer_id = ? AND active = 1 ORDER BY updated_at DESC LIMIT 1`, flowColumns),
		offerID)
	if err != nil || cfg == nil {
		return cfg, err
	}

	r.cache.SetFlow(tenantID, cfg)
	return cfg, nil
}

func (r *FlowRepository) FindAll(tenantID string) ([]*entities.Config, error) {
	rows, err := r.db.Query(fmt.Sprintf(`SELECT %s FROM flows ORDER BY created_at`, flowColumns))
	if err != nil {
		return nil, fmt.Errorf("flow query failed: %w", err)
	}
	defer rows.Close()

	var configs []*entities.Config
	for rows.Next() {
		cfg, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (r *FlowRepository) Store(tenantID string, cfg *entities.Config) error {
	stepsJSON, err := json.Marshal(cfg.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode flow steps: %w", err)
	}

	query := `INSERT INTO flows (` + flowColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing flow insert", "id", cfg.ID, "tenantId", tenantID)

	_, err = r.db.Exec(query, cfg.ID, cfg.OrganizationID, cfg.OfferID, cfg.Name,
		string(stepsJSON), boolToInt(cfg.Active), cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		r.logger.Database().Error("Flow insert failed", "error", err.Error(), "id", cfg.ID)
		return fmt.Errorf("failed to insert flow: %w", err)
	}

	r.logger.Database().Debug("Flow insert completed", "id", cfg.ID, "duration", time.Since(start))
	r.cache.SetFlow(tenantID, cfg)
	return nil
}

func (r *FlowRepository) Update(tenantID string, cfg *entities.Config) error {
	stepsJSON, err := json.Marshal(cfg.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode flow steps: %w", err)
	}

	query := `UPDATE flows SET offer_id = ?, name = ?, steps_json = ?, active = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, cfg.OfferID, cfg.Name, string(stepsJSON),
		boolToInt(cfg.Active), cfg.UpdatedAt, cfg.ID)
	if err != nil {
		r.logger.Database().Error("Flow update failed", "error", err.Error(), "id", cfg.ID)
		return fmt.Errorf("failed to update flow: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("flow %s not found", cfg.ID)
	}

	r.cache.InvalidateFlow(tenantID, cfg.ID)
	r.cache.SetFlow(tenantID, cfg)
	return nil
}

func (r *FlowRepository) Delete(tenantID, id string) error {
	if _, err := r.db.Exec(`DELETE FROM flows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	r.cache.InvalidateFlow(tenantID, id)
	return nil
}

func (r *FlowRepository) loadByQuery(query string, args ...any) (*entities.Config, error) {
	cfg, err := scanFlow(r.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cfg, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlow(row rowScanner) (*entities.Config, error) {
	var cfg entities.Config
	var stepsJSON string
	var offerID sql.NullString
	var active int

	err := row.Scan(&cfg.ID, &cfg.OrganizationID, &offerID, &cfg.Name, &stepsJSON,
		&active, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	cfg.OfferID = offerID.String
	cfg.Active = active != 0
	if err := json.Unmarshal([]byte(stepsJSON), &cfg.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode flow steps: %w", err)
	}
	return &cfg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
