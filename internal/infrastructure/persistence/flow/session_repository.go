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

type SessionRepository struct {
	db     *sql.DB
	cache  interfaces.FlowCache
	logger *logging.ChanneledLogger
}

func NewSessionRepository(db *sql.DB, cache interfaces.FlowCache, logger *logging.ChanneledLogger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

const sessionColumns = `id, flow_id, organization_id, cart_id, customer_id, one_click, current_step_id,
	data_json, completed_steps_json, status, started_at, completed_at, last_activity_at`

func (r *SessionRepository) FindByID(tenantID, id string) (*entities.Session, error) {
	if session, found := r.cache.GetFlowSession(tenantID, id); found {
		return session, nil
	}

	session, err := r.loadByQuery(fmt.Sprintf(`SELECT %s FROM flow_sessions WHERE id = ?`, sessionColumns), id)
	if err != nil || session == nil {
		return session, err
	}

	r.cache.SetFlowSession(tenantID, session)
	return session, nil
}

func (r *SessionRepository) Store(tenantID string, session *entities.Session) error {
	dataJSON, stepsJSON, err := marshalSessionBlobs(session)
	if err != nil {
		return err
	}

	query := `INSERT INTO flow_sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing session insert", "id", session.ID, "tenantId", tenantID)

	_, err = r.db.Exec(query,
		session.ID, session.FlowID, session.OrganizationID, session.CartID, session.CustomerID,
		session.OneClick, session.CurrentStepID, dataJSON, stepsJSON, string(session.Status),
		session.StartedAt, session.CompletedAt, session.LastActivityAt)
	if err != nil {
		r.logger.Database().Error("Session insert failed", "error", err.Error(), "id", session.ID)
		return fmt.Errorf("failed to insert flow session: %w", err)
	}

	r.logger.Database().Debug("Session insert completed", "id", session.ID, "duration", time.Since(start))
	r.cache.SetFlowSession(tenantID, session)
	return nil
}

func (r *SessionRepository) Update(tenantID string, session *entities.Session) error {
	dataJSON, stepsJSON, err := marshalSessionBlobs(session)
	if err != nil {
		return err
	}

	query := `UPDATE flow_sessions SET cart_id = ?, customer_id = ?, one_click = ?, current_step_id = ?,
		data_json = ?, completed_steps_json = ?, status = ?, completed_at = ?, last_activity_at = ? WHERE id = ?`

	result, err := r.db.Exec(query,
		session.CartID, session.CustomerID, session.OneClick, session.CurrentStepID,
		dataJSON, stepsJSON, string(session.Status),
		session.CompletedAt, session.LastActivityAt, session.ID)
	if err != nil {
		r.logger.Database().Error("Session update failed", "error", err.Error(), "id", session.ID)
		return fmt.Errorf("failed to update flow session: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("flow session %s not found", session.ID)
	}

	r.cache.SetFlowSession(tenantID, session)
	return nil
}

func (r *SessionRepository) FindIdleBefore(tenantID string, cutoff time.Time) ([]*entities.Session, error) {
	return r.loadAllByQuery(
		fmt.Sprintf(`SELECT %s FROM flow_sessions WHERE status = 'active' AND last_activity_at < ?`, sessionColumns),
		cutoff)
}

func (r *SessionRepository) FindByFlowAndPeriod(tenantID, flowID string, from, to time.Time) ([]*entities.Session, error) {
	return r.loadAllByQuery(
		fmt.Sprintf(`SELECT %s FROM flow_sessions WHERE flow_id = ? AND started_at >= ? AND started_at < ?`, sessionColumns),
		flowID, from, to)
}

// RecordStepEvent appends a funnel event for analytics aggregation.
func (r *SessionRepository) RecordStepEvent(tenantID, sessionID, flowID, stepID, event string) error {
	_, err := r.db.Exec(
		`INSERT INTO step_events (session_id, flow_id, step_id, event, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, flowID, stepID, event, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record step event: %w", err)
	}
	return nil
}

// StepEvent is one row from the funnel event log.
type StepEvent struct {
	SessionID  string
	StepID     string
	Event      string
	OccurredAt time.Time
}

// FindStepEvents loads the funnel event log for a flow within a period.
func (r *SessionRepository) FindStepEvents(tenantID, flowID string, from, to time.Time) ([]StepEvent, error) {
	rows, err := r.db.Query(
		`SELECT session_id, step_id, event, occurred_at FROM step_events
		 WHERE flow_id = ? AND occurred_at >= ? AND occurred_at < ? ORDER BY occurred_at`,
		flowID, from, to)
	if err != nil {
		return nil, fmt.Errorf("step event query failed: %w", err)
	}
	defer rows.Close()

	var events []StepEvent
	for rows.Next() {
		var ev StepEvent
		if err := rows.Scan(&ev.SessionID, &ev.StepID, &ev.Event, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan step event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *SessionRepository) loadByQuery(query string, args ...any) (*entities.Session, error) {
	session, err := scanSession(r.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return session, err
}

func (r *SessionRepository) loadAllByQuery(query string, args ...any) ([]*entities.Session, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("session query failed: %w", err)
	}
	defer rows.Close()

	var sessions []*entities.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(row rowScanner) (*entities.Session, error) {
	var session entities.Session
	var dataJSON, stepsJSON, status string
	var cartID, customerID, currentStepID sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&session.ID, &session.FlowID, &session.OrganizationID, &cartID, &customerID,
		&session.OneClick, &currentStepID, &dataJSON, &stepsJSON, &status, &session.StartedAt,
		&completedAt, &session.LastActivityAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan flow session: %w", err)
	}

	session.CartID = cartID.String
	session.CustomerID = customerID.String
	session.CurrentStepID = currentStepID.String
	session.Status = entities.SessionStatus(status)
	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}

	if err := json.Unmarshal([]byte(dataJSON), &session.Data); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &session.CompletedSteps); err != nil {
		return nil, fmt.Errorf("failed to decode completed steps: %w", err)
	}
	return &session, nil
}

func marshalSessionBlobs(session *entities.Session) (data, steps string, err error) {
	dataBytes, err := json.Marshal(session.Data)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode session data: %w", err)
	}
	stepsBytes, err := json.Marshal(session.CompletedSteps)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode completed steps: %w", err)
	}
	return string(dataBytes), string(stepsBytes), nil
}
