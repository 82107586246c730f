package services

import (
	"context"
	"fmt"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/flow"
	"github.com/clubifyhq/checkout-go/internal/domain/errs"
	"github.com/clubifyhq/checkout-go/internal/domain/events"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/messaging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/security"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

// Funnel step event kinds recorded per session for analytics.
const (
	stepEventEntered   = "entered"
	stepEventCompleted = "completed"
)

// FlowService orchestrates flow configuration and buyer session navigation.
type FlowService struct {
	publisher messaging.EventPublisher
	webhooks  *WebhookService
	logger    *logging.ChanneledLogger
}

// NewFlowService creates a new flow service singleton
func NewFlowService(publisher messaging.EventPublisher, webhooks *WebhookService, logger *logging.ChanneledLogger) *FlowService {
	return &FlowService{
		publisher: publisher,
		webhooks:  webhooks,
		logger:    logger,
	}
}

// StepResult is the outcome of a step submission: either the advanced session
// or the accumulated field errors.
type StepResult struct {
	Session     *flow.Session          `json:"session"`
	FieldErrors []errs.ValidationError `json:"fieldErrors,omitempty"`
}

// CreateFlow validates and stores a new flow configuration.
func (s *FlowService) CreateFlow(tenantCtx *tenant.Context, cfg *flow.Config) (*flow.Config, error) {
	if cfg == nil {
		return nil, errs.NewValidation("flow", "flow config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.ID == "" {
		cfg.ID = security.GenerateULID()
	}
	cfg.OrganizationID = tenantCtx.TenantID
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	if err := tenantCtx.FlowRepo().Store(tenantCtx.TenantID, cfg); err != nil {
		return nil, fmt.Errorf("failed to store flow: %w", err)
	}

	s.logger.Flow().Info("Flow created", "tenantId", tenantCtx.TenantID, "flowId", cfg.ID, "steps", len(cfg.Steps))
	return cfg, nil
}

// GetFlow returns a flow config by id (cache-first via repository).
func (s *FlowService) GetFlow(tenantCtx *tenant.Context, id string) (*flow.Config, error) {
	if id == "" {
		return nil, errs.NewValidation("flowId", "flow id is required")
	}
	cfg, err := tenantCtx.FlowRepo().FindByID(tenantCtx.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get flow %s: %w", id, err)
	}
	return cfg, nil
}

// ListFlows returns every flow configured for the tenant.
func (s *FlowService) ListFlows(tenantCtx *tenant.Context) ([]*flow.Config, error) {
	flows, err := tenantCtx.FlowRepo().FindAll(tenantCtx.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	return flows, nil
}

// UpdateFlow validates and persists changes to an existing flow.
func (s *FlowService) UpdateFlow(tenantCtx *tenant.Context, cfg *flow.Config) error {
	if cfg == nil || cfg.ID == "" {
		return errs.NewValidation("flowId", "flow id is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	existing, err := tenantCtx.FlowRepo().FindByID(tenantCtx.TenantID, cfg.ID)
	if err != nil {
		return fmt.Errorf("failed to verify flow %s exists: %w", cfg.ID, err)
	}
	if existing == nil {
		return errs.NewValidation("flowId", fmt.Sprintf("flow %s not found", cfg.ID))
	}

	cfg.OrganizationID = tenantCtx.TenantID
	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = time.Now().UTC()
	if err := tenantCtx.FlowRepo().Update(tenantCtx.TenantID, cfg); err != nil {
		return fmt.Errorf("failed to update flow %s: %w", cfg.ID, err)
	}
	return nil
}

// DeleteFlow removes a flow configuration.
func (s *FlowService) DeleteFlow(tenantCtx *tenant.Context, id string) error {
	if id == "" {
		return errs.NewValidation("flowId", "flow id is required")
	}
	if err := tenantCtx.FlowRepo().Delete(tenantCtx.TenantID, id); err != nil {
		return fmt.Errorf("failed to delete flow %s: %w", id, err)
	}
	return nil
}

// StartSession opens a buyer session on a flow, resolved either by flow id or
// by the offer the flow is attached to. A non-empty customerID marks the
// session as a returning customer's, bypassing steps flagged oneClickOk.
func (s *FlowService) StartSession(tenantCtx *tenant.Context, flowID, offerID, cartID, customerID string) (*flow.Session, error) {
	start := time.Now()

	var cfg *flow.Config
	var err error
	switch {
	case flowID != "":
		cfg, err = tenantCtx.FlowRepo().FindByID(tenantCtx.TenantID, flowID)
	case offerID != "":
		cfg, err = tenantCtx.FlowRepo().FindActiveByOffer(tenantCtx.TenantID, offerID)
	default:
		return nil, errs.NewValidation("flowId", "flow id or offer id is required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve flow: %w", err)
	}
	if cfg == nil {
		return nil, errs.NewValidation("flowId", "no matching flow found")
	}
	if !cfg.Active {
		return nil, errs.NewValidation("flowId", fmt.Sprintf("flow %s is not active", cfg.ID))
	}

	session, err := flow.NewSession(security.GenerateULID(), cfg)
	if err != nil {
		return nil, err
	}
	session.CartID = cartID
	if customerID != "" {
		session.AttachCustomer(cfg, customerID)
	}

	sessionRepo := tenantCtx.SessionRepo()
	if err := sessionRepo.Store(tenantCtx.TenantID, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	if err := sessionRepo.RecordStepEvent(tenantCtx.TenantID, session.ID, cfg.ID, session.CurrentStepID, stepEventEntered); err != nil {
		s.logger.Flow().Error("Failed to record step event", "tenantId", tenantCtx.TenantID, "sessionId", session.ID, "error", err)
	}

	s.emit(tenantCtx, events.CheckoutStarted, map[string]any{"sessionId": session.ID, "flowId": cfg.ID, "cartId": cartID})
	s.emit(tenantCtx, events.FlowStepReached, map[string]any{"sessionId": session.ID, "flowId": cfg.ID, "stepId": session.CurrentStepID})

	s.logger.Flow().Info("Flow session started", "tenantId", tenantCtx.TenantID, "sessionId", session.ID, "flowId", cfg.ID, "firstStep", session.CurrentStepID, "oneClick", session.OneClick, "duration", time.Since(start))
	return session, nil
}

// GetSession returns a session by id (cache-first via repository).
func (s *FlowService) GetSession(tenantCtx *tenant.Context, id string) (*flow.Session, error) {
	if id == "" {
		return nil, errs.NewValidation("sessionId", "session id is required")
	}
	session, err := tenantCtx.SessionRepo().FindByID(tenantCtx.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return session, nil
}

// CompleteStep validates a step submission against the flow's rules. Field
// errors are returned in the result without advancing the session; a valid
// submission advances to the next visible step or completes the flow.
func (s *FlowService) CompleteStep(tenantCtx *tenant.Context, sessionID, stepID string, data map[string]interface{}) (*StepResult, error) {
	session, err := s.GetSession(tenantCtx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.NewValidation("sessionId", fmt.Sprintf("session %s not found", sessionID))
	}

	cfg, err := tenantCtx.FlowRepo().FindByID(tenantCtx.TenantID, session.FlowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow %s: %w", session.FlowID, err)
	}
	if cfg == nil {
		return nil, errs.NewValidation("flowId", fmt.Sprintf("flow %s not found", session.FlowID))
	}

	fieldErrors, err := session.CompleteStep(cfg, stepID, data)
	if err != nil {
		return nil, err
	}
	if len(fieldErrors) > 0 {
		return &StepResult{Session: session, FieldErrors: fieldErrors}, nil
	}

	sessionRepo := tenantCtx.SessionRepo()
	if err := sessionRepo.Update(tenantCtx.TenantID, session); err != nil {
		return nil, fmt.Errorf("failed to update session %s: %w", sessionID, err)
	}

	if err := sessionRepo.RecordStepEvent(tenantCtx.TenantID, session.ID, cfg.ID, stepID, stepEventCompleted); err != nil {
		s.logger.Flow().Error("Failed to record step event", "tenantId", tenantCtx.TenantID, "sessionId", session.ID, "error", err)
	}

	if session.Status == flow.SessionStatusCompleted {
		s.emit(tenantCtx, events.FlowCompleted, map[string]any{"sessionId": session.ID, "flowId": cfg.ID, "durationSeconds": session.Duration().Seconds()})
		s.logger.Flow().Info("Flow session completed", "tenantId", tenantCtx.TenantID, "sessionId", session.ID, "flowId", cfg.ID)
	} else {
		if err := sessionRepo.RecordStepEvent(tenantCtx.TenantID, session.ID, cfg.ID, session.CurrentStepID, stepEventEntered); err != nil {
			s.logger.Flow().Error("Failed to record step event", "tenantId", tenantCtx.TenantID, "sessionId", session.ID, "error", err)
		}
		s.emit(tenantCtx, events.FlowStepReached, map[string]any{"sessionId": session.ID, "flowId": cfg.ID, "stepId": session.CurrentStepID})
	}

	return &StepResult{Session: session}, nil
}

// Progress reports per-step and overall completion percentages.
func (s *FlowService) Progress(tenantCtx *tenant.Context, sessionID string) (map[string]any, error) {
	session, err := s.GetSession(tenantCtx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.NewValidation("sessionId", fmt.Sprintf("session %s not found", sessionID))
	}

	cfg, err := tenantCtx.FlowRepo().FindByID(tenantCtx.TenantID, session.FlowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow %s: %w", session.FlowID, err)
	}
	if cfg == nil {
		return nil, errs.NewValidation("flowId", fmt.Sprintf("flow %s not found", session.FlowID))
	}

	steps := make(map[string]float64, len(cfg.Steps))
	for _, step := range cfg.OrderedSteps() {
		progress, err := session.StepProgress(cfg, step.ID)
		if err != nil {
			continue
		}
		steps[step.ID] = progress
	}

	return map[string]any{
		"sessionId":   session.ID,
		"flowId":      session.FlowID,
		"currentStep": session.CurrentStepID,
		"status":      session.Status,
		"overall":     session.OverallProgress(cfg),
		"steps":       steps,
	}, nil
}

// AbandonSession marks a session abandoned, for explicit buyer exits.
func (s *FlowService) AbandonSession(tenantCtx *tenant.Context, sessionID string) error {
	session, err := s.GetSession(tenantCtx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return errs.NewValidation("sessionId", fmt.Sprintf("session %s not found", sessionID))
	}
	if err := session.Abandon(); err != nil {
		return err
	}
	if err := tenantCtx.SessionRepo().Update(tenantCtx.TenantID, session); err != nil {
		return fmt.Errorf("failed to update session %s: %w", sessionID, err)
	}
	return nil
}

// SweepIdleSessions abandons active sessions with no recent activity.
// Invoked by the cleanup worker.
func (s *FlowService) SweepIdleSessions(tenantCtx *tenant.Context) (int, error) {
	repo := tenantCtx.SessionRepo()
	cutoff := time.Now().UTC().Add(-config.FlowSessionTTL)

	idle, err := repo.FindIdleBefore(tenantCtx.TenantID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find idle sessions: %w", err)
	}

	swept := 0
	for _, session := range idle {
		if err := session.Abandon(); err != nil {
			continue
		}
		if err := repo.Update(tenantCtx.TenantID, session); err != nil {
			s.logger.Flow().Error("Failed to persist abandoned session", "tenantId", tenantCtx.TenantID, "sessionId", session.ID, "error", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Flow().Info("Idle session sweep completed", "tenantId", tenantCtx.TenantID, "abandoned", swept)
	}
	return swept, nil
}

func (s *FlowService) emit(tenantCtx *tenant.Context, name string, payload map[string]any) {
	event := events.New(name, tenantCtx.TenantID, payload)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Events().Error("Failed to publish event", "tenantId", tenantCtx.TenantID, "event", name, "error", err)
	}

	if s.webhooks != nil {
		go s.webhooks.Dispatch(tenantCtx, event)
	}
}
