package flow

import (
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/errs"
)

// SessionStatus tracks a buyer's journey through a flow.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
	SessionStatusExpired   SessionStatus = "expired"
)

// Session is one buyer's navigation state within a flow: the current step,
// everything collected so far, and which steps have been completed.
type Session struct {
	ID             string                 `json:"id"`
	FlowID         string                 `json:"flowId"`
	OrganizationID string                 `json:"organizationId"`
	CartID         string                 `json:"cartId,omitempty"`
	CustomerID     string                 `json:"customerId,omitempty"`
	OneClick       bool                   `json:"oneClick,omitempty"`
	CurrentStepID  string                 `json:"currentStepId"`
	Data           map[string]interface{} `json:"data"`
	CompletedSteps []string               `json:"completedSteps"`
	Status         SessionStatus          `json:"status"`
	StartedAt      time.Time              `json:"startedAt"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
	LastActivityAt time.Time              `json:"lastActivityAt"`
}

// NewSession starts a session on a flow's first visible step.
func NewSession(id string, cfg *Config) (*Session, error) {
	if cfg == nil {
		return nil, errs.NewValidation("flow", "flow config is required")
	}
	steps := cfg.OrderedSteps()
	if len(steps) == 0 {
		return nil, errs.NewValidation("flow", "flow has no steps")
	}

	now := time.Now().UTC()
	s := &Session{
		ID:             id,
		FlowID:         cfg.ID,
		OrganizationID: cfg.OrganizationID,
		Data:           make(map[string]interface{}),
		CompletedSteps: make([]string, 0),
		Status:         SessionStatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}
	s.CurrentStepID = s.firstVisibleStep(steps)
	return s, nil
}

// AttachCustomer binds a returning customer to the session. Steps flagged
// oneClickOk collect data the customer's stored profile already holds, so
// they are bypassed from here on.
func (s *Session) AttachCustomer(cfg *Config, customerID string) {
	s.CustomerID = customerID
	s.OneClick = true
	if len(s.CompletedSteps) == 0 {
		s.CurrentStepID = s.firstVisibleStep(cfg.OrderedSteps())
	}
}

func (s *Session) firstVisibleStep(steps []*Step) string {
	for _, step := range steps {
		if !s.stepSkipped(step) {
			return step.ID
		}
	}
	if len(steps) > 0 {
		return steps[len(steps)-1].ID
	}
	return ""
}

func (s *Session) stepSkipped(step *Step) bool {
	if s.OneClick && step.OneClickOK {
		return true
	}
	return step.ShouldSkip(s.Data)
}

// MergeData folds newly collected values into the session data.
func (s *Session) MergeData(data map[string]interface{}) {
	for key, value := range data {
		s.Data[key] = value
	}
	s.LastActivityAt = time.Now().UTC()
}

// HasCompleted reports whether the given step was already completed.
func (s *Session) HasCompleted(stepID string) bool {
	for _, id := range s.CompletedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// CompleteStep validates the current step's data, records completion, and
// advances to the next visible step. When no step remains the session
// completes. Validation failures are returned in full; nothing advances.
func (s *Session) CompleteStep(cfg *Config, stepID string, data map[string]interface{}) ([]errs.ValidationError, error) {
	if s.Status != SessionStatusActive {
		return nil, errs.NewValidation("status", "session is no longer active")
	}
	step := cfg.StepByID(stepID)
	if step == nil {
		return nil, errs.NewValidation("stepId", "unknown step")
	}

	merged := make(map[string]interface{}, len(s.Data)+len(data))
	for key, value := range s.Data {
		merged[key] = value
	}
	for key, value := range data {
		merged[key] = value
	}

	if failures := step.ValidateData(merged); len(failures) > 0 {
		return failures, nil
	}

	s.MergeData(data)
	if !s.HasCompleted(stepID) {
		s.CompletedSteps = append(s.CompletedSteps, stepID)
	}

	next := s.nextVisibleStep(cfg, step)
	if next == nil {
		now := time.Now().UTC()
		s.Status = SessionStatusCompleted
		s.CompletedAt = &now
		s.CurrentStepID = stepID
		return nil, nil
	}
	s.CurrentStepID = next.ID
	return nil, nil
}

func (s *Session) nextVisibleStep(cfg *Config, after *Step) *Step {
	for _, step := range cfg.OrderedSteps() {
		if step.Order <= after.Order && step.ID != after.ID {
			continue
		}
		if step.ID == after.ID {
			continue
		}
		if s.HasCompleted(step.ID) || s.stepSkipped(step) {
			continue
		}
		return step
	}
	return nil
}

// StepProgress reports the buyer's progress on a step in percent.
func (s *Session) StepProgress(cfg *Config, stepID string) (float64, error) {
	step := cfg.StepByID(stepID)
	if step == nil {
		return 0, errs.NewValidation("stepId", "unknown step")
	}
	return step.Progress(s.Data, s.HasCompleted(stepID)), nil
}

// OverallProgress is the share of visible steps completed, in percent.
func (s *Session) OverallProgress(cfg *Config) float64 {
	visible := 0
	done := 0
	for _, step := range cfg.OrderedSteps() {
		if s.stepSkipped(step) && !s.HasCompleted(step.ID) {
			continue
		}
		visible++
		if s.HasCompleted(step.ID) {
			done++
		}
	}
	if s.Status == SessionStatusCompleted {
		return 100
	}
	if visible == 0 {
		return 0
	}
	return float64(done) / float64(visible) * 100
}

// Abandon marks an active session abandoned.
func (s *Session) Abandon() error {
	if s.Status != SessionStatusActive {
		return errs.NewValidation("status", "only active sessions can be abandoned")
	}
	s.Status = SessionStatusAbandoned
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// Expire marks an active or abandoned session expired.
func (s *Session) Expire() error {
	if s.Status != SessionStatusActive && s.Status != SessionStatusAbandoned {
		return errs.NewValidation("status", "session cannot expire from its current status")
	}
	s.Status = SessionStatusExpired
	return nil
}

// Duration is the elapsed session time, frozen at completion.
func (s *Session) Duration() time.Duration {
	if s.CompletedAt != nil {
		return s.CompletedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}
