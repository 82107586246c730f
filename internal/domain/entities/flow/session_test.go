package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeStepConfig() *Config {
	return &Config{
		ID:             "f1",
		OrganizationID: "org-1",
		Name:           "Default checkout",
		Active:         true,
		Steps: []*Step{
			{
				ID: "customer", Type: StepTypeCustomerInfo, Order: 1,
				Fields: []FieldDefinition{
					{Name: "name", Rules: []string{"required"}},
					{Name: "email", Rules: []string{"required", "email"}},
				},
			},
			{
				ID: "shipping", Type: StepTypeShipping, Order: 2,
				SkipRules: []Condition{
					{Field: "digital_only", Operator: OpEquals, Value: true},
				},
				Fields: []FieldDefinition{
					{Name: "zip", Rules: []string{"required"}},
				},
			},
			{ID: "payment", Type: StepTypePayment, Order: 3},
		},
	}
}

func TestNewSessionStartsOnFirstVisibleStep(t *testing.T) {
	cfg := threeStepConfig()
	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)

	assert.Equal(t, SessionStatusActive, session.Status)
	assert.Equal(t, "customer", session.CurrentStepID)
	assert.Empty(t, session.CompletedSteps)

	_, err = NewSession("sess-2", nil)
	assert.Error(t, err)
}

func TestSessionCompleteStepAdvances(t *testing.T) {
	cfg := threeStepConfig()
	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)

	failures, err := session.CompleteStep(cfg, "customer", map[string]interface{}{
		"name":  "Maria",
		"email": "maria@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, "shipping", session.CurrentStepID)
	assert.True(t, session.HasCompleted("customer"))
}

func TestSessionCompleteStepValidationHoldsPosition(t *testing.T) {
	cfg := threeStepConfig()
	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)

	failures, err := session.CompleteStep(cfg, "customer", map[string]interface{}{
		"name": "Maria",
	})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "email", failures[0].Field)

	assert.Equal(t, "customer", session.CurrentStepID, "session does not advance")
	assert.False(t, session.HasCompleted("customer"))
	assert.NotContains(t, session.Data, "name", "failed submissions are not merged")
}

func TestSessionSkipsStepByRule(t *testing.T) {
	cfg := threeStepConfig()
	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)

	failures, err := session.CompleteStep(cfg, "customer", map[string]interface{}{
		"name":         "Maria",
		"email":        "maria@example.com",
		"digital_only": true,
	})
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, "payment", session.CurrentStepID, "shipping is skipped for digital-only carts")
}

func TestSessionOneClickBypassesFlaggedSteps(t *testing.T) {
	cfg := threeStepConfig()
	cfg.Steps[0].OneClickOK = true
	cfg.Steps[1].OneClickOK = true

	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)
	assert.Equal(t, "customer", session.CurrentStepID, "anonymous buyers walk every step")

	session.AttachCustomer(cfg, "cust-1")
	assert.Equal(t, "cust-1", session.CustomerID)
	assert.True(t, session.OneClick)
	assert.Equal(t, "payment", session.CurrentStepID, "profile-covered steps are bypassed")

	failures, err := session.CompleteStep(cfg, "payment", nil)
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, SessionStatusCompleted, session.Status)
	assert.Equal(t, 100.0, session.OverallProgress(cfg))
}

func TestSessionOneClickLeavesUnflaggedStepsInPlace(t *testing.T) {
	cfg := threeStepConfig()
	cfg.Steps[1].OneClickOK = true

	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)
	session.AttachCustomer(cfg, "cust-1")
	assert.Equal(t, "customer", session.CurrentStepID, "steps without the flag still run")

	failures, err := session.CompleteStep(cfg, "customer", map[string]interface{}{
		"name": "Maria", "email": "maria@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, "payment", session.CurrentStepID, "shipping is covered by the stored profile")
}

func TestSessionCompletesOnLastStep(t *testing.T) {
	cfg := threeStepConfig()
	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)

	_, err = session.CompleteStep(cfg, "customer", map[string]interface{}{
		"name": "Maria", "email": "maria@example.com", "digital_only": true,
	})
	require.NoError(t, err)

	failures, err := session.CompleteStep(cfg, "payment", nil)
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, SessionStatusCompleted, session.Status)
	require.NotNil(t, session.CompletedAt)
	assert.Equal(t, 100.0, session.OverallProgress(cfg))

	_, err = session.CompleteStep(cfg, "payment", nil)
	assert.Error(t, err, "completed sessions accept no more steps")
}

func TestSessionCompleteStepUnknownStep(t *testing.T) {
	cfg := threeStepConfig()
	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)

	_, err = session.CompleteStep(cfg, "bogus", nil)
	assert.Error(t, err)
}

func TestSessionOverallProgress(t *testing.T) {
	cfg := threeStepConfig()
	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)

	assert.Equal(t, 0.0, session.OverallProgress(cfg))

	_, err = session.CompleteStep(cfg, "customer", map[string]interface{}{
		"name": "Maria", "email": "maria@example.com",
	})
	require.NoError(t, err)

	assert.InDelta(t, 33.33, session.OverallProgress(cfg), 0.01, "one of three visible steps done")
}

func TestSessionStepProgress(t *testing.T) {
	cfg := threeStepConfig()
	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)

	session.MergeData(map[string]interface{}{"name": "Maria"})

	pct, err := session.StepProgress(cfg, "customer")
	require.NoError(t, err)
	assert.Equal(t, 50.0, pct)

	_, err = session.StepProgress(cfg, "bogus")
	assert.Error(t, err)
}

func TestSessionAbandonAndExpire(t *testing.T) {
	cfg := threeStepConfig()
	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)

	require.NoError(t, session.Abandon())
	assert.Equal(t, SessionStatusAbandoned, session.Status)
	assert.Error(t, session.Abandon())

	require.NoError(t, session.Expire())
	assert.Equal(t, SessionStatusExpired, session.Status)
	assert.Error(t, session.Expire())
}

func TestSessionDurationFreezesAtCompletion(t *testing.T) {
	cfg := &Config{ID: "f1", Steps: []*Step{{ID: "only", Type: StepTypeConfirmation, Order: 1}}}
	session, err := NewSession("sess-1", cfg)
	require.NoError(t, err)

	_, err = session.CompleteStep(cfg, "only", nil)
	require.NoError(t, err)

	first := session.Duration()
	second := session.Duration()
	assert.Equal(t, first, second)
}
