package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionEvaluate(t *testing.T) {
	data := map[string]interface{}{
		"country":  "BR",
		"total":    150.0,
		"quantity": "3",
		"note":     "gift wrap please",
	}

	assert.True(t, Condition{Field: "country", Operator: OpEquals, Value: "BR"}.Evaluate(data))
	assert.False(t, Condition{Field: "country", Operator: OpEquals, Value: "US"}.Evaluate(data))

	assert.True(t, Condition{Field: "country", Operator: OpNotEquals, Value: "US"}.Evaluate(data))
	assert.True(t, Condition{Field: "note", Operator: OpContains, Value: "gift"}.Evaluate(data))
	assert.False(t, Condition{Field: "note", Operator: OpContains, Value: "rush"}.Evaluate(data))

	assert.True(t, Condition{Field: "total", Operator: OpGreaterThan, Value: 100}.Evaluate(data))
	assert.False(t, Condition{Field: "total", Operator: OpLessThan, Value: 100}.Evaluate(data))
	assert.True(t, Condition{Field: "quantity", Operator: OpLessThan, Value: 5}.Evaluate(data),
		"numeric strings coerce for comparisons")

	assert.True(t, Condition{Field: "country", Operator: OpExists}.Evaluate(data))
	assert.False(t, Condition{Field: "missing", Operator: OpExists}.Evaluate(data))
	assert.True(t, Condition{Field: "missing", Operator: OpNotExists}.Evaluate(data))
}

func TestConditionMissingFieldAndBadOperator(t *testing.T) {
	data := map[string]interface{}{"note": "abc"}

	assert.False(t, Condition{Field: "missing", Operator: OpEquals, Value: "x"}.Evaluate(data))
	assert.False(t, Condition{Field: "missing", Operator: OpGreaterThan, Value: 1}.Evaluate(data))
	assert.False(t, Condition{Field: "note", Operator: OpGreaterThan, Value: 1}.Evaluate(data),
		"non-numeric value never compares")
	assert.False(t, Condition{Field: "note", Operator: "between", Value: 1}.Evaluate(data),
		"unknown operator is false")
}

func TestStepShouldSkip(t *testing.T) {
	step := &Step{
		ID:   "shipping",
		Type: StepTypeShipping,
		SkipRules: []Condition{
			{Field: "digital_only", Operator: OpEquals, Value: true},
		},
		ShowRules: []Condition{
			{Field: "country", Operator: OpExists},
		},
	}

	assert.True(t, step.ShouldSkip(map[string]interface{}{"digital_only": true, "country": "BR"}),
		"matching skip rule skips")
	assert.True(t, step.ShouldSkip(map[string]interface{}{"digital_only": false}),
		"failing show rule skips")
	assert.False(t, step.ShouldSkip(map[string]interface{}{"digital_only": false, "country": "BR"}))
}

func TestStepValidateDataAccumulatesErrors(t *testing.T) {
	step := &Step{
		ID:   "customer",
		Type: StepTypeCustomerInfo,
		Fields: []FieldDefinition{
			{Name: "name", Rules: []string{"required", "min_length:2"}},
			{Name: "email", Rules: []string{"required", "email"}},
			{Name: "age", Rules: []string{"numeric"}},
		},
	}

	failures := step.ValidateData(map[string]interface{}{
		"email": "not-an-email",
		"age":   "abc",
	})
	require.Len(t, failures, 3)

	fields := make([]string, 0, len(failures))
	for _, f := range failures {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"name", "email", "age"}, fields)
}

func TestStepValidateDataRules(t *testing.T) {
	step := &Step{
		ID:   "form",
		Type: StepTypeForm,
		Fields: []FieldDefinition{
			{Name: "nickname", Rules: []string{"min_length:3", "max_length:5"}},
		},
	}

	assert.Empty(t, step.ValidateData(map[string]interface{}{"nickname": "abc"}))
	assert.Empty(t, step.ValidateData(map[string]interface{}{}),
		"optional field may be absent")
	assert.Len(t, step.ValidateData(map[string]interface{}{"nickname": "ab"}), 1)
	assert.Len(t, step.ValidateData(map[string]interface{}{"nickname": "abcdef"}), 1)
}

func TestStepValidateDataRequiredFlag(t *testing.T) {
	step := &Step{
		ID:   "form",
		Type: StepTypeForm,
		Fields: []FieldDefinition{
			{Name: "cpf", Required: true},
		},
	}

	failures := step.ValidateData(map[string]interface{}{})
	require.Len(t, failures, 1)
	assert.Equal(t, "cpf", failures[0].Field)

	assert.Empty(t, step.ValidateData(map[string]interface{}{"cpf": "52998224725"}))
}

func TestStepProgress(t *testing.T) {
	step := &Step{
		ID:   "customer",
		Type: StepTypeCustomerInfo,
		Fields: []FieldDefinition{
			{Name: "name"},
			{Name: "email"},
		},
	}

	assert.Equal(t, 100.0, step.Progress(nil, true), "completed is always 100")
	assert.Equal(t, 0.0, step.Progress(map[string]interface{}{}, false))
	assert.Equal(t, 50.0, step.Progress(map[string]interface{}{"name": "Maria"}, false))
	assert.Equal(t, 50.0, step.Progress(map[string]interface{}{"name": "Maria", "email": "  "}, false),
		"blank values do not count as filled")

	bare := &Step{ID: "review", Type: StepTypeReview}
	assert.Equal(t, 0.0, bare.Progress(map[string]interface{}{"anything": 1}, false),
		"field-less step stays 0 until completed")
	assert.Equal(t, 100.0, bare.Progress(nil, true))
}

func TestConfigValidate(t *testing.T) {
	valid := &Config{
		ID:   "f1",
		Name: "Default",
		Steps: []*Step{
			{ID: "s1", Type: StepTypeCustomerInfo, Order: 1},
			{ID: "s2", Type: StepTypePayment, Order: 2},
		},
	}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&Config{ID: "f2"}).Validate(), "no steps")

	dup := &Config{Steps: []*Step{
		{ID: "s1", Type: StepTypeForm},
		{ID: "s1", Type: StepTypePayment},
	}}
	assert.Error(t, dup.Validate(), "duplicate step ids")

	unknown := &Config{Steps: []*Step{{ID: "s1", Type: "quiz"}}}
	assert.Error(t, unknown.Validate())

	unnamed := &Config{Steps: []*Step{{Type: StepTypeForm}}}
	assert.Error(t, unnamed.Validate(), "step without id")
}

func TestConfigOrderedStepsAndLookup(t *testing.T) {
	cfg := &Config{Steps: []*Step{
		{ID: "payment", Type: StepTypePayment, Order: 3},
		{ID: "customer", Type: StepTypeCustomerInfo, Order: 1},
		{ID: "shipping", Type: StepTypeShipping, Order: 2},
	}}

	ordered := cfg.OrderedSteps()
	assert.Equal(t, "customer", ordered[0].ID)
	assert.Equal(t, "shipping", ordered[1].ID)
	assert.Equal(t, "payment", ordered[2].ID)

	assert.NotNil(t, cfg.StepByID("shipping"))
	assert.Nil(t, cfg.StepByID("nope"))
}
