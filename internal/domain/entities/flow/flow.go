package flow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/clubifyhq/checkout-go/internal/domain/errs"
)

// StepType identifies what a flow step renders and collects.
type StepType string

const (
	StepTypeForm             StepType = "form"
	StepTypeCustomerInfo     StepType = "customer_info"
	StepTypeProductSelection StepType = "product_selection"
	StepTypeShipping         StepType = "shipping"
	StepTypePayment          StepType = "payment"
	StepTypeReview           StepType = "review"
	StepTypeConfirmation     StepType = "confirmation"
)

// Condition operators for step skip/show rules.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpExists      = "exists"
	OpNotExists   = "not_exists"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldDefinition declares one collected field on a step. Rules use a small
// string DSL: required, email, numeric, min_length:N, max_length:N.
type FieldDefinition struct {
	Name     string   `json:"name"`
	Label    string   `json:"label,omitempty"`
	Type     string   `json:"type,omitempty"`
	Required bool     `json:"required,omitempty"`
	Rules    []string `json:"rules,omitempty"`
}

// Condition is a single-level predicate over session data. Conditions never
// nest; a step carries a list of them combined with AND.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}

// Evaluate resolves the condition against collected session data. A missing
// field satisfies only not_exists; comparison operators on a missing or
// non-comparable value are false rather than an error.
func (c Condition) Evaluate(data map[string]interface{}) bool {
	value, present := data[c.Field]

	switch c.Operator {
	case OpExists:
		return present
	case OpNotExists:
		return !present
	}
	if !present {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return fmt.Sprintf("%v", value) == fmt.Sprintf("%v", c.Value)
	case OpNotEquals:
		return fmt.Sprintf("%v", value) != fmt.Sprintf("%v", c.Value)
	case OpContains:
		return strings.Contains(fmt.Sprintf("%v", value), fmt.Sprintf("%v", c.Value))
	case OpGreaterThan:
		left, leftOK := toFloat(value)
		right, rightOK := toFloat(c.Value)
		return leftOK && rightOK && left > right
	case OpLessThan:
		left, leftOK := toFloat(value)
		right, rightOK := toFloat(c.Value)
		return leftOK && rightOK && left < right
	default:
		return false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Step is one screen in a checkout flow.
type Step struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       StepType          `json:"type"`
	Order      int               `json:"order"`
	Fields     []FieldDefinition `json:"fields,omitempty"`
	SkipRules  []Condition       `json:"skipRules,omitempty"`
	ShowRules  []Condition       `json:"showRules,omitempty"`
	Optional   bool              `json:"optional,omitempty"`
	OneClickOK bool              `json:"oneClickOk,omitempty"`
}

// ShouldSkip reports whether the step is skipped for the given session data:
// any skip rule matching, or any show rule failing, skips the step.
func (s *Step) ShouldSkip(data map[string]interface{}) bool {
	for _, rule := range s.SkipRules {
		if rule.Evaluate(data) {
			return true
		}
	}
	for _, rule := range s.ShowRules {
		if !rule.Evaluate(data) {
			return true
		}
	}
	return false
}

// ValidateData checks collected data against every field's rules. All rules
// for all fields are evaluated; errors accumulate rather than short-circuit.
func (s *Step) ValidateData(data map[string]interface{}) []errs.ValidationError {
	var failures []errs.ValidationError

	for _, field := range s.Fields {
		raw, present := data[field.Name]
		value := ""
		if present {
			value = strings.TrimSpace(fmt.Sprintf("%v", raw))
		}

		rules := field.Rules
		if field.Required && !containsRule(rules, "required") {
			rules = append([]string{"required"}, rules...)
		}

		for _, rule := range rules {
			if failure := applyRule(field.Name, rule, value, present); failure != nil {
				failures = append(failures, *failure)
			}
		}
	}
	return failures
}

func containsRule(rules []string, name string) bool {
	for _, r := range rules {
		if r == name || strings.HasPrefix(r, name+":") {
			return true
		}
	}
	return false
}

func applyRule(field, rule, value string, present bool) *errs.ValidationError {
	name := rule
	arg := ""
	if idx := strings.IndexByte(rule, ':'); idx >= 0 {
		name, arg = rule[:idx], rule[idx+1:]
	}

	empty := !present || value == ""

	switch name {
	case "required":
		if empty {
			return &errs.ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
		}
	case "email":
		if !empty && !emailPattern.MatchString(value) {
			return &errs.ValidationError{Field: field, Message: fmt.Sprintf("%s must be a valid email", field)}
		}
	case "numeric":
		if !empty {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return &errs.ValidationError{Field: field, Message: fmt.Sprintf("%s must be numeric", field)}
			}
		}
	case "min_length":
		min, err := strconv.Atoi(arg)
		if err == nil && !empty && len([]rune(value)) < min {
			return &errs.ValidationError{Field: field, Message: fmt.Sprintf("%s must be at least %d characters", field, min)}
		}
	case "max_length":
		max, err := strconv.Atoi(arg)
		if err == nil && !empty && len([]rune(value)) > max {
			return &errs.ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, max)}
		}
	}
	return nil
}

// Progress reports how far through a step the buyer is: a completed step is
// always 100, a step with no fields is 0 until completed, otherwise the
// filled-field percentage rounded to two decimals.
func (s *Step) Progress(data map[string]interface{}, completed bool) float64 {
	if completed {
		return 100
	}
	if len(s.Fields) == 0 {
		return 0
	}
	filled := 0
	for _, field := range s.Fields {
		raw, present := data[field.Name]
		if present && strings.TrimSpace(fmt.Sprintf("%v", raw)) != "" {
			filled++
		}
	}
	pct := float64(filled) / float64(len(s.Fields)) * 100
	return float64(int(pct*100+0.5)) / 100
}

// Config is a tenant's checkout flow definition: an ordered sequence of steps.
type Config struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	OfferID        string    `json:"offerId,omitempty"`
	Name           string    `json:"name"`
	Steps          []*Step   `json:"steps"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Validate checks structural sanity: at least one step, unique ids, known
// step types.
func (c *Config) Validate() error {
	if len(c.Steps) == 0 {
		return errs.NewValidation("steps", "a flow needs at least one step")
	}
	seen := make(map[string]bool, len(c.Steps))
	for _, step := range c.Steps {
		if step.ID == "" {
			return errs.NewValidation("steps", "every step needs an id")
		}
		if seen[step.ID] {
			return errs.NewValidation("steps", fmt.Sprintf("duplicate step id %q", step.ID))
		}
		seen[step.ID] = true
		switch step.Type {
		case StepTypeForm, StepTypeCustomerInfo, StepTypeProductSelection,
			StepTypeShipping, StepTypePayment, StepTypeReview, StepTypeConfirmation:
		default:
			return errs.NewValidation("steps", fmt.Sprintf("unknown step type %q", step.Type))
		}
	}
	return nil
}

// OrderedSteps returns steps sorted by their declared order.
func (c *Config) OrderedSteps() []*Step {
	steps := make([]*Step, len(c.Steps))
	copy(steps, c.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	return steps
}

// StepByID returns the step with the given id, or nil.
func (c *Config) StepByID(id string) *Step {
	for _, step := range c.Steps {
		if step.ID == id {
			return step
		}
	}
	return nil
}
