// Package wizard implements the linear multi-step form state machine behind
// the sign-up, onboarding, and baseline-calculator flows. The machine is an
// explicit FSM: one transition function per user action, no rendering
// concerns, one instance per in-flight interaction (no locking needed).
package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// FieldRule describes one validation constraint for a step field. Zero-value
// members are unset; only the configured checks run.
type FieldRule struct {
	Name       string
	Required   bool
	MinLen     int
	MatchField string   // value must equal this other field (e.g. password confirmation)
	Numeric    bool
	Min        *float64 // requires Numeric
	Max        *float64 // requires Numeric
	OneOf      []string
}

// Step is one ordered wizard step with its field rules.
type Step struct {
	Name  string
	Rules []FieldRule
}

// ValidationError names the specific field and rule a step submission
// violated. It is local and recoverable: the machine stays on the step.
type ValidationError struct {
	Step    string
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %q field %q: %s", e.Step, e.Field, e.Message)
}

// Machine drives validated progression through ordered steps. Back-navigation
// never discards entered data, so returning forward finds fields pre-filled.
type Machine struct {
	steps     []Step
	current   int
	submitted bool
	stepData  []map[string]string
	validated map[int]bool
}

// New creates a machine at step 0 with empty data.
func New(steps []Step) (*Machine, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("wizard requires at least one step")
	}

	return &Machine{
		steps:     steps,
		stepData:  make([]map[string]string, len(steps)),
		validated: make(map[int]bool),
	}, nil
}

// Current returns the index of the active step.
func (m *Machine) Current() int {
	return m.current
}

// Submitted reports whether the machine reached its terminal state.
func (m *Machine) Submitted() bool {
	return m.submitted
}

// Steps returns the step definitions.
func (m *Machine) Steps() []Step {
	return m.steps
}

// StepData returns a copy of the retained data for step i, or nil if none.
func (m *Machine) StepData(i int) map[string]string {
	if i < 0 || i >= len(m.stepData) || m.stepData[i] == nil {
		return nil
	}
	out := make(map[string]string, len(m.stepData[i]))
	for k, v := range m.stepData[i] {
		out[k] = v
	}
	return out
}

// Validate checks data against step i's rules without changing state. On
// failure the returned error names the violated field and rule.
func (m *Machine) Validate(i int, data map[string]string) error {
	if i < 0 || i >= len(m.steps) {
		return fmt.Errorf("step index %d out of range", i)
	}

	step := m.steps[i]
	for _, rule := range step.Rules {
		if err := checkRule(step.Name, rule, data); err != nil {
			return err
		}
	}
	return nil
}

// Advance validates the current step and, on success, stores its data and
// moves to the next step. On the last step Finalize must be used instead;
// Advance there is a caller bug.
func (m *Machine) Advance(data map[string]string) error {
	if m.submitted {
		return fmt.Errorf("wizard already submitted")
	}
	if m.current == len(m.steps)-1 {
		return fmt.Errorf("last step %q requires finalize", m.steps[m.current].Name)
	}

	if err := m.Validate(m.current, data); err != nil {
		return err
	}

	m.store(m.current, data)
	m.validated[m.current] = true
	m.current++
	return nil
}

// Retreat moves back one step. It never validates and never discards data
// entered in the step being left.
func (m *Machine) Retreat() {
	if m.submitted || m.current == 0 {
		return
	}
	m.current--
}

// Finalize validates the last step, bundles the union of all steps' fields
// into a single payload, and hands it to persist. The machine transitions to
// Submitted only when persist returns nil; on error it stays at the last
// step with all data intact, and the caller resubmits manually. There is no
// automatic retry.
func (m *Machine) Finalize(ctx context.Context, data map[string]string, persist func(context.Context, map[string]string) error) error {
	if m.submitted {
		return fmt.Errorf("wizard already submitted")
	}

	last := len(m.steps) - 1
	if m.current != last {
		return fmt.Errorf("finalize is only valid at step %d, currently at %d", last, m.current)
	}

	if err := m.Validate(last, data); err != nil {
		return err
	}

	m.store(last, data)
	m.validated[last] = true

	if persist != nil {
		if err := persist(ctx, m.Payload()); err != nil {
			return err
		}
	}

	m.submitted = true
	return nil
}

// Payload returns the union of all stored steps' fields. Later steps win on
// key collisions.
func (m *Machine) Payload() map[string]string {
	payload := make(map[string]string)
	for _, data := range m.stepData {
		for k, v := range data {
			payload[k] = v
		}
	}
	return payload
}

func (m *Machine) store(i int, data map[string]string) {
	stored := make(map[string]string, len(data))
	for k, v := range data {
		stored[k] = v
	}
	m.stepData[i] = stored
}

func checkRule(stepName string, rule FieldRule, data map[string]string) error {
	value, present := data[rule.Name]
	value = strings.TrimSpace(value)

	if rule.Required && (!present || value == "") {
		return &ValidationError{
			Step:    stepName,
			Field:   rule.Name,
			Rule:    "required",
			Message: fmt.Sprintf("%s is required", rule.Name),
		}
	}

	// Remaining checks only apply to provided values.
	if value == "" {
		return nil
	}

	if rule.MinLen > 0 && len(value) < rule.MinLen {
		return &ValidationError{
			Step:    stepName,
			Field:   rule.Name,
			Rule:    "min_length",
			Message: fmt.Sprintf("%s must be at least %d characters", rule.Name, rule.MinLen),
		}
	}

	if rule.MatchField != "" && value != strings.TrimSpace(data[rule.MatchField]) {
		return &ValidationError{
			Step:    stepName,
			Field:   rule.Name,
			Rule:    "match",
			Message: fmt.Sprintf("%s must match %s", rule.Name, rule.MatchField),
		}
	}

	if rule.Numeric {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &ValidationError{
				Step:    stepName,
				Field:   rule.Name,
				Rule:    "numeric",
				Message: fmt.Sprintf("%s must be a number", rule.Name),
			}
		}
		if rule.Min != nil && n < *rule.Min {
			return &ValidationError{
				Step:    stepName,
				Field:   rule.Name,
				Rule:    "min",
				Message: fmt.Sprintf("%s must be at least %v", rule.Name, *rule.Min),
			}
		}
		if rule.Max != nil && n > *rule.Max {
			return &ValidationError{
				Step:    stepName,
				Field:   rule.Name,
				Rule:    "max",
				Message: fmt.Sprintf("%s must be at most %v", rule.Name, *rule.Max),
			}
		}
	}

	if len(rule.OneOf) > 0 {
		ok := false
		for _, allowed := range rule.OneOf {
			if value == allowed {
				ok = true
				break
			}
		}
		if !ok {
			return &ValidationError{
				Step:    stepName,
				Field:   rule.Name,
				Rule:    "one_of",
				Message: fmt.Sprintf("%s must be one of: %s", rule.Name, strings.Join(rule.OneOf, ", ")),
			}
		}
	}

	return nil
}
