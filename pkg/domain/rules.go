package domain

import "context"

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock aborts the transplant transaction.
	SeverityBlock Severity = "block"
	// SeverityWarn is logged but allows commit.
	SeverityWarn Severity = "warn"
)

// Violation is a single rule finding.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Table    string
	Key      string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if any violation blocks commit.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Blocking returns the blocking violations only.
func (r Result) Blocking() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// Rule defines an evaluation executed inside the transplant transaction,
// after all writes and before commit.
type Rule[V any] interface {
	Name() string
	Evaluate(ctx context.Context, view V) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine[V any] struct {
	rules []Rule[V]
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine[V any]() *RulesEngine[V] {
	return &RulesEngine[V]{}
}

// Register appends a rule to the engine.
func (e *RulesEngine[V]) Register(rule Rule[V]) {
	e.rules = append(e.rules, rule)
}

// Rules lists registered rules in registration order.
func (e *RulesEngine[V]) Rules() []Rule[V] {
	out := make([]Rule[V], len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine[V]) Evaluate(ctx context.Context, view V) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
