package decision

import (
	"fmt"
	"sort"

	"github.com/viant/reconciler/model"
)

// Reasons produced by the default chain.
const (
	ReasonMismatch      = "Material discrepancies detected"
	ReasonPartial       = "Uncertain match requires clarification"
	ReasonLowConfidence = "Low confidence match requires review"
	ReasonClean         = "Clean match - no action required"
)

// Default rule priorities; lower runs first.
const (
	PriorityMismatch      = 100
	PriorityPartial       = 200
	PriorityLowConfidence = 300
)

// Decision is the fusion outcome for one task.
type Decision struct {
	NeedsEmail bool           `json:"needsEmail"`
	Reason     string         `json:"reason"`
	Severity   model.Severity `json:"severity"`
	RuleName   string         `json:"rule"`
}

// Outcome is what a rule proposes when it fires.
type Outcome struct {
	NeedsEmail bool
	Reason     string
	Severity   model.Severity
}

// Predicate reports whether a rule applies.
type Predicate func(result *model.MatchResult, minConfidence float64) bool

// Rule is one prioritized slot of the chain.
type Rule struct {
	Name     string
	Priority int
	When     Predicate
	Outcome  Outcome
}

// FallbackRule names the outcome used when no rule fires.
const FallbackRule = "clean"

var fallback = Outcome{NeedsEmail: false, Reason: ReasonClean, Severity: model.SeverityNone}

// DefaultRules returns the mismatch, partial and low confidence rules.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			Name:     "mismatch",
			Priority: PriorityMismatch,
			When: func(result *model.MatchResult, _ float64) bool {
				return result.Status == model.MatchStatusMismatch
			},
			Outcome: Outcome{NeedsEmail: true, Reason: ReasonMismatch, Severity: model.SeverityHigh},
		},
		{
			Name:     "partial",
			Priority: PriorityPartial,
			When: func(result *model.MatchResult, _ float64) bool {
				return result.Status == model.MatchStatusPartial
			},
			Outcome: Outcome{NeedsEmail: true, Reason: ReasonPartial, Severity: model.SeverityMedium},
		},
		{
			Name:     "low_confidence",
			Priority: PriorityLowConfidence,
			When: func(result *model.MatchResult, minConfidence float64) bool {
				return result.Confidence < minConfidence
			},
			Outcome: Outcome{NeedsEmail: true, Reason: ReasonLowConfidence, Severity: model.SeverityLow},
		},
	}
}

// Engine evaluates an ordered rule chain. It is immutable once built and
// safe for concurrent use.
type Engine struct {
	rules []*Rule
}

// Option customises an Engine.
type Option func(e *Engine)

// WithRule inserts rule at its priority.
func WithRule(rule *Rule) Option {
	return func(e *Engine) { e.rules = append(e.rules, rule) }
}

// New builds the default chain plus any extra rules. Rules without a name or
// predicate, and rules sharing a priority, are rejected.
func New(options ...Option) (*Engine, error) {
	ret := &Engine{rules: DefaultRules()}
	for _, option := range options {
		option(ret)
	}
	seen := map[int]string{}
	for _, rule := range ret.rules {
		if rule == nil || rule.Name == "" || rule.When == nil {
			return nil, fmt.Errorf("invalid decision rule: %+v", rule)
		}
		if rule.Outcome.NeedsEmail && rule.Outcome.Reason == "" {
			return nil, fmt.Errorf("rule %v: email outcome requires a reason", rule.Name)
		}
		if prev, ok := seen[rule.Priority]; ok {
			return nil, fmt.Errorf("rule %v: priority %d already taken by %v", rule.Name, rule.Priority, prev)
		}
		seen[rule.Priority] = rule.Name
	}
	sort.SliceStable(ret.rules, func(i, j int) bool { return ret.rules[i].Priority < ret.rules[j].Priority })
	return ret, nil
}

// Rules returns the chain in evaluation order.
func (e *Engine) Rules() []Rule {
	ret := make([]Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		ret = append(ret, *rule)
	}
	return ret
}

// Decide evaluates the chain; the first matching rule wins.
func (e *Engine) Decide(result *model.MatchResult, minConfidence float64) Decision {
	for _, rule := range e.rules {
		if rule.When(result, minConfidence) {
			return Decision{
				NeedsEmail: rule.Outcome.NeedsEmail,
				Reason:     rule.Outcome.Reason,
				Severity:   rule.Outcome.Severity,
				RuleName:   rule.Name,
			}
		}
	}
	return Decision{NeedsEmail: fallback.NeedsEmail, Reason: fallback.Reason, Severity: fallback.Severity, RuleName: FallbackRule}
}

var defaultEngine = &Engine{rules: DefaultRules()}

// Decide applies the default chain.
func Decide(result *model.MatchResult, minConfidence float64) Decision {
	return defaultEngine.Decide(result, minConfidence)
}
