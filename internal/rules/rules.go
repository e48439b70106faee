// Package rules holds the independent recommendation rules. Each rule is a
// stateless threshold evaluator over (snapshot, signature, metrics) and
// emits at most one candidate recommendation per analysis cycle. Rules never
// see each other's output; combinations are resolved by the interaction
// analyzer afterwards.
package rules

import (
	"github.com/google/uuid"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// Rule is the contract every evaluator implements. Evaluate returns nil
// when the rule does not trigger. Implementations must be side-effect free.
type Rule interface {
	ID() domain.RuleID
	Evaluate(snap domain.MetricsSnapshot, sig *domain.UserSignature, m domain.SignatureMetrics) *domain.Recommendation
}

// Fired pairs a rule identifier with the recommendation it produced, so
// downstream interaction lookups are name-based.
type Fired struct {
	Rule           domain.RuleID
	Recommendation domain.Recommendation
}

// Set is an ordered collection of active rules.
type Set struct {
	rules []Rule
}

// DefaultSet returns the full built-in rule set in canonical order.
func DefaultSet() *Set {
	return &Set{rules: []Rule{
		FatigueRule{},
		ConsistencyRule{},
		ProgressiveOverloadRule{},
		RecoveryRule{},
		MotivationRule{},
		PlateauRule{},
		StressRule{},
		SleepRule{},
	}}
}

// NewSet builds a set restricted to the rules named by a rule-set version.
// Unknown names are ignored; an empty selection falls back to the default.
func NewSet(version *domain.RuleSetVersion) *Set {
	if version == nil || len(version.ActiveRules) == 0 {
		return DefaultSet()
	}
	all := DefaultSet()
	var active []Rule
	for _, r := range all.rules {
		if version.Includes(r.ID()) {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return all
	}
	return &Set{rules: active}
}

// Rules returns the active rules in evaluation order.
func (s *Set) Rules() []Rule {
	return s.rules
}

// EvaluateAll runs every active rule and collects the triggered ones in
// evaluation order. Ties between triggered rules are resolved later, never
// here.
func (s *Set) EvaluateAll(snap domain.MetricsSnapshot, sig *domain.UserSignature, m domain.SignatureMetrics) []Fired {
	var fired []Fired
	for _, r := range s.rules {
		rec := r.Evaluate(snap, sig, m)
		if rec == nil {
			continue
		}
		rec.ID = uuid.NewString()
		rec.SourceRules = []domain.RuleID{r.ID()}
		fired = append(fired, Fired{Rule: r.ID(), Recommendation: *rec})
	}
	return fired
}

// scaleDelta personalizes an adjustment magnitude by the user's fatigue
// tolerance: low tolerance widens cuts, high tolerance softens them.
func scaleDelta(base float64, sig *domain.UserSignature) float64 {
	if base >= 0 {
		return base * (0.5 + sig.AdaptationResponsiveness)
	}
	return base * (1.5 - sig.FatigueTolerance()*0.5)
}
