// Package interaction detects co-occurring rule triggers and promotes or
// merges them into compound strategies via a static interaction table.
package interaction

import "github.com/pulseplan/pulseplan/internal/domain"

// Kind describes how an applicable interaction reshapes the candidate list.
type Kind string

const (
	KindAmplify  Kind = "amplify"  // escalate the constituents' priority
	KindSuppress Kind = "suppress" // demote the constituents' priority
	KindRedirect Kind = "redirect" // retag the lead constituent with the strategy
	KindMerge    Kind = "merge"    // replace constituents with one compound recommendation
)

// Interaction is one static table entry. Rules is matched as a set against
// the rules that fired this cycle, order-independent.
type Interaction struct {
	Rules              []domain.RuleID
	Kind               Kind
	Strategy           string
	PriorityMultiplier float64
}

// matches reports whether every rule in the entry fired this cycle.
func (i Interaction) matches(fired map[domain.RuleID]bool) bool {
	for _, r := range i.Rules {
		if !fired[r] {
			return false
		}
	}
	return true
}

// DefaultTable is the built-in interaction reference data, read-only.
// Declaration order matters only as a tie-break between entries of equal
// specificity; resolution itself is most-specific-wins.
func DefaultTable() []Interaction {
	return []Interaction{
		{
			Rules:              []domain.RuleID{domain.RuleFatigue, domain.RuleStress},
			Kind:               KindMerge,
			Strategy:           "comprehensive_recovery_protocol",
			PriorityMultiplier: 1.5,
		},
		{
			Rules:              []domain.RuleID{domain.RuleFatigue, domain.RuleSleep},
			Kind:               KindAmplify,
			Strategy:           "sleep_first_recovery",
			PriorityMultiplier: 1.3,
		},
		{
			Rules:              []domain.RuleID{domain.RuleFatigue, domain.RuleStress, domain.RuleSleep},
			Kind:               KindMerge,
			Strategy:           "full_deload_week",
			PriorityMultiplier: 1.6,
		},
		{
			Rules:              []domain.RuleID{domain.RuleMotivation, domain.RulePlateau},
			Kind:               KindMerge,
			Strategy:           "novelty_reset",
			PriorityMultiplier: 1.25,
		},
		{
			Rules:              []domain.RuleID{domain.RuleConsistency, domain.RuleMotivation},
			Kind:               KindRedirect,
			Strategy:           "habit_rebuild",
			PriorityMultiplier: 1.2,
		},
		{
			Rules:              []domain.RuleID{domain.RuleProgressiveOverload, domain.RulePlateau},
			Kind:               KindSuppress,
			Strategy:           "hold_progression",
			PriorityMultiplier: 0.8,
		},
	}
}
