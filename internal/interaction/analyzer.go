package interaction

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pulseplan/pulseplan/internal/domain"
	"github.com/pulseplan/pulseplan/internal/rules"
)

// Analyzer applies the interaction table to the rules that fired in one
// analysis cycle.
//
// Resolution policy: when several interactions are applicable, the entry
// requiring the largest rule set wins (most-specific-wins); declaration
// order breaks ties between entries of equal size.
type Analyzer struct {
	table []Interaction
}

// NewAnalyzer builds an analyzer over the given table; nil selects the
// built-in default table.
func NewAnalyzer(table []Interaction) *Analyzer {
	if table == nil {
		table = DefaultTable()
	}
	return &Analyzer{table: table}
}

// Applied reports the interaction that won this cycle.
type Applied struct {
	Strategy           string          `json:"strategy"`
	Kind               Kind            `json:"kind"`
	Rules              []domain.RuleID `json:"rules"`
	PriorityMultiplier float64         `json:"priority_multiplier"`
}

// Apply consults the table against the fired rules and returns the reshaped
// candidate list. With no applicable interaction the recommendations pass
// through unchanged and Applied is nil.
func (a *Analyzer) Apply(fired []rules.Fired) ([]domain.Recommendation, *Applied) {
	recs := make([]domain.Recommendation, 0, len(fired))
	for _, f := range fired {
		recs = append(recs, f.Recommendation.Clone())
	}

	firedSet := make(map[domain.RuleID]bool, len(fired))
	for _, f := range fired {
		firedSet[f.Rule] = true
	}

	winner := a.selectWinner(firedSet)
	if winner == nil {
		return recs, nil
	}

	applied := &Applied{
		Strategy:           winner.Strategy,
		Kind:               winner.Kind,
		Rules:              append([]domain.RuleID(nil), winner.Rules...),
		PriorityMultiplier: winner.PriorityMultiplier,
	}

	log.Debug().
		Str("strategy", winner.Strategy).
		Str("kind", string(winner.Kind)).
		Float64("multiplier", winner.PriorityMultiplier).
		Msg("rule interaction applied")

	switch winner.Kind {
	case KindMerge:
		return a.merge(recs, *winner), applied
	case KindAmplify:
		return reprioritize(recs, *winner, true), applied
	case KindSuppress:
		return reprioritize(recs, *winner, false), applied
	case KindRedirect:
		return redirect(recs, *winner), applied
	default:
		return recs, applied
	}
}

// selectWinner returns the most specific applicable entry, or nil.
func (a *Analyzer) selectWinner(fired map[domain.RuleID]bool) *Interaction {
	var winner *Interaction
	for i := range a.table {
		entry := &a.table[i]
		if !entry.matches(fired) {
			continue
		}
		if winner == nil || len(entry.Rules) > len(winner.Rules) {
			winner = entry
		}
	}
	return winner
}

// merge replaces the constituent recommendations with a single compound
// recommendation carrying the interaction's strategy.
func (a *Analyzer) merge(recs []domain.Recommendation, entry Interaction) []domain.Recommendation {
	constituents, rest := partition(recs, entry.Rules)
	if len(constituents) == 0 {
		return recs
	}

	lead := constituents[0]
	for _, r := range constituents[1:] {
		if r.Priority > lead.Priority {
			lead = r
		}
	}

	merged := domain.Recommendation{
		ID:           uuid.NewString(),
		Type:         lead.Type,
		Priority:     compoundPriority(constituents, entry.PriorityMultiplier),
		Adjustments:  mergeAdjustments(constituents),
		DurationDays: maxDuration(constituents),
		Strategy:     entry.Strategy,
		Reason:       mergedReason(constituents),
		Explanation:  fmt.Sprintf("Multiple signals point the same direction, so they are handled as one combined strategy (%s) instead of separate partial fixes.", entry.Strategy),
		SourceRules:  ruleUnion(constituents),
	}

	return append([]domain.Recommendation{merged}, rest...)
}

func reprioritize(recs []domain.Recommendation, entry Interaction, up bool) []domain.Recommendation {
	members := ruleIDSet(entry.Rules)
	for i := range recs {
		if !touchesAny(recs[i], members) {
			continue
		}
		if up {
			recs[i].Priority = recs[i].Priority.Promote()
		} else {
			recs[i].Priority = recs[i].Priority.Demote()
		}
		recs[i].Strategy = entry.Strategy
	}
	return recs
}

// redirect retags the highest-priority constituent with the compound
// strategy without changing magnitudes.
func redirect(recs []domain.Recommendation, entry Interaction) []domain.Recommendation {
	members := ruleIDSet(entry.Rules)
	best := -1
	for i := range recs {
		if !touchesAny(recs[i], members) {
			continue
		}
		if best < 0 || recs[i].Priority > recs[best].Priority {
			best = i
		}
	}
	if best >= 0 {
		recs[best].Strategy = entry.Strategy
		recs[best].Reason = fmt.Sprintf("%s (redirected to %s)", recs[best].Reason, entry.Strategy)
	}
	return recs
}

// compoundPriority escalates the merged priority by the interaction
// multiplier: >=1.5 forces critical, >=1.2 promotes one level.
func compoundPriority(constituents []domain.Recommendation, multiplier float64) domain.Priority {
	p := domain.PriorityLow
	for _, r := range constituents {
		if r.Priority > p {
			p = r.Priority
		}
	}
	if multiplier >= 1.5 {
		return domain.PriorityCritical
	}
	if multiplier >= 1.2 {
		return p.Promote()
	}
	return p
}

// mergeAdjustments folds constituent adjustments per target, keeping the
// largest-magnitude delta so the compound is never weaker than its parts.
func mergeAdjustments(constituents []domain.Recommendation) []domain.Adjustment {
	byTarget := make(map[string]float64)
	var order []string
	for _, r := range constituents {
		for _, adj := range r.Adjustments {
			cur, seen := byTarget[target(adj)]
			if !seen {
				order = append(order, target(adj))
				byTarget[target(adj)] = adj.Delta
				continue
			}
			if abs(adj.Delta) > abs(cur) {
				byTarget[target(adj)] = adj.Delta
			}
		}
	}
	out := make([]domain.Adjustment, 0, len(order))
	for _, t := range order {
		out = append(out, domain.Adjustment{Target: t, Delta: byTarget[t]})
	}
	return out
}

func target(a domain.Adjustment) string { return a.Target }

func mergedReason(constituents []domain.Recommendation) string {
	parts := make([]string, 0, len(constituents))
	for _, r := range constituents {
		parts = append(parts, r.Reason)
	}
	return strings.Join(parts, "; ")
}

func maxDuration(constituents []domain.Recommendation) int {
	max := 0
	for _, r := range constituents {
		if r.DurationDays > max {
			max = r.DurationDays
		}
	}
	return max
}

func ruleUnion(constituents []domain.Recommendation) []domain.RuleID {
	seen := make(map[domain.RuleID]bool)
	var out []domain.RuleID
	for _, r := range constituents {
		for _, id := range r.SourceRules {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func partition(recs []domain.Recommendation, members []domain.RuleID) (in, out []domain.Recommendation) {
	set := ruleIDSet(members)
	for _, r := range recs {
		if touchesAny(r, set) {
			in = append(in, r)
		} else {
			out = append(out, r)
		}
	}
	return in, out
}

func ruleIDSet(ids []domain.RuleID) map[domain.RuleID]bool {
	set := make(map[domain.RuleID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func touchesAny(r domain.Recommendation, members map[domain.RuleID]bool) bool {
	for _, id := range r.SourceRules {
		if members[id] {
			return true
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
