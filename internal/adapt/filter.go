// Package adapt applies the per-user learning loop to candidate
// recommendations: suppressing recently-failed or recently-repeated
// strategies, re-prioritizing by learned effectiveness, and personalizing
// the surviving candidates from the user signature.
package adapt

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// Filter thresholds and windows.
const (
	FailureThreshold = 0.3
	PromoteThreshold = 0.8
	RecencyWindow    = 7 * 24 * time.Hour
)

// HistoryFilter suppresses candidates based on adaptation history and then
// shifts priorities by learned per-type effectiveness.
type HistoryFilter struct {
	now func() time.Time
}

// NewHistoryFilter returns a filter using the wall clock.
func NewHistoryFilter() *HistoryFilter {
	return &HistoryFilter{now: time.Now}
}

// NewHistoryFilterAt pins the clock, for tests.
func NewHistoryFilterAt(now func() time.Time) *HistoryFilter {
	return &HistoryFilter{now: now}
}

// Apply filters and re-weights the candidates.
//
// Failure set: types whose most recent recorded effectiveness fell below
// FailureThreshold. Recency set: types issued within RecencyWindow.
// Non-critical candidates in either set are dropped. Critical candidates
// are never dropped: neither recent repetition nor past failure alone may
// block a critical recommendation.
//
// Weighting: the decision score is the learned per-type rate, shifted by
// the context modifiers for the active tags and scaled by the base-weight
// bias of the rules that issued the candidate. A score above
// PromoteThreshold promotes the priority one level (clamped at critical);
// below FailureThreshold it demotes one level (clamped at low). The shift
// is a total order move, not additive scoring. Types with no recorded
// feedback are never shifted.
func (f *HistoryFilter) Apply(recs []domain.Recommendation, history []domain.AdaptationHistoryEntry, weights *domain.RuleWeights, tags []string) []domain.Recommendation {
	failed, recent := f.classify(history)

	out := make([]domain.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if rec.Priority != domain.PriorityCritical {
			if failed[rec.Type] {
				log.Debug().Str("type", string(rec.Type)).Msg("candidate dropped, strategy failed last time")
				continue
			}
			if recent[rec.Type] {
				log.Debug().Str("type", string(rec.Type)).Msg("candidate dropped, strategy tried within recency window")
				continue
			}
		}

		if weights != nil {
			if rate, ok := weights.TypeRate(rec.Type); ok {
				score := (rate + weights.ContextShift(tags)) * weights.RuleBias(rec.SourceRules)
				switch {
				case score > PromoteThreshold:
					rec.Priority = rec.Priority.Promote()
				case score < FailureThreshold:
					rec.Priority = rec.Priority.Demote()
				}
			}
		}
		out = append(out, rec)
	}

	domain.SortByPriority(out)
	return out
}

// classify derives the failure and recency sets from history. Only the most
// recent entry per type decides failure membership.
func (f *HistoryFilter) classify(history []domain.AdaptationHistoryEntry) (failed, recent map[domain.RecommendationType]bool) {
	failed = make(map[domain.RecommendationType]bool)
	recent = make(map[domain.RecommendationType]bool)

	latest := make(map[domain.RecommendationType]domain.AdaptationHistoryEntry)
	cutoff := f.now().Add(-RecencyWindow)

	for _, entry := range history {
		t := entry.Recommendation.Type
		if prev, ok := latest[t]; !ok || entry.Timestamp.After(prev.Timestamp) {
			latest[t] = entry
		}
		if entry.Timestamp.After(cutoff) {
			recent[t] = true
		}
	}
	for t, entry := range latest {
		// Entries without a recorded outcome sit at the 0.5 neutral value
		// and never count as failures.
		if entry.Outcome != nil && entry.Effectiveness < FailureThreshold {
			failed[t] = true
		}
	}
	return failed, recent
}
