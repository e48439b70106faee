package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan/internal/domain"
	"github.com/pulseplan/pulseplan/internal/rules"
)

func firedFrom(pairs ...rules.Fired) []rules.Fired { return pairs }

func fired(id domain.RuleID, rec domain.Recommendation) rules.Fired {
	rec.ID = string(id) + "-rec"
	rec.SourceRules = []domain.RuleID{id}
	return rules.Fired{Rule: id, Recommendation: rec}
}

func TestApply_FatigueAndStress_MergesToComprehensiveRecovery(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	input := firedFrom(
		fired(domain.RuleFatigue, domain.Recommendation{
			Type:     domain.TypeRecovery,
			Priority: domain.PriorityHigh,
			Adjustments: []domain.Adjustment{
				{Target: "intensity", Delta: -20},
				{Target: "volume", Delta: -15},
			},
			DurationDays: 5,
			Reason:       "recovery index low",
		}),
		fired(domain.RuleStress, domain.Recommendation{
			Type:     domain.TypeIntensity,
			Priority: domain.PriorityMedium,
			Adjustments: []domain.Adjustment{
				{Target: "intensity", Delta: -30},
			},
			DurationDays: 7,
			Reason:       "stress high",
		}),
	)

	recs, applied := analyzer.Apply(input)

	require.NotNil(t, applied)
	assert.Equal(t, "comprehensive_recovery_protocol", applied.Strategy)
	assert.Equal(t, KindMerge, applied.Kind)

	require.Len(t, recs, 1)
	compound := recs[0]
	assert.Equal(t, domain.PriorityCritical, compound.Priority, "compound priority must be critical")
	assert.Equal(t, "comprehensive_recovery_protocol", compound.Strategy)
	assert.ElementsMatch(t, []domain.RuleID{domain.RuleFatigue, domain.RuleStress}, compound.SourceRules)

	// Largest-magnitude delta per target survives the merge.
	intensity, ok := compound.AdjustmentFor("intensity")
	require.True(t, ok)
	assert.Equal(t, -30.0, intensity)
	assert.Equal(t, 7, compound.DurationDays)
}

func TestApply_MostSpecificEntryWins(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	input := firedFrom(
		fired(domain.RuleFatigue, domain.Recommendation{Type: domain.TypeRecovery, Priority: domain.PriorityHigh}),
		fired(domain.RuleStress, domain.Recommendation{Type: domain.TypeIntensity, Priority: domain.PriorityMedium}),
		fired(domain.RuleSleep, domain.Recommendation{Type: domain.TypeRecovery, Priority: domain.PriorityMedium}),
	)

	recs, applied := analyzer.Apply(input)

	require.NotNil(t, applied)
	assert.Equal(t, "full_deload_week", applied.Strategy,
		"the three-rule entry must beat both two-rule entries")
	require.Len(t, recs, 1)
}

func TestApply_NoMatch_PassThrough(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	input := firedFrom(
		fired(domain.RuleMotivation, domain.Recommendation{Type: domain.TypeExerciseSwap, Priority: domain.PriorityMedium}),
	)

	recs, applied := analyzer.Apply(input)

	assert.Nil(t, applied)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.PriorityMedium, recs[0].Priority)
	assert.Empty(t, recs[0].Strategy)
}

func TestApply_SuppressDemotesConstituents(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	input := firedFrom(
		fired(domain.RuleProgressiveOverload, domain.Recommendation{Type: domain.TypeIntensity, Priority: domain.PriorityHigh}),
		fired(domain.RulePlateau, domain.Recommendation{Type: domain.TypeExerciseSwap, Priority: domain.PriorityHigh}),
	)

	recs, applied := analyzer.Apply(input)

	require.NotNil(t, applied)
	assert.Equal(t, KindSuppress, applied.Kind)
	for _, r := range recs {
		assert.Equal(t, domain.PriorityMedium, r.Priority)
		assert.Equal(t, "hold_progression", r.Strategy)
	}
}

func TestApply_RedirectKeepsMagnitudes(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	input := firedFrom(
		fired(domain.RuleConsistency, domain.Recommendation{
			Type:        domain.TypeFrequency,
			Priority:    domain.PriorityCritical,
			Adjustments: []domain.Adjustment{{Target: "weekly_frequency", Delta: -2}},
			Reason:      "consistency collapsed",
		}),
		fired(domain.RuleMotivation, domain.Recommendation{
			Type:     domain.TypeExerciseSwap,
			Priority: domain.PriorityMedium,
		}),
	)

	recs, applied := analyzer.Apply(input)

	require.NotNil(t, applied)
	assert.Equal(t, KindRedirect, applied.Kind)
	require.Len(t, recs, 2)

	var tagged *domain.Recommendation
	for i := range recs {
		if recs[i].Strategy == "habit_rebuild" {
			tagged = &recs[i]
		}
	}
	require.NotNil(t, tagged)
	assert.Equal(t, domain.PriorityCritical, tagged.Priority, "redirect never changes priority")
	delta, _ := tagged.AdjustmentFor("weekly_frequency")
	assert.Equal(t, -2.0, delta)
}

func TestApply_InputNotMutated(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	original := fired(domain.RuleFatigue, domain.Recommendation{
		Type:        domain.TypeRecovery,
		Priority:    domain.PriorityHigh,
		Adjustments: []domain.Adjustment{{Target: "intensity", Delta: -20}},
	})
	input := firedFrom(original, fired(domain.RuleStress, domain.Recommendation{
		Type:        domain.TypeIntensity,
		Priority:    domain.PriorityMedium,
		Adjustments: []domain.Adjustment{{Target: "intensity", Delta: -30}},
	}))

	_, _ = analyzer.Apply(input)

	assert.Equal(t, domain.PriorityHigh, input[0].Recommendation.Priority)
	assert.Equal(t, -20.0, input[0].Recommendation.Adjustments[0].Delta)
}
