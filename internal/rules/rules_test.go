package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan/internal/domain"
)

func defaultSig() *domain.UserSignature {
	return domain.NewDefaultSignature("user-1", time.Now())
}

func TestFatigueRule_CriticalBand(t *testing.T) {
	m := domain.SignatureMetrics{RecoveryIndex: 12}

	rec := FatigueRule{}.Evaluate(domain.MetricsSnapshot{}, defaultSig(), m)

	require.NotNil(t, rec)
	assert.Equal(t, domain.TypeRecovery, rec.Type)
	assert.Equal(t, domain.PriorityCritical, rec.Priority)

	intensity, ok := rec.AdjustmentFor("intensity")
	require.True(t, ok)
	assert.Equal(t, -40.0, intensity)

	volume, ok := rec.AdjustmentFor("volume")
	require.True(t, ok)
	assert.Equal(t, -30.0, volume)
}

func TestFatigueRule_StandardBandPersonalizes(t *testing.T) {
	m := domain.SignatureMetrics{RecoveryIndex: 25}

	tolerant := defaultSig()
	tolerant.AdaptationResponsiveness = 1.0 // high tolerance, softer cut

	fragile := defaultSig()
	fragile.AdaptationResponsiveness = 0.0
	fragile.FatigueTriggers = []string{"short_sleep", "work_deadlines"}

	recTolerant := FatigueRule{}.Evaluate(domain.MetricsSnapshot{}, tolerant, m)
	recFragile := FatigueRule{}.Evaluate(domain.MetricsSnapshot{}, fragile, m)

	require.NotNil(t, recTolerant)
	require.NotNil(t, recFragile)
	assert.Equal(t, domain.PriorityHigh, recTolerant.Priority)

	cutTolerant, _ := recTolerant.AdjustmentFor("intensity")
	cutFragile, _ := recFragile.AdjustmentFor("intensity")
	assert.Less(t, cutFragile, cutTolerant, "low fatigue tolerance must widen the intensity cut")
}

func TestFatigueRule_NoTriggerAboveBand(t *testing.T) {
	rec := FatigueRule{}.Evaluate(domain.MetricsSnapshot{}, defaultSig(), domain.SignatureMetrics{RecoveryIndex: 55})
	assert.Nil(t, rec)
}

func TestConsistencyRule_CriticalBand(t *testing.T) {
	snap := domain.MetricsSnapshot{
		Plan:     domain.PlanParameters{WeeklyFrequency: 5},
		Progress: domain.ProgressCounters{WeeklyConsistency: 0.2, CurrentStreak: 1},
	}

	rec := ConsistencyRule{}.Evaluate(snap, defaultSig(), domain.SignatureMetrics{})

	require.NotNil(t, rec)
	assert.Equal(t, domain.TypeFrequency, rec.Type)
	assert.Equal(t, domain.PriorityCritical, rec.Priority)
	assert.Equal(t, 14, rec.DurationDays)
}

func TestConsistencyRule_StandardBand(t *testing.T) {
	snap := domain.MetricsSnapshot{
		Plan:     domain.PlanParameters{WeeklyFrequency: 4},
		Progress: domain.ProgressCounters{WeeklyConsistency: 0.5, CurrentStreak: 6},
	}

	rec := ConsistencyRule{}.Evaluate(snap, defaultSig(), domain.SignatureMetrics{})

	require.NotNil(t, rec)
	assert.Equal(t, domain.PriorityMedium, rec.Priority)
}

func TestProgressiveOverloadRule_RequiresGreenBoard(t *testing.T) {
	good := domain.SignatureMetrics{AdherenceQuality: 85, RecoveryIndex: 70, ProgressVelocity: 75, Resilience: 65}
	tired := domain.SignatureMetrics{AdherenceQuality: 85, RecoveryIndex: 40, ProgressVelocity: 75, Resilience: 65}

	rec := ProgressiveOverloadRule{}.Evaluate(domain.MetricsSnapshot{}, defaultSig(), good)
	require.NotNil(t, rec)
	assert.Equal(t, domain.TypeIntensity, rec.Type)

	delta, _ := rec.AdjustmentFor("intensity")
	assert.Greater(t, delta, 0.0)

	assert.Nil(t, ProgressiveOverloadRule{}.Evaluate(domain.MetricsSnapshot{}, defaultSig(), tired),
		"no load increase while recovery is poor")
}

func TestMotivationRule_CriticalMomentum(t *testing.T) {
	rec := MotivationRule{}.Evaluate(domain.MetricsSnapshot{}, defaultSig(), domain.SignatureMetrics{MotivationalMomentum: 20})

	require.NotNil(t, rec)
	assert.Equal(t, domain.TypeExerciseSwap, rec.Type)
	assert.Equal(t, domain.PriorityHigh, rec.Priority)
}

func TestPlateauRule_FiresOnStalledProgress(t *testing.T) {
	snap := domain.MetricsSnapshot{Progress: domain.ProgressCounters{WeeksOnPlan: 10}}
	m := domain.SignatureMetrics{AdherenceQuality: 80, ProgressVelocity: 10, MetabolicAdaptation: 70}

	rec := PlateauRule{}.Evaluate(snap, defaultSig(), m)

	require.NotNil(t, rec)
	assert.Equal(t, domain.TypeExerciseSwap, rec.Type)
	assert.Equal(t, "plateau_break", rec.Strategy)
}

func TestPlateauRule_SilentForNewPlans(t *testing.T) {
	snap := domain.MetricsSnapshot{Progress: domain.ProgressCounters{WeeksOnPlan: 2}}
	m := domain.SignatureMetrics{AdherenceQuality: 80, ProgressVelocity: 10, MetabolicAdaptation: 70}

	assert.Nil(t, PlateauRule{}.Evaluate(snap, defaultSig(), m))
}

func TestStressRule_CriticalBand(t *testing.T) {
	snap := domain.MetricsSnapshot{Lifestyle: domain.Lifestyle{StressLevel: 9, WorkloadLevel: 8}}

	rec := StressRule{}.Evaluate(snap, defaultSig(), domain.SignatureMetrics{})

	require.NotNil(t, rec)
	assert.Equal(t, domain.TypeIntensity, rec.Type)
	assert.Equal(t, domain.PriorityCritical, rec.Priority)
}

func TestSleepRule_SilentWithoutTelemetry(t *testing.T) {
	assert.Nil(t, SleepRule{}.Evaluate(domain.MetricsSnapshot{}, defaultSig(), domain.SignatureMetrics{}))
}

func TestSleepRule_ShortSleep(t *testing.T) {
	snap := domain.MetricsSnapshot{Lifestyle: domain.Lifestyle{SleepHours: 4.5, SleepQuality: 4}}

	rec := SleepRule{}.Evaluate(snap, defaultSig(), domain.SignatureMetrics{})

	require.NotNil(t, rec)
	assert.Equal(t, domain.TypeRecovery, rec.Type)
	assert.Equal(t, domain.PriorityHigh, rec.Priority)
}

func TestEvaluateAll_RecordsProvenance(t *testing.T) {
	snap := domain.MetricsSnapshot{
		Plan:      domain.PlanParameters{WeeklyFrequency: 5},
		Progress:  domain.ProgressCounters{WeeklyConsistency: 0.2, CurrentStreak: 1},
		Lifestyle: domain.Lifestyle{StressLevel: 9, WorkloadLevel: 9},
	}
	m := domain.SignatureMetrics{RecoveryIndex: 12, MotivationalMomentum: 60, EngagementScore: 60}

	fired := DefaultSet().EvaluateAll(snap, defaultSig(), m)

	var ids []domain.RuleID
	for _, f := range fired {
		ids = append(ids, f.Rule)
		assert.NotEmpty(t, f.Recommendation.ID)
		assert.Equal(t, []domain.RuleID{f.Rule}, f.Recommendation.SourceRules)
	}
	assert.Contains(t, ids, domain.RuleFatigue)
	assert.Contains(t, ids, domain.RuleConsistency)
	assert.Contains(t, ids, domain.RuleStress)
}

func TestNewSet_RestrictsToVersion(t *testing.T) {
	version := &domain.RuleSetVersion{
		Name:        "fatigue-only",
		Version:     "v1",
		ActiveRules: []domain.RuleID{domain.RuleFatigue},
	}

	set := NewSet(version)

	require.Len(t, set.Rules(), 1)
	assert.Equal(t, domain.RuleFatigue, set.Rules()[0].ID())
}
