package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan/internal/domain"
)

func baselineSnapshot() domain.MetricsSnapshot {
	return domain.MetricsSnapshot{
		UserID:    "user-1",
		Timestamp: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		Plan: domain.PlanParameters{
			IntensityLevel:  6,
			WeeklyFrequency: 4,
			SessionVolume:   16,
			Modality:        "strength",
		},
		RecentSessions: []domain.SessionResult{
			{Completed: true, CompletionRate: 0.9, PerceivedExertion: 6, EnjoymentScore: 7},
			{Completed: true, CompletionRate: 0.8, PerceivedExertion: 7, EnjoymentScore: 6},
			{Completed: true, CompletionRate: 1.0, PerceivedExertion: 5, EnjoymentScore: 8},
		},
		Progress: domain.ProgressCounters{
			TotalSessions:     40,
			CurrentStreak:     5,
			WeeklyConsistency: 0.8,
			StrengthGainPct:   6,
			EnduranceGainPct:  4,
			WeeksOnPlan:       8,
		},
		Biometrics: domain.Biometrics{
			RestingHeartRate:     58,
			HeartRateVariability: 55,
			SorenessLevel:        3,
		},
		Lifestyle: domain.Lifestyle{
			SleepHours:    7.5,
			SleepQuality:  7,
			StressLevel:   4,
			WorkloadLevel: 5,
		},
		Mood: domain.MoodState{MotivationLevel: 7, MoodScore: 7, EnergyLevel: 6},
	}
}

func TestCompute_PureAndRepeatable(t *testing.T) {
	calc := NewCalculator()
	snap := baselineSnapshot()
	sig := domain.NewDefaultSignature("user-1", time.Now())

	first := calc.Compute(snap, sig)
	second := calc.Compute(snap, sig)

	assert.Equal(t, first, second, "identical inputs must yield identical metrics")
}

func TestCompute_AllMetricsBounded(t *testing.T) {
	calc := NewCalculator()
	snaps := []domain.MetricsSnapshot{
		baselineSnapshot(),
		{}, // zero-value snapshot must still stay in range
	}
	sig := domain.NewDefaultSignature("user-1", time.Now())

	for _, snap := range snaps {
		m := calc.Compute(snap, sig)
		for name, v := range m.Map() {
			assert.GreaterOrEqual(t, v, 0, name)
			assert.LessOrEqual(t, v, 100, name)
		}
	}
}

func TestCompute_EmptySessionHistoryUsesNeutralMidpoint(t *testing.T) {
	calc := NewCalculator()
	snap := baselineSnapshot()
	snap.RecentSessions = nil
	snap.Progress = domain.ProgressCounters{} // brand-new user
	sig := domain.NewDefaultSignature("user-1", time.Now())

	m := calc.Compute(snap, sig)

	// A brand-new user must not look like a crisis: recovery stays well
	// above the critical band that would trigger the fatigue rule.
	require.Greater(t, m.RecoveryIndex, 30)
	assert.Equal(t, 50, m.ProgressVelocity, "no progress history defaults to midpoint")
	assert.Equal(t, 50, m.PlanVolatility, "volatility needs at least two sessions")
}

func TestCompute_PoorRecoveryInputsDriveIndexDown(t *testing.T) {
	calc := NewCalculator()
	snap := baselineSnapshot()
	snap.Lifestyle = domain.Lifestyle{SleepHours: 3, SleepQuality: 2, StressLevel: 9, WorkloadLevel: 9}
	snap.RecentSessions = []domain.SessionResult{
		{Completed: false, CompletionRate: 0.2, FatigueReported: true, EnjoymentScore: 3},
		{Completed: false, CompletionRate: 0.1, FatigueReported: true, EnjoymentScore: 2},
	}
	sig := domain.NewDefaultSignature("user-1", time.Now())

	m := calc.Compute(snap, sig)

	assert.Less(t, m.RecoveryIndex, 15, "exhausted telemetry must land in the critical band")
}
