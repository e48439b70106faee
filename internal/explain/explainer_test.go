package explain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan/internal/domain"
)

func metricsFixture() domain.SignatureMetrics {
	return domain.SignatureMetrics{
		RecoveryIndex:        12,
		EngagementScore:      55,
		PlanVolatility:       40,
		MetabolicAdaptation:  50,
		MotivationalMomentum: 45,
		AdherenceQuality:     80,
		ProgressVelocity:     35,
		Resilience:           30,
		AdaptationEfficiency: 48,
	}
}

func TestGenerate_SteadyState(t *testing.T) {
	gen := NewGenerator()
	sig := domain.NewDefaultSignature("user-1", time.Now())

	exp := gen.Generate(nil, metricsFixture(), sig, nil)

	require.NotNil(t, exp)
	assert.Contains(t, exp.PrimaryReason, "No changes needed")
	assert.Equal(t, 0.9, exp.Confidence)
	assert.Empty(t, exp.RiskFactors)
}

func TestGenerate_PrimaryReasonMatchesTopType(t *testing.T) {
	gen := NewGenerator()
	sig := domain.NewDefaultSignature("user-1", time.Now())

	recs := []domain.Recommendation{
		{Type: domain.TypeRecovery, Priority: domain.PriorityCritical, Reason: "recovery index at 12", DurationDays: 7},
	}

	exp := gen.Generate(recs, metricsFixture(), sig, nil)

	assert.Contains(t, exp.PrimaryReason, "Recovery is lagging")
	assert.Contains(t, exp.PrimaryReason, "recovery index at 12")
}

func TestGenerate_FactorsSortedByDistanceFromNeutral(t *testing.T) {
	gen := NewGenerator()
	sig := domain.NewDefaultSignature("user-1", time.Now())

	exp := gen.Generate([]domain.Recommendation{{Type: domain.TypeRecovery, DurationDays: 7}}, metricsFixture(), sig, nil)

	require.NotEmpty(t, exp.ContributingFactors)
	first := exp.ContributingFactors[0]
	assert.Equal(t, "recovery_index", first.Metric, "recovery index 12 is furthest from neutral")
	assert.Equal(t, "high", first.Impact)
	assert.Equal(t, "declining", first.Trend)
}

func TestGenerate_ConfidenceWithinUnitInterval(t *testing.T) {
	gen := NewGenerator()
	sig := domain.NewDefaultSignature("user-1", time.Now())
	sig.ConfidenceLevel = 1.0

	exp := gen.Generate([]domain.Recommendation{{Type: domain.TypeIntensity, DurationDays: 7}}, metricsFixture(), sig, nil)

	assert.GreaterOrEqual(t, exp.Confidence, 0.0)
	assert.LessOrEqual(t, exp.Confidence, 1.0)
}

func TestGenerate_RiskFactorsOnCriticalAndLargeCut(t *testing.T) {
	gen := NewGenerator()
	sig := domain.NewDefaultSignature("user-1", time.Now())

	recs := []domain.Recommendation{
		{
			Type:        domain.TypeRecovery,
			Priority:    domain.PriorityCritical,
			Adjustments: []domain.Adjustment{{Target: "intensity", Delta: -40}},
			DurationDays: 7,
		},
	}

	exp := gen.Generate(recs, metricsFixture(), sig, nil)

	require.Len(t, exp.RiskFactors, 2, "critical priority and a large cut each add a risk entry")
}

func TestGenerate_AlternativesForIntensityType(t *testing.T) {
	gen := NewGenerator()
	sig := domain.NewDefaultSignature("user-1", time.Now())

	exp := gen.Generate([]domain.Recommendation{{Type: domain.TypeIntensity, DurationDays: 7}}, metricsFixture(), sig, nil)

	require.NotEmpty(t, exp.Alternatives)
	for _, alt := range exp.Alternatives {
		assert.NotEmpty(t, alt.ReasonNotChosen)
		assert.NotEmpty(t, alt.ReconsiderWhen)
	}
}

func TestGenerate_HistoricalContextFromEffectiveWins(t *testing.T) {
	gen := NewGenerator()
	sig := domain.NewDefaultSignature("user-1", time.Now())
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	history := []domain.AdaptationHistoryEntry{
		{Timestamp: now.AddDate(0, 0, -30), Recommendation: domain.Recommendation{Type: domain.TypeRecovery}, Effectiveness: 0.85},
		{Timestamp: now.AddDate(0, 0, -10), Recommendation: domain.Recommendation{Type: domain.TypeVolume}, Effectiveness: 0.9},
		{Timestamp: now.AddDate(0, 0, -5), Recommendation: domain.Recommendation{Type: domain.TypeIntensity}, Effectiveness: 0.3},
	}

	exp := gen.Generate([]domain.Recommendation{{Type: domain.TypeVolume, DurationDays: 14}}, metricsFixture(), sig, history)

	assert.Contains(t, exp.HistoricalContext, "volume")
	assert.Contains(t, exp.HistoricalContext, "recovery")
	assert.NotContains(t, exp.HistoricalContext, "intensity", "low-effectiveness entries are excluded")
}

func TestGenerate_TimelineFromDuration(t *testing.T) {
	gen := NewGenerator()
	sig := domain.NewDefaultSignature("user-1", time.Now())

	cases := map[int]string{
		3:  "within the week",
		7:  "one to two weeks",
		21: "three weeks",
		35: "5 weeks",
	}
	for days, want := range cases {
		exp := gen.Generate([]domain.Recommendation{{Type: domain.TypeVolume, DurationDays: days}}, metricsFixture(), sig, nil)
		assert.Contains(t, exp.TimelineExpectation, want)
	}
}
