// Package metrics derives the composite signature metrics from a raw
// telemetry snapshot. All computations are pure: the same snapshot and
// signature always produce the same metrics.
package metrics

import (
	"math"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// neutralMidpoint substitutes for sub-factors that cannot be computed from
// an empty session history. A brand-new user must land in the middle of
// every band, never at zero, so crisis rules do not fire artificially.
const neutralMidpoint = 50.0

// Calculator computes SignatureMetrics. It is stateless and safe for
// concurrent use.
type Calculator struct{}

// NewCalculator returns a signature-metric calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute derives all composite scores for one snapshot. Each score is a
// fixed weighted blend of normalized sub-factors, rounded to an integer
// percentage in [0, 100].
func (c *Calculator) Compute(snap domain.MetricsSnapshot, sig *domain.UserSignature) domain.SignatureMetrics {
	sleep := sleepScore(snap.Lifestyle)
	invStress := invertedScale(snap.Lifestyle.StressLevel)
	invWorkload := invertedScale(snap.Lifestyle.WorkloadLevel)
	fatigueRes := fatigueResilience(snap.RecentSessions)
	completion := avgCompletion(snap.RecentSessions)
	enjoyment := avgEnjoyment(snap.RecentSessions)
	velocity := progressVelocity(snap.Progress)

	recovery := 0.30*sleep + 0.25*invStress + 0.20*invWorkload + 0.25*fatigueRes

	engagement := 0.40*enjoyment + 0.30*snap.Progress.WeeklyConsistency*100 +
		0.30*scale10(snap.Mood.MotivationLevel)

	volatility := completionVolatility(snap.RecentSessions)

	metabolic := metabolicAdaptation(snap.Progress)

	momentum := 0.40*scale10(snap.Mood.MotivationLevel) +
		0.30*streakScore(snap.Progress.CurrentStreak) +
		0.30*enjoyment

	adherence := 0.50*snap.Progress.WeeklyConsistency*100 + 0.50*completion

	resilience := 0.40*fatigueRes + 0.30*hrvScore(snap.Biometrics.HeartRateVariability) +
		0.30*invertedScale(snap.Biometrics.SorenessLevel)

	efficiency := 0.50*sig.AdaptationResponsiveness*100 + 0.50*velocity

	return domain.SignatureMetrics{
		RecoveryIndex:        pct(recovery),
		EngagementScore:      pct(engagement),
		PlanVolatility:       pct(volatility),
		MetabolicAdaptation:  pct(metabolic),
		MotivationalMomentum: pct(momentum),
		AdherenceQuality:     pct(adherence),
		ProgressVelocity:     pct(velocity),
		Resilience:           pct(resilience),
		AdaptationEfficiency: pct(efficiency),
	}
}

// sleepScore blends quantity (target 8h) and reported quality.
func sleepScore(l domain.Lifestyle) float64 {
	quantity := math.Min(l.SleepHours/8.0, 1.0) * 100
	quality := scale10(l.SleepQuality)
	return 0.6*quantity + 0.4*quality
}

// invertedScale maps a 0-10 "badness" reading to a 0-100 "goodness" score.
func invertedScale(v float64) float64 {
	v = clampf(v, 0, 10)
	return (10 - v) / 10 * 100
}

func scale10(v float64) float64 {
	return clampf(v, 0, 10) * 10
}

// fatigueResilience measures how well recent sessions held up: completion
// minus a penalty for reported fatigue. Neutral midpoint when no history.
func fatigueResilience(sessions []domain.SessionResult) float64 {
	if len(sessions) == 0 {
		return neutralMidpoint
	}
	var completed, fatigued float64
	for _, s := range sessions {
		completed += clampf(s.CompletionRate, 0, 1)
		if s.FatigueReported {
			fatigued++
		}
	}
	n := float64(len(sessions))
	score := completed/n*100 - fatigued/n*30
	return clampf(score, 0, 100)
}

func avgCompletion(sessions []domain.SessionResult) float64 {
	if len(sessions) == 0 {
		return neutralMidpoint
	}
	var sum float64
	for _, s := range sessions {
		sum += clampf(s.CompletionRate, 0, 1)
	}
	return sum / float64(len(sessions)) * 100
}

func avgEnjoyment(sessions []domain.SessionResult) float64 {
	if len(sessions) == 0 {
		return neutralMidpoint
	}
	var sum float64
	for _, s := range sessions {
		sum += clampf(s.EnjoymentScore, 0, 10)
	}
	return sum / float64(len(sessions)) * 10
}

// completionVolatility scores the spread of completion rates; higher means
// a more erratic plan execution.
func completionVolatility(sessions []domain.SessionResult) float64 {
	if len(sessions) < 2 {
		return neutralMidpoint
	}
	var sum float64
	for _, s := range sessions {
		sum += clampf(s.CompletionRate, 0, 1)
	}
	mean := sum / float64(len(sessions))
	var variance float64
	for _, s := range sessions {
		d := clampf(s.CompletionRate, 0, 1) - mean
		variance += d * d
	}
	variance /= float64(len(sessions))
	return clampf(math.Sqrt(variance)*250, 0, 100)
}

// metabolicAdaptation estimates how far the body has adapted to the current
// plan: long tenure with flattening gains reads as high adaptation.
func metabolicAdaptation(p domain.ProgressCounters) float64 {
	if p.WeeksOnPlan == 0 {
		return neutralMidpoint
	}
	tenure := clampf(float64(p.WeeksOnPlan)/12.0, 0, 1) * 60
	gainRate := (p.StrengthGainPct + p.EnduranceGainPct) / float64(p.WeeksOnPlan)
	freshness := clampf(gainRate*10, 0, 40)
	return clampf(tenure+(40-freshness), 0, 100)
}

// progressVelocity scores combined gains per week on plan.
func progressVelocity(p domain.ProgressCounters) float64 {
	if p.WeeksOnPlan == 0 {
		return neutralMidpoint
	}
	rate := (p.StrengthGainPct + p.EnduranceGainPct) / float64(p.WeeksOnPlan)
	return clampf(rate*25, 0, 100)
}

func streakScore(streak int) float64 {
	return clampf(float64(streak)*12.5, 0, 100)
}

// hrvScore normalizes heart-rate variability against a 60ms reference.
func hrvScore(hrv float64) float64 {
	if hrv <= 0 {
		return neutralMidpoint
	}
	return clampf(hrv/60.0*100, 0, 100)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func pct(v float64) int {
	return int(math.Round(clampf(v, 0, 100)))
}
