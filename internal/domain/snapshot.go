package domain

import "time"

// MetricsSnapshot is the immutable per-analysis input: current plan
// parameters plus recent telemetry. Created by the caller; never mutated
// by the engine.
type MetricsSnapshot struct {
	UserID    string    `json:"user_id" yaml:"user_id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	Plan           PlanParameters   `json:"plan" yaml:"plan"`
	RecentSessions []SessionResult  `json:"recent_sessions" yaml:"recent_sessions"`
	Progress       ProgressCounters `json:"progress" yaml:"progress"`
	Biometrics     Biometrics       `json:"biometrics" yaml:"biometrics"`
	Lifestyle      Lifestyle        `json:"lifestyle" yaml:"lifestyle"`
	Mood           MoodState        `json:"mood" yaml:"mood"`
}

// PlanParameters describes the plan currently in force.
type PlanParameters struct {
	IntensityLevel  float64 `json:"intensity_level" yaml:"intensity_level"` // 1-10 scale
	WeeklyFrequency int     `json:"weekly_frequency" yaml:"weekly_frequency"`
	SessionVolume   float64 `json:"session_volume" yaml:"session_volume"` // working sets per session
	Modality        string  `json:"modality" yaml:"modality"`
}

// SessionResult is one completed or skipped training session.
type SessionResult struct {
	Date              time.Time `json:"date" yaml:"date"`
	Completed         bool      `json:"completed" yaml:"completed"`
	CompletionRate    float64   `json:"completion_rate" yaml:"completion_rate"` // 0-1
	PerceivedExertion float64   `json:"perceived_exertion" yaml:"perceived_exertion"` // 1-10
	FatigueReported   bool      `json:"fatigue_reported" yaml:"fatigue_reported"`
	EnjoymentScore    float64   `json:"enjoyment_score" yaml:"enjoyment_score"` // 1-10
}

// ProgressCounters are cumulative progress measures.
type ProgressCounters struct {
	TotalSessions     int     `json:"total_sessions" yaml:"total_sessions"`
	CurrentStreak     int     `json:"current_streak" yaml:"current_streak"`
	WeeklyConsistency float64 `json:"weekly_consistency" yaml:"weekly_consistency"` // 0-1
	StrengthGainPct   float64 `json:"strength_gain_pct" yaml:"strength_gain_pct"`
	EnduranceGainPct  float64 `json:"endurance_gain_pct" yaml:"endurance_gain_pct"`
	WeeksOnPlan       int     `json:"weeks_on_plan" yaml:"weeks_on_plan"`
}

// Biometrics are the latest biometric readings.
type Biometrics struct {
	RestingHeartRate     float64 `json:"resting_heart_rate" yaml:"resting_heart_rate"`
	HeartRateVariability float64 `json:"heart_rate_variability" yaml:"heart_rate_variability"` // ms
	BodyWeightKg         float64 `json:"body_weight_kg" yaml:"body_weight_kg"`
	SorenessLevel        float64 `json:"soreness_level" yaml:"soreness_level"` // 0-10
}

// Lifestyle captures sleep, stress and workload factors.
type Lifestyle struct {
	SleepHours    float64 `json:"sleep_hours" yaml:"sleep_hours"`
	SleepQuality  float64 `json:"sleep_quality" yaml:"sleep_quality"` // 0-10
	StressLevel   float64 `json:"stress_level" yaml:"stress_level"`   // 0-10
	WorkloadLevel float64 `json:"workload_level" yaml:"workload_level"` // 0-10
}

// MoodState is the self-reported mood snapshot.
type MoodState struct {
	MotivationLevel float64 `json:"motivation_level" yaml:"motivation_level"` // 0-10
	MoodScore       float64 `json:"mood_score" yaml:"mood_score"`             // 0-10
	EnergyLevel     float64 `json:"energy_level" yaml:"energy_level"`         // 0-10
}

// ContextTags derives the free-form context tags for a snapshot. The tags
// key the learned context modifiers in RuleWeights, so feedback recorded
// under "high_stress" only shifts future analyses that are also stressed.
func (s MetricsSnapshot) ContextTags() []string {
	var tags []string
	if s.Lifestyle.StressLevel >= 7 {
		tags = append(tags, "high_stress")
	}
	if s.Lifestyle.WorkloadLevel >= 7 {
		tags = append(tags, "high_workload")
	}
	if s.Lifestyle.SleepHours > 0 && s.Lifestyle.SleepHours < 6 {
		tags = append(tags, "sleep_deficit")
	}
	if s.Progress.WeeklyConsistency >= 0.8 && s.Progress.CurrentStreak >= 5 {
		tags = append(tags, "habit_locked_in")
	}
	return tags
}

// SignatureMetrics are the composite scores derived from a snapshot and
// signature. All values are integer percentages in [0, 100]. They are a pure
// function of their inputs and are recomputed every analysis, never stored
// as authoritative state.
type SignatureMetrics struct {
	RecoveryIndex        int `json:"recovery_index"`
	EngagementScore      int `json:"engagement_score"`
	PlanVolatility       int `json:"plan_volatility"`
	MetabolicAdaptation  int `json:"metabolic_adaptation"`
	MotivationalMomentum int `json:"motivational_momentum"`
	AdherenceQuality     int `json:"adherence_quality"`
	ProgressVelocity     int `json:"progress_velocity"`
	Resilience           int `json:"resilience"`
	AdaptationEfficiency int `json:"adaptation_efficiency"`
}

// Map returns the metrics keyed by canonical name, for iteration by the
// explainer and planner.
func (m SignatureMetrics) Map() map[string]int {
	return map[string]int{
		"recovery_index":        m.RecoveryIndex,
		"engagement_score":      m.EngagementScore,
		"plan_volatility":       m.PlanVolatility,
		"metabolic_adaptation":  m.MetabolicAdaptation,
		"motivational_momentum": m.MotivationalMomentum,
		"adherence_quality":     m.AdherenceQuality,
		"progress_velocity":     m.ProgressVelocity,
		"resilience":            m.Resilience,
		"adaptation_efficiency": m.AdaptationEfficiency,
	}
}
