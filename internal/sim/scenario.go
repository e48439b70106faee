// Package sim runs repeated stochastic trials of a candidate recommendation
// set against a scenario model and aggregates outcome statistics.
package sim

import (
	"github.com/pulseplan/pulseplan/internal/domain"
)

// Factor is one stochastic life event a trial may encounter.
type Factor struct {
	Name        string  `json:"name" yaml:"name"`
	Probability float64 `json:"probability" yaml:"probability"` // per trial
	// Impacts are metric deltas applied when the factor triggers.
	Impacts      map[string]float64 `json:"impacts" yaml:"impacts"`
	DurationDays int                `json:"duration_days" yaml:"duration_days"`
}

// Scenario bundles the stochastic factors and constraints for a simulation.
type Scenario struct {
	Name        string   `json:"name" yaml:"name"`
	HorizonDays int      `json:"horizon_days" yaml:"horizon_days"`
	Factors     []Factor `json:"factors" yaml:"factors"`
}

// DefaultScenario models a typical lived-in month.
func DefaultScenario() Scenario {
	return Scenario{
		Name:        "ordinary_life",
		HorizonDays: 28,
		Factors: []Factor{
			{
				Name:        "work_stress_spike",
				Probability: 0.30,
				Impacts: map[string]float64{
					"recovery_index":        -12,
					"adherence_quality":     -8,
					"motivational_momentum": -5,
				},
				DurationDays: 4,
			},
			{
				Name:        "minor_illness",
				Probability: 0.10,
				Impacts: map[string]float64{
					"recovery_index":    -20,
					"adherence_quality": -15,
					"progress_velocity": -10,
				},
				DurationDays: 5,
			},
			{
				Name:        "travel_week",
				Probability: 0.20,
				Impacts: map[string]float64{
					"adherence_quality": -15,
					"plan_volatility":   10,
				},
				DurationDays: 7,
			},
			{
				Name:        "sleep_disruption",
				Probability: 0.30,
				Impacts: map[string]float64{
					"recovery_index": -10,
					"resilience":     -6,
				},
				DurationDays: 3,
			},
			{
				Name:        "motivation_boost",
				Probability: 0.25,
				Impacts: map[string]float64{
					"motivational_momentum": 12,
					"engagement_score":      8,
				},
				DurationDays: 5,
			},
		},
	}
}

// trialState is the mutable per-trial copy of the metrics. It is built as
// an explicit value copy so trials never alias the caller's metrics or each
// other.
type trialState struct {
	values map[string]float64
}

func newTrialState(m domain.SignatureMetrics) trialState {
	src := m.Map()
	values := make(map[string]float64, len(src))
	for k, v := range src {
		values[k] = float64(v)
	}
	return trialState{values: values}
}

func (s trialState) apply(target string, delta float64) {
	v, ok := s.values[target]
	if !ok {
		return
	}
	v += delta
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	s.values[target] = v
}

// applyRecommendations maps each recommendation's qualitative effect onto
// the trial metrics before any stochastic factor rolls.
func (s trialState) applyRecommendations(recs []domain.Recommendation) {
	for _, rec := range recs {
		switch rec.Type {
		case domain.TypeRecovery, domain.TypeRestDay:
			s.apply("recovery_index", 15)
			s.apply("resilience", 8)
			s.apply("progress_velocity", -3)
		case domain.TypeIntensity:
			if delta, ok := rec.AdjustmentFor("intensity"); ok && delta < 0 {
				s.apply("recovery_index", 10)
				s.apply("adherence_quality", 5)
			} else {
				s.apply("progress_velocity", 10)
				s.apply("recovery_index", -5)
			}
		case domain.TypeVolume:
			s.apply("progress_velocity", 7)
			s.apply("recovery_index", -3)
		case domain.TypeFrequency:
			s.apply("adherence_quality", 12)
			s.apply("motivational_momentum", 6)
		case domain.TypeExerciseSwap:
			s.apply("motivational_momentum", 12)
			s.apply("engagement_score", 10)
		case domain.TypeNutrition:
			s.apply("recovery_index", 6)
			s.apply("metabolic_adaptation", -4)
		}
	}
}

// Outcome is the result of a single trial.
type Outcome struct {
	Path              []string           `json:"path"` // factor names that triggered
	FinalMetrics      map[string]float64 `json:"final_metrics"`
	ProgressScore     float64            `json:"progress_score"`
	AdherenceScore    float64            `json:"adherence_score"`
	SatisfactionScore float64            `json:"satisfaction_score"`
	Cost              float64            `json:"cost"` // accumulated disruption
}

// score derives the trial's summary scores from the final metric state.
func (s trialState) score(path []string, cost float64) Outcome {
	progress := 0.6*s.values["progress_velocity"] + 0.4*s.values["recovery_index"]
	adherence := s.values["adherence_quality"]
	satisfaction := 0.5*s.values["motivational_momentum"] + 0.5*s.values["engagement_score"]

	final := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		final[k] = v
	}
	return Outcome{
		Path:              path,
		FinalMetrics:      final,
		ProgressScore:     progress,
		AdherenceScore:    adherence,
		SatisfactionScore: satisfaction,
		Cost:              cost,
	}
}
