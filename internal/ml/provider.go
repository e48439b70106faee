// Package ml is the optional machine-learning overlay: a confidence-gated
// parameter adjuster over the rule-based output. Everything here is built
// to fail soft; a broken or absent model never changes the recommendation
// count and never surfaces an error to the analysis caller.
package ml

import (
	"context"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// ModelStatus is the deployment state of a model. Only production models
// are ever consulted.
type ModelStatus string

const (
	StatusProduction ModelStatus = "production"
	StatusStaging    ModelStatus = "staging"
	StatusRetired    ModelStatus = "retired"
)

// FeatureVector is the small fixed feature set extracted from the metrics.
type FeatureVector struct {
	RecoveryIndex        float64 `json:"recovery_index"`
	AdherenceQuality     float64 `json:"adherence_quality"`
	ProgressVelocity     float64 `json:"progress_velocity"`
	MotivationalMomentum float64 `json:"motivational_momentum"`
	StressLevel          float64 `json:"stress_level"`
	WeeklyConsistency    float64 `json:"weekly_consistency"`
}

// ExtractFeatures builds the feature vector from one analysis input.
func ExtractFeatures(snap domain.MetricsSnapshot, m domain.SignatureMetrics) FeatureVector {
	return FeatureVector{
		RecoveryIndex:        float64(m.RecoveryIndex),
		AdherenceQuality:     float64(m.AdherenceQuality),
		ProgressVelocity:     float64(m.ProgressVelocity),
		MotivationalMomentum: float64(m.MotivationalMomentum),
		StressLevel:          snap.Lifestyle.StressLevel,
		WeeklyConsistency:    snap.Progress.WeeklyConsistency,
	}
}

// Prediction is a model's suggested parameter nudge.
type Prediction struct {
	Type              domain.RecommendationType `json:"type"`
	AdjustmentDeltas  map[string]float64        `json:"adjustment_deltas"`
	DurationDays      int                       `json:"duration_days"`
	Confidence        float64                   `json:"confidence"`
	FeatureInfluences map[string]float64        `json:"feature_influences"`
}

// Provider is the pluggable inference interface. Implementations may call a
// remote model; the bundled StaticProvider is deterministic.
type Provider interface {
	Status() ModelStatus
	Predict(ctx context.Context, features FeatureVector) (*Prediction, error)
}

// StaticProvider is a deterministic linear model over the feature vector.
// It stands in for a trained model in tests and default deployments.
type StaticProvider struct {
	status ModelStatus
}

// NewStaticProvider returns a static provider with the given status.
func NewStaticProvider(status ModelStatus) *StaticProvider {
	return &StaticProvider{status: status}
}

func (p *StaticProvider) Status() ModelStatus { return p.status }

// Predict emits a recovery-oriented nudge when recovery is the weakest
// feature, otherwise an intensity nudge. Confidence rises as the dominant
// feature moves further from neutral.
func (p *StaticProvider) Predict(_ context.Context, f FeatureVector) (*Prediction, error) {
	if f.RecoveryIndex <= f.ProgressVelocity {
		gap := (50 - f.RecoveryIndex) / 50
		return &Prediction{
			Type: domain.TypeRecovery,
			AdjustmentDeltas: map[string]float64{
				"intensity": -25 - 10*gap,
				"volume":    -20 - 5*gap,
			},
			DurationDays: 7,
			Confidence:   clamp01(0.55 + 0.4*gap),
			FeatureInfluences: map[string]float64{
				"recovery_index": 0.6,
				"stress_level":   0.25,
				"adherence_quality": 0.15,
			},
		}, nil
	}

	gap := (50 - f.ProgressVelocity) / 50
	return &Prediction{
		Type: domain.TypeIntensity,
		AdjustmentDeltas: map[string]float64{
			"intensity": 8 + 4*gap,
		},
		DurationDays: 14,
		Confidence:   clamp01(0.5 + 0.3*gap),
		FeatureInfluences: map[string]float64{
			"progress_velocity": 0.55,
			"adherence_quality": 0.3,
			"weekly_consistency": 0.15,
		},
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
