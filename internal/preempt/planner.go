// Package preempt projects forward from the current metrics and signature:
// plan confidence, predicted adaptations, early warnings, contingency
// plans, trajectory, and risk assessment. All projections are deterministic
// functions of the inputs; no history lookback happens here.
package preempt

import (
	"fmt"
	"math"
	"time"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// Plan is the forward-looking bundle produced for one analysis.
type Plan struct {
	Confidence           float64               `json:"confidence"` // capped at 0.95
	PredictedAdaptations []PredictedAdaptation `json:"predicted_adaptations"`
	EarlyWarnings        []EarlyWarning        `json:"early_warnings"`
	ContingencyPlans     []ContingencyPlan     `json:"contingency_plans"`
	Trajectory           []TrajectoryPoint     `json:"trajectory"`
	RiskAssessment       RiskAssessment        `json:"risk_assessment"`
}

// PredictedAdaptation is a future plan change the engine expects to issue.
type PredictedAdaptation struct {
	Type              domain.RecommendationType `json:"type"`
	EstimatedTrigger  time.Time                 `json:"estimated_trigger"`
	Probability       float64                   `json:"probability"`
	TriggerConditions []string                  `json:"trigger_conditions"`
	Severity          string                    `json:"severity"` // watch | likely | imminent
}

// Planner builds preemptive plans. Stateless.
type Planner struct {
	now func() time.Time
}

// NewPlanner returns a planner using the wall clock.
func NewPlanner() *Planner {
	return &Planner{now: time.Now}
}

// NewPlannerAt pins the clock, for tests.
func NewPlannerAt(now func() time.Time) *Planner {
	return &Planner{now: now}
}

// Build produces the full preemptive bundle.
func (p *Planner) Build(m domain.SignatureMetrics, sig *domain.UserSignature) *Plan {
	return &Plan{
		Confidence:           p.confidence(m, sig),
		PredictedAdaptations: p.predictAdaptations(m),
		EarlyWarnings:        earlyWarnings(m),
		ContingencyPlans:     contingencyPlans(m, sig),
		Trajectory:           projectTrajectory(m, sig),
		RiskAssessment:       assessRisks(m),
	}
}

// confidence is a weighted sum of metric-threshold indicator terms plus the
// signature's confidence and adherence consistency, capped at 0.95.
func (p *Planner) confidence(m domain.SignatureMetrics, sig *domain.UserSignature) float64 {
	score := 0.2 * sig.ConfidenceLevel
	if m.AdherenceQuality >= 60 {
		score += 0.25
	}
	if m.RecoveryIndex >= 40 {
		score += 0.2
	}
	if m.MotivationalMomentum >= 40 {
		score += 0.15
	}
	if m.PlanVolatility <= 60 {
		score += 0.15
	}
	score += 0.1 * float64(m.AdherenceQuality) / 100
	return math.Min(score, 0.95)
}

// predictAdaptations generates future-change predictions when velocity or
// momentum sit below their watch thresholds.
func (p *Planner) predictAdaptations(m domain.SignatureMetrics) []PredictedAdaptation {
	now := p.now()
	var preds []PredictedAdaptation

	if m.ProgressVelocity < 40 {
		severity, probability, lead := "watch", 0.5, 21
		if m.ProgressVelocity < 20 {
			severity, probability, lead = "imminent", 0.85, 7
		} else if m.ProgressVelocity < 30 {
			severity, probability, lead = "likely", 0.7, 14
		}
		preds = append(preds, PredictedAdaptation{
			Type:             domain.TypeExerciseSwap,
			EstimatedTrigger: now.AddDate(0, 0, lead),
			Probability:      probability,
			TriggerConditions: []string{
				fmt.Sprintf("progress velocity stays below 40 (currently %d)", m.ProgressVelocity),
				"adherence remains above 65",
			},
			Severity: severity,
		})
	}

	if m.MotivationalMomentum < 45 {
		severity, probability, lead := "watch", 0.45, 14
		if m.MotivationalMomentum < 25 {
			severity, probability, lead = "imminent", 0.8, 5
		}
		preds = append(preds, PredictedAdaptation{
			Type:             domain.TypeFrequency,
			EstimatedTrigger: now.AddDate(0, 0, lead),
			Probability:      probability,
			TriggerConditions: []string{
				fmt.Sprintf("motivational momentum stays below 45 (currently %d)", m.MotivationalMomentum),
				"two or more missed sessions in a week",
			},
			Severity: severity,
		})
	}

	return preds
}
