package rules

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// PlateauRule detects stalled progress despite solid adherence: the plan is
// being executed but the stimulus stopped working.
type PlateauRule struct{}

func (PlateauRule) ID() domain.RuleID { return domain.RulePlateau }

func (PlateauRule) Evaluate(snap domain.MetricsSnapshot, sig *domain.UserSignature, m domain.SignatureMetrics) *domain.Recommendation {
	if m.AdherenceQuality < 65 || snap.Progress.WeeksOnPlan < 4 {
		return nil
	}

	if m.ProgressVelocity < 20 && m.MetabolicAdaptation >= 60 {
		return &domain.Recommendation{
			Type:     domain.TypeExerciseSwap,
			Priority: domain.PriorityHigh,
			Adjustments: []domain.Adjustment{
				{Target: "exercise_variety", Delta: 4},
				{Target: "intensity", Delta: scaleDelta(8, sig)},
			},
			DurationDays: 21,
			Strategy:     "plateau_break",
			Reason:       fmt.Sprintf("progress velocity %d after %d weeks on plan", m.ProgressVelocity, snap.Progress.WeeksOnPlan),
			Explanation:  "You are doing the work but the body has adapted to it. A deliberate stimulus change restarts progress.",
		}
	}

	if m.ProgressVelocity < 35 && m.MetabolicAdaptation >= 50 {
		return &domain.Recommendation{
			Type:     domain.TypeVolume,
			Priority: domain.PriorityMedium,
			Adjustments: []domain.Adjustment{
				{Target: "volume", Delta: scaleDelta(10, sig)},
			},
			DurationDays: 14,
			Reason:       fmt.Sprintf("progress slowing at velocity %d", m.ProgressVelocity),
			Explanation:  "Progress is flattening. A modest volume bump is the lowest-risk way to re-apply overload.",
		}
	}

	return nil
}
