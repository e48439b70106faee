package rules

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/domain"
)

const (
	motivationCriticalMomentum = 25
	motivationStandardMomentum = 45
)

// MotivationRule watches motivational momentum and proposes variety before
// the user disengages entirely.
type MotivationRule struct{}

func (MotivationRule) ID() domain.RuleID { return domain.RuleMotivation }

func (MotivationRule) Evaluate(snap domain.MetricsSnapshot, sig *domain.UserSignature, m domain.SignatureMetrics) *domain.Recommendation {
	if m.MotivationalMomentum < motivationCriticalMomentum {
		return &domain.Recommendation{
			Type:     domain.TypeExerciseSwap,
			Priority: domain.PriorityHigh,
			Adjustments: []domain.Adjustment{
				{Target: "exercise_variety", Delta: 3},
				{Target: "intensity", Delta: scaleDelta(-10, sig)},
			},
			DurationDays: 7,
			Reason:       fmt.Sprintf("motivational momentum at %d, disengagement risk", m.MotivationalMomentum),
			Explanation:  "Motivation is near the floor. Swapping in fresh exercises at a slightly easier pace restores the fun before the habit breaks.",
		}
	}

	if m.MotivationalMomentum < motivationStandardMomentum && m.EngagementScore < 50 {
		return &domain.Recommendation{
			Type:     domain.TypeExerciseSwap,
			Priority: domain.PriorityMedium,
			Adjustments: []domain.Adjustment{
				{Target: "exercise_variety", Delta: 2},
			},
			DurationDays: 7,
			Reason:       fmt.Sprintf("momentum %d with engagement %d", m.MotivationalMomentum, m.EngagementScore),
			Explanation:  "Sessions are getting stale. A couple of new movements usually lifts engagement within a week.",
		}
	}

	return nil
}
