package rules

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// ProgressiveOverloadRule proposes load increases when the user is clearly
// under-challenged: high adherence, strong recovery, fast progress.
type ProgressiveOverloadRule struct{}

func (ProgressiveOverloadRule) ID() domain.RuleID { return domain.RuleProgressiveOverload }

func (ProgressiveOverloadRule) Evaluate(snap domain.MetricsSnapshot, sig *domain.UserSignature, m domain.SignatureMetrics) *domain.Recommendation {
	if m.AdherenceQuality < 75 || m.RecoveryIndex < 60 {
		return nil
	}

	// Strong standing: everything green and progress still accelerating.
	if m.ProgressVelocity >= 70 && m.Resilience >= 60 {
		return &domain.Recommendation{
			Type:     domain.TypeIntensity,
			Priority: domain.PriorityHigh,
			Adjustments: []domain.Adjustment{
				{Target: "intensity", Delta: scaleDelta(10, sig)},
				{Target: "volume", Delta: scaleDelta(8, sig)},
			},
			DurationDays: 14,
			Reason:       fmt.Sprintf("progress velocity %d with full adherence, ready for more load", m.ProgressVelocity),
			Explanation:  "You are completing everything comfortably and still progressing fast. A measured load increase keeps the stimulus ahead of adaptation.",
		}
	}

	if m.ProgressVelocity >= 55 {
		return &domain.Recommendation{
			Type:     domain.TypeVolume,
			Priority: domain.PriorityMedium,
			Adjustments: []domain.Adjustment{
				{Target: "volume", Delta: scaleDelta(6, sig)},
			},
			DurationDays: 14,
			Reason:       fmt.Sprintf("adherence %d%% with headroom for more volume", m.AdherenceQuality),
			Explanation:  "Adding a little volume nudges progress without touching intensity.",
		}
	}

	return nil
}
