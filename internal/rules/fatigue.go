package rules

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// Fatigue rule thresholds on the recovery index.
const (
	fatigueCriticalThreshold = 15
	fatigueStandardThreshold = 30
)

// FatigueRule watches the recovery index for accumulated fatigue. The
// critical band emits a fixed large deload; the standard band scales the
// cut by the user's fatigue tolerance.
type FatigueRule struct{}

func (FatigueRule) ID() domain.RuleID { return domain.RuleFatigue }

func (FatigueRule) Evaluate(snap domain.MetricsSnapshot, sig *domain.UserSignature, m domain.SignatureMetrics) *domain.Recommendation {
	if m.RecoveryIndex < fatigueCriticalThreshold {
		return &domain.Recommendation{
			Type:     domain.TypeRecovery,
			Priority: domain.PriorityCritical,
			Adjustments: []domain.Adjustment{
				{Target: "intensity", Delta: -40},
				{Target: "volume", Delta: -30},
			},
			DurationDays: 7,
			Reason:       fmt.Sprintf("recovery index at %d, deep fatigue detected", m.RecoveryIndex),
			Explanation:  "Your recovery markers show accumulated fatigue. A sharp short deload protects the progress you already made.",
		}
	}

	if m.RecoveryIndex < fatigueStandardThreshold {
		return &domain.Recommendation{
			Type:     domain.TypeRecovery,
			Priority: domain.PriorityHigh,
			Adjustments: []domain.Adjustment{
				{Target: "intensity", Delta: scaleDelta(-20, sig)},
				{Target: "volume", Delta: scaleDelta(-15, sig)},
			},
			DurationDays: 5,
			Reason:       fmt.Sprintf("recovery index at %d, trending toward fatigue", m.RecoveryIndex),
			Explanation:  "Recovery is lagging behind training load. Easing off now avoids a forced break later.",
		}
	}

	return nil
}
