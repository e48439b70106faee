package rules

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// SleepRule targets chronic sleep debt, the single biggest recovery lever.
type SleepRule struct{}

func (SleepRule) ID() domain.RuleID { return domain.RuleSleep }

func (SleepRule) Evaluate(snap domain.MetricsSnapshot, sig *domain.UserSignature, m domain.SignatureMetrics) *domain.Recommendation {
	hours := snap.Lifestyle.SleepHours
	quality := snap.Lifestyle.SleepQuality
	if hours == 0 && quality == 0 {
		// No sleep telemetry at all; stay silent rather than guess.
		return nil
	}

	if hours < 5 || (hours < 6 && quality <= 3) {
		return &domain.Recommendation{
			Type:     domain.TypeRecovery,
			Priority: domain.PriorityHigh,
			Adjustments: []domain.Adjustment{
				{Target: "intensity", Delta: scaleDelta(-15, sig)},
				{Target: "sleep_target_hours", Delta: 1.5},
			},
			DurationDays: 7,
			Reason:       fmt.Sprintf("sleeping %.1f hours at quality %.0f/10", hours, quality),
			Explanation:  "Training gains are built in sleep. Until the nights recover, the plan eases up and the priority shifts to sleep hygiene.",
		}
	}

	if hours < 6.5 && quality <= 5 {
		return &domain.Recommendation{
			Type:     domain.TypeRecovery,
			Priority: domain.PriorityMedium,
			Adjustments: []domain.Adjustment{
				{Target: "sleep_target_hours", Delta: 1},
			},
			DurationDays: 10,
			Reason:       fmt.Sprintf("sleep averaging %.1f hours", hours),
			Explanation:  "Sleep is consistently short of what the current load needs. One extra hour moves every recovery marker.",
		}
	}

	return nil
}
