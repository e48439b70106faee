package rules

import (
	"fmt"
	"math"

	"github.com/pulseplan/pulseplan/internal/domain"
)

const (
	consistencyCriticalRate   = 0.3
	consistencyStandardRate   = 0.6
	consistencyCriticalStreak = 2
)

// ConsistencyRule reacts to a collapsing session cadence. A broken streak
// with very low weekly consistency is treated as an adherence crisis.
type ConsistencyRule struct{}

func (ConsistencyRule) ID() domain.RuleID { return domain.RuleConsistency }

func (ConsistencyRule) Evaluate(snap domain.MetricsSnapshot, sig *domain.UserSignature, m domain.SignatureMetrics) *domain.Recommendation {
	consistency := snap.Progress.WeeklyConsistency
	streak := snap.Progress.CurrentStreak

	if consistency < consistencyCriticalRate && streak <= consistencyCriticalStreak {
		target := math.Max(2, float64(snap.Plan.WeeklyFrequency)-2)
		return &domain.Recommendation{
			Type:     domain.TypeFrequency,
			Priority: domain.PriorityCritical,
			Adjustments: []domain.Adjustment{
				{Target: "weekly_frequency", Delta: target - float64(snap.Plan.WeeklyFrequency)},
				{Target: "session_volume", Delta: scaleDelta(-20, sig)},
			},
			DurationDays: 14,
			Reason:       fmt.Sprintf("weekly consistency at %.0f%% with streak %d", consistency*100, streak),
			Explanation:  "The plan is asking for more sessions than your week allows. Shrinking the commitment rebuilds the habit before rebuilding the volume.",
		}
	}

	if consistency < consistencyStandardRate {
		return &domain.Recommendation{
			Type:     domain.TypeFrequency,
			Priority: domain.PriorityMedium,
			Adjustments: []domain.Adjustment{
				{Target: "weekly_frequency", Delta: -1},
			},
			DurationDays: 10,
			Reason:       fmt.Sprintf("weekly consistency at %.0f%%", consistency*100),
			Explanation:  "Dropping one weekly session makes the plan easier to keep, which beats a bigger plan you keep missing.",
		}
	}

	return nil
}
