package rules

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// RecoveryRule reacts to acute overreach signals: heavy soreness on top of
// poor sleep. Distinct from the fatigue rule, which watches the slower
// composite recovery index.
type RecoveryRule struct{}

func (RecoveryRule) ID() domain.RuleID { return domain.RuleRecovery }

func (RecoveryRule) Evaluate(snap domain.MetricsSnapshot, sig *domain.UserSignature, m domain.SignatureMetrics) *domain.Recommendation {
	soreness := snap.Biometrics.SorenessLevel
	sleepShort := snap.Lifestyle.SleepHours > 0 && snap.Lifestyle.SleepHours < 6

	if soreness >= 8 && sleepShort {
		return &domain.Recommendation{
			Type:     domain.TypeRestDay,
			Priority: domain.PriorityCritical,
			Adjustments: []domain.Adjustment{
				{Target: "rest_days", Delta: 2},
			},
			DurationDays: 3,
			Reason:       fmt.Sprintf("soreness %.0f/10 on under six hours of sleep", soreness),
			Explanation:  "Severe soreness combined with short sleep is an acute overreach signal. Two full rest days reset it fastest.",
		}
	}

	if soreness >= 6 {
		return &domain.Recommendation{
			Type:     domain.TypeRecovery,
			Priority: domain.PriorityMedium,
			Adjustments: []domain.Adjustment{
				{Target: "intensity", Delta: scaleDelta(-10, sig)},
				{Target: "rest_days", Delta: 1},
			},
			DurationDays: 4,
			Reason:       fmt.Sprintf("soreness holding at %.0f/10", soreness),
			Explanation:  "Persistent soreness means tissue recovery is behind schedule. One easier block clears it.",
		}
	}

	return nil
}
