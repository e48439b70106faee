package rules

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// StressRule trims training load when life stress and workload spike
// together; training through both compounds the strain.
type StressRule struct{}

func (StressRule) ID() domain.RuleID { return domain.RuleStress }

func (StressRule) Evaluate(snap domain.MetricsSnapshot, sig *domain.UserSignature, m domain.SignatureMetrics) *domain.Recommendation {
	stress := snap.Lifestyle.StressLevel
	workload := snap.Lifestyle.WorkloadLevel

	if stress >= 8 && workload >= 8 {
		return &domain.Recommendation{
			Type:     domain.TypeIntensity,
			Priority: domain.PriorityCritical,
			Adjustments: []domain.Adjustment{
				{Target: "intensity", Delta: -30},
				{Target: "session_duration", Delta: -20},
			},
			DurationDays: 7,
			Reason:       fmt.Sprintf("stress %.0f/10 with workload %.0f/10", stress, workload),
			Explanation:  "Life stress and workload are both maxed. Shorter, easier sessions keep the habit alive without adding strain.",
		}
	}

	if stress >= 7 {
		return &domain.Recommendation{
			Type:     domain.TypeNutrition,
			Priority: domain.PriorityMedium,
			Adjustments: []domain.Adjustment{
				{Target: "intensity", Delta: scaleDelta(-10, sig)},
				{Target: "protein_focus", Delta: 1},
			},
			DurationDays: 5,
			Reason:       fmt.Sprintf("elevated stress at %.0f/10", stress),
			Explanation:  "High stress raises recovery cost. Easing intensity and tightening nutrition covers the gap.",
		}
	}

	return nil
}
