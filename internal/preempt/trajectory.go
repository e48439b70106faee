package preempt

import (
	"math"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// TrajectoryPoint is one projected week of the tracked metrics with a
// confidence interval that widens as the horizon grows.
type TrajectoryPoint struct {
	Week       int            `json:"week"`
	Projected  map[string]int `json:"projected"`
	LowerBound map[string]int `json:"lower_bound"`
	UpperBound map[string]int `json:"upper_bound"`
}

const (
	trajectoryWeeks  = 4
	projectedOptimum = 85 // metrics converge toward this cap, not 100
)

// projectTrajectory extrapolates each tracked metric linearly toward the
// capped optimum. The weekly step scales with the user's adaptation
// responsiveness, and the interval widens by ±4 points per week out.
func projectTrajectory(m domain.SignatureMetrics, sig *domain.UserSignature) []TrajectoryPoint {
	tracked := []string{"recovery_index", "adherence_quality", "progress_velocity", "motivational_momentum"}
	current := m.Map()

	points := make([]TrajectoryPoint, 0, trajectoryWeeks)
	for week := 1; week <= trajectoryWeeks; week++ {
		spread := 4 * week
		point := TrajectoryPoint{
			Week:       week,
			Projected:  make(map[string]int, len(tracked)),
			LowerBound: make(map[string]int, len(tracked)),
			UpperBound: make(map[string]int, len(tracked)),
		}
		for _, name := range tracked {
			start := float64(current[name])
			// Move a responsiveness-scaled fraction of the remaining gap
			// each week.
			gap := float64(projectedOptimum) - start
			step := gap * 0.15 * (0.5 + sig.AdaptationResponsiveness)
			projected := start + step*float64(week)
			if gap >= 0 {
				projected = math.Min(projected, projectedOptimum)
			} else {
				projected = math.Max(projected, projectedOptimum)
			}
			point.Projected[name] = clampPct(projected)
			point.LowerBound[name] = clampPct(projected - float64(spread))
			point.UpperBound[name] = clampPct(projected + float64(spread))
		}
		points = append(points, point)
	}
	return points
}

func clampPct(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

// RiskAssessment scores the standing risk categories from simple threshold
// rules and attaches static mitigation strategies.
type RiskAssessment struct {
	PlateauRisk        float64  `json:"plateau_risk"`
	BurnoutRisk        float64  `json:"burnout_risk"`
	InjuryRisk         float64  `json:"injury_risk"`
	MotivationDropRisk float64  `json:"motivation_drop_risk"`
	AdherenceRisk      float64  `json:"adherence_risk"`
	Mitigations        []string `json:"mitigations"`
}

var standardMitigations = []string{
	"keep at least one full rest day per week regardless of plan",
	"review recommendations weekly rather than mid-block",
	"treat two consecutive missed sessions as a schedule problem, not a willpower problem",
	"log sleep and stress daily; they lead every other metric",
}

// assessRisks maps metric bands to risk scores in [0,1].
func assessRisks(m domain.SignatureMetrics) RiskAssessment {
	return RiskAssessment{
		PlateauRisk:        bandRisk(m.ProgressVelocity, 20, 40),
		BurnoutRisk:        bandRisk(m.RecoveryIndex, 15, 40),
		InjuryRisk:         bandRisk(m.Resilience, 25, 50),
		MotivationDropRisk: bandRisk(m.MotivationalMomentum, 25, 45),
		AdherenceRisk:      bandRisk(m.AdherenceQuality, 35, 60),
		Mitigations:        standardMitigations,
	}
}

// bandRisk returns 0.9 below the critical bound, 0.6 below the warning
// bound, and scales down toward 0.1 above it.
func bandRisk(value, critical, warning int) float64 {
	switch {
	case value < critical:
		return 0.9
	case value < warning:
		return 0.6
	case value < warning+20:
		return 0.3
	default:
		return 0.1
	}
}
