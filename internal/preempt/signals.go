package preempt

import (
	"fmt"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// EarlyWarning compares a metric's current value to its warning and
// critical thresholds and estimates days to breach by linear extrapolation.
type EarlyWarning struct {
	Metric            string  `json:"metric"`
	CurrentValue      int     `json:"current_value"`
	WarningThreshold  int     `json:"warning_threshold"`
	CriticalThreshold int     `json:"critical_threshold"`
	DaysToCritical    int     `json:"days_to_critical"` // 0 = already there
	Message           string  `json:"message"`
}

// watchlist defines the metrics worth an early warning and their bands.
var watchlist = []struct {
	metric   string
	warning  int
	critical int
	// assumedDailyDrift is the conservative per-day decline used for the
	// linear days-to-threshold estimate.
	assumedDailyDrift float64
}{
	{"recovery_index", 40, 15, 3.0},
	{"motivational_momentum", 45, 25, 2.5},
	{"adherence_quality", 60, 35, 2.0},
	{"progress_velocity", 40, 20, 1.5},
}

// earlyWarnings emits a warning for every watched metric at or below its
// warning threshold.
func earlyWarnings(m domain.SignatureMetrics) []EarlyWarning {
	values := m.Map()
	var warnings []EarlyWarning
	for _, w := range watchlist {
		current := values[w.metric]
		if current > w.warning {
			continue
		}
		days := 0
		if current > w.critical {
			days = int(float64(current-w.critical) / w.assumedDailyDrift)
			if days < 1 {
				days = 1
			}
		}
		msg := fmt.Sprintf("%s at %d has crossed the warning threshold %d", w.metric, current, w.warning)
		if days == 0 {
			msg = fmt.Sprintf("%s at %d is already past the critical threshold %d", w.metric, current, w.critical)
		}
		warnings = append(warnings, EarlyWarning{
			Metric:            w.metric,
			CurrentValue:      current,
			WarningThreshold:  w.warning,
			CriticalThreshold: w.critical,
			DaysToCritical:    days,
			Message:           msg,
		})
	}
	return warnings
}

// ContingencyPlan is a prepared response to a named crisis scenario.
type ContingencyPlan struct {
	Scenario           string   `json:"scenario"`
	ImmediateAction    string   `json:"immediate_action"`
	FollowUps          []string `json:"follow_ups"`
	SuccessProbability float64  `json:"success_probability"`
}

// contingencyPlans returns the plans relevant to the current state. The
// motivation-crisis template is always included; the rest join when their
// trigger metrics are in range.
func contingencyPlans(m domain.SignatureMetrics, sig *domain.UserSignature) []ContingencyPlan {
	plans := []ContingencyPlan{
		{
			Scenario:        "motivation_crisis",
			ImmediateAction: "drop to two short sessions of whatever you enjoy most this week",
			FollowUps: []string{
				"reintroduce one structured session after the first completed week",
				"review goals and pick one visible four-week target",
			},
			SuccessProbability: successWithSignature(0.7, sig),
		},
	}

	if m.Resilience < 45 || m.RecoveryIndex < 40 {
		plans = append(plans, ContingencyPlan{
			Scenario:        "injury_risk",
			ImmediateAction: "replace high-impact work with low-impact alternatives for one week",
			FollowUps: []string{
				"add ten minutes of targeted mobility before each session",
				"escalate to a professional assessment if pain appears",
			},
			SuccessProbability: successWithSignature(0.65, sig),
		})
	}

	if m.MetabolicAdaptation >= 60 && m.ProgressVelocity < 35 {
		plans = append(plans, ContingencyPlan{
			Scenario:        "plateau_extended",
			ImmediateAction: "run one week at 60% volume, then switch the primary modality",
			FollowUps: []string{
				"retest baseline lifts or times after the reset week",
			},
			SuccessProbability: successWithSignature(0.6, sig),
		})
	}

	if m.PlanVolatility >= 60 {
		plans = append(plans, ContingencyPlan{
			Scenario:        "life_disruption",
			ImmediateAction: "switch to a minimum viable plan: two fixed 20-minute sessions",
			FollowUps: []string{
				"hold the minimum plan until the schedule stabilizes for two weeks",
			},
			SuccessProbability: successWithSignature(0.75, sig),
		})
	}

	return plans
}

// successWithSignature tilts a base probability by how well the engine
// knows the user.
func successWithSignature(base float64, sig *domain.UserSignature) float64 {
	p := base + 0.15*sig.ConfidenceLevel
	if p > 0.95 {
		p = 0.95
	}
	return p
}
