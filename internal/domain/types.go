// Package domain defines the core value types shared across the adaptive
// recommendation pipeline: telemetry snapshots, derived signature metrics,
// the per-user signature, and the recommendation taxonomy.
package domain

import (
	"sort"
	"time"
)

// Priority is the ordered severity of a recommendation.
// Sort order for any recommendation list is critical > high > medium > low.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Promote raises the priority one level, clamped at critical.
func (p Priority) Promote() Priority {
	if p >= PriorityCritical {
		return PriorityCritical
	}
	return p + 1
}

// Demote lowers the priority one level, clamped at low.
func (p Priority) Demote() Priority {
	if p <= PriorityLow {
		return PriorityLow
	}
	return p - 1
}

// RecommendationType is the fixed taxonomy of plan changes.
type RecommendationType string

const (
	TypeIntensity    RecommendationType = "intensity"
	TypeVolume       RecommendationType = "volume"
	TypeFrequency    RecommendationType = "frequency"
	TypeExerciseSwap RecommendationType = "exercise_swap"
	TypeRestDay      RecommendationType = "rest_day"
	TypeNutrition    RecommendationType = "nutrition"
	TypeRecovery     RecommendationType = "recovery"
)

// RuleID identifies an evaluation rule. Interaction lookups are name-based,
// keyed by sets of these identifiers.
type RuleID string

const (
	RuleFatigue             RuleID = "fatigue"
	RuleConsistency         RuleID = "consistency"
	RuleProgressiveOverload RuleID = "progressive_overload"
	RuleRecovery            RuleID = "recovery"
	RuleMotivation          RuleID = "motivation"
	RulePlateau             RuleID = "plateau"
	RuleStress              RuleID = "stress"
	RuleSleep               RuleID = "sleep"
)

// Adjustment is one target+delta pair inside a recommendation,
// e.g. {Target: "intensity", Delta: -40} for a 40% intensity cut.
type Adjustment struct {
	Target string  `json:"target" yaml:"target"`
	Delta  float64 `json:"delta" yaml:"delta"`
}

// Recommendation is a proposed plan change. It is never mutated after being
// returned to the caller; pipeline stages that adjust one work on copies.
type Recommendation struct {
	ID           string             `json:"id"`
	Type         RecommendationType `json:"type"`
	Priority     Priority           `json:"priority"`
	Adjustments  []Adjustment       `json:"adjustments"`
	DurationDays int                `json:"duration_days"`
	Reason       string             `json:"reason"`
	Explanation  string             `json:"explanation"`

	// Strategy names the compound strategy when the recommendation was
	// produced or retagged by rule chaining.
	Strategy string `json:"strategy,omitempty"`

	// SourceRules records which rules contributed, for interaction lookups
	// and provenance.
	SourceRules []RuleID `json:"source_rules"`

	MLAdjusted bool `json:"ml_adjusted,omitempty"`
}

// Clone returns a deep copy so pipeline stages never alias adjustments.
func (r Recommendation) Clone() Recommendation {
	out := r
	out.Adjustments = append([]Adjustment(nil), r.Adjustments...)
	out.SourceRules = append([]RuleID(nil), r.SourceRules...)
	return out
}

// AdjustmentFor returns the delta for a target, with ok=false when absent.
func (r Recommendation) AdjustmentFor(target string) (float64, bool) {
	for _, a := range r.Adjustments {
		if a.Target == target {
			return a.Delta, true
		}
	}
	return 0, false
}

// SortByPriority orders recommendations critical > high > medium > low.
// The sort is stable: ties keep their original order.
func SortByPriority(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority > recs[j].Priority
	})
}

// RuleSetVersion is a named, versioned bundle of active rules and weights
// used for controlled rollout. Immutable once activated except for RetiredAt.
type RuleSetVersion struct {
	Name             string             `json:"name" yaml:"name"`
	Version          string             `json:"version" yaml:"version"`
	ActiveRules      []RuleID           `json:"active_rules" yaml:"active_rules"`
	Weights          map[RuleID]float64 `json:"weights" yaml:"weights"`
	TestGroupPercent int                `json:"test_group_percent" yaml:"test_group_percent"`
	ActivatedAt      time.Time          `json:"activated_at" yaml:"activated_at"`
	RetiredAt        *time.Time         `json:"retired_at,omitempty" yaml:"retired_at,omitempty"`
}

// Includes reports whether the version activates the given rule.
func (v RuleSetVersion) Includes(id RuleID) bool {
	for _, r := range v.ActiveRules {
		if r == id {
			return true
		}
	}
	return false
}
