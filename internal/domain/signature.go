package domain

import (
	"math"
	"time"
)

// IntensityRange bounds a user's preferred intensity on the 1-10 scale.
type IntensityRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// UserSignature is the slowly-evolving per-user profile, distinct from the
// per-snapshot SignatureMetrics. One exists per user; it is mutated after
// every analysis, and ConfidenceLevel only ever increases (capped at 1.0).
type UserSignature struct {
	UserID                   string         `json:"user_id"`
	PreferredIntensity       IntensityRange `json:"preferred_intensity"`
	AvgRecoveryHours         float64        `json:"avg_recovery_hours"`
	FatigueTriggers          []string       `json:"fatigue_triggers"`
	MotivationalTriggers     []string       `json:"motivational_triggers"`
	CompliancePattern        string         `json:"compliance_pattern"` // steady | burst | variable | unknown
	AdaptationResponsiveness float64        `json:"adaptation_responsiveness"` // 0-1
	PreferredModalities      []string       `json:"preferred_modalities"`
	ProvenPlateauBreakers    []string       `json:"proven_plateau_breakers"`
	ConfidenceLevel          float64        `json:"confidence_level"` // 0-1, monotone non-decreasing
	LastUpdated              time.Time      `json:"last_updated"`
}

// NewDefaultSignature synthesizes the conservative profile used for a
// first-seen user.
func NewDefaultSignature(userID string, now time.Time) *UserSignature {
	return &UserSignature{
		UserID:                   userID,
		PreferredIntensity:       IntensityRange{Min: 5, Max: 8},
		AvgRecoveryHours:         48,
		CompliancePattern:        "unknown",
		AdaptationResponsiveness: 0.5,
		ConfidenceLevel:          0.1,
		LastUpdated:              now,
	}
}

// RaiseConfidence bumps the confidence level by delta, keeping the monotone
// invariant: negative deltas are ignored and the result is capped at 1.0.
func (s *UserSignature) RaiseConfidence(delta float64) {
	if delta <= 0 {
		return
	}
	s.ConfidenceLevel = math.Min(1.0, s.ConfidenceLevel+delta)
}

// FatigueTolerance maps the signature to a 0-1 tolerance scalar used by
// rules to personalize adjustment magnitudes. Users with known fatigue
// triggers and low responsiveness tolerate less.
func (s *UserSignature) FatigueTolerance() float64 {
	tol := 0.5 + 0.3*s.AdaptationResponsiveness
	tol -= 0.1 * float64(len(s.FatigueTriggers))
	if tol < 0.1 {
		tol = 0.1
	}
	if tol > 1.0 {
		tol = 1.0
	}
	return tol
}

// Outcome is the observed result of a past recommendation, reported back
// through the learning loop. Deltas are normalized to [-1, 1].
type Outcome struct {
	AdherenceDelta   float64 `json:"adherence_delta"`
	MotivationDelta  float64 `json:"motivation_delta"`
	PerformanceDelta float64 `json:"performance_delta"`
	Satisfaction     float64 `json:"satisfaction"` // 0-10
}

// Effectiveness folds the outcome deltas into a single scalar in [0, 1].
// 0.5 is neutral; above means the recommendation helped.
func (o Outcome) Effectiveness() float64 {
	raw := 0.4*o.AdherenceDelta + 0.3*o.PerformanceDelta + 0.3*o.MotivationDelta
	eff := (raw + 1) / 2
	if eff < 0 {
		return 0
	}
	if eff > 1 {
		return 1
	}
	return eff
}

// AdaptationHistoryEntry is one persisted record per past analysis.
// Entries are append-only; retention is owned by the external store.
type AdaptationHistoryEntry struct {
	UserID         string         `json:"user_id" db:"user_id"`
	Timestamp      time.Time      `json:"timestamp" db:"timestamp"`
	TriggeredRules []RuleID       `json:"triggered_rules"`
	Recommendation Recommendation `json:"recommendation"`
	Outcome        *Outcome       `json:"outcome,omitempty"`
	Effectiveness  float64        `json:"effectiveness" db:"effectiveness"` // [0,1], 0.5 until outcome recorded
	Satisfaction   float64        `json:"satisfaction" db:"satisfaction"`

	// ContextTags are the tags active when the recommendation was issued,
	// so outcome feedback lands on the right context modifiers.
	ContextTags []string `json:"context_tags,omitempty"`
}

// RuleWeights is the per-user learned weighting state consulted before
// every analysis and updated on outcome feedback.
type RuleWeights struct {
	UserID string `json:"user_id"`

	// Base holds the per-rule base weight.
	Base map[RuleID]float64 `json:"base"`

	// ContextModifiers adjust weights under free-form context tags
	// ("high_stress", "deload_week", ...).
	ContextModifiers map[string]float64 `json:"context_modifiers"`

	// Effectiveness is the learned per-recommendation-type effectiveness
	// rate in [0,1], updated by exponential moving average.
	Effectiveness map[RecommendationType]float64 `json:"effectiveness"`

	LearningRate float64   `json:"learning_rate"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewDefaultRuleWeights returns neutral weights for a first-seen user.
func NewDefaultRuleWeights(userID string) *RuleWeights {
	base := make(map[RuleID]float64)
	for _, id := range []RuleID{
		RuleFatigue, RuleConsistency, RuleProgressiveOverload, RuleRecovery,
		RuleMotivation, RulePlateau, RuleStress, RuleSleep,
	} {
		base[id] = 1.0
	}
	return &RuleWeights{
		UserID:           userID,
		Base:             base,
		ContextModifiers: make(map[string]float64),
		Effectiveness:    make(map[RecommendationType]float64),
		LearningRate:     0.3,
	}
}

// Bounds for the learned weight state. Base weights stay multiplicative
// around 1.0; context modifiers are additive effectiveness shifts.
const (
	baseWeightMin   = 0.5
	baseWeightMax   = 1.5
	contextModMax   = 0.25
	contextShiftMax = 0.2
)

// RecordEffectiveness folds an observed effectiveness into the per-type
// rate using the configured learning rate.
func (w *RuleWeights) RecordEffectiveness(t RecommendationType, eff float64, now time.Time) {
	if eff < 0 {
		eff = 0
	}
	if eff > 1 {
		eff = 1
	}
	prev, ok := w.Effectiveness[t]
	if !ok {
		w.Effectiveness[t] = eff
	} else {
		w.Effectiveness[t] = prev + w.LearningRate*(eff-prev)
	}
	w.UpdatedAt = now
}

// RecordFeedback folds an observed effectiveness into the full learned
// state: the per-type rate, the base weight of every rule that issued the
// recommendation, and the modifier of every context tag active when it was
// issued.
func (w *RuleWeights) RecordFeedback(t RecommendationType, ruleIDs []RuleID, tags []string, eff float64, now time.Time) {
	if eff < 0 {
		eff = 0
	}
	if eff > 1 {
		eff = 1
	}
	w.RecordEffectiveness(t, eff, now)

	if w.Base == nil {
		w.Base = make(map[RuleID]float64)
	}
	for _, id := range ruleIDs {
		base, ok := w.Base[id]
		if !ok {
			base = 1.0
		}
		// A 0.5-neutral outcome leaves the base at 1.0; above pulls it up,
		// below pulls it down.
		base += w.LearningRate * (0.5 + eff - base)
		w.Base[id] = clampRange(base, baseWeightMin, baseWeightMax)
	}

	if w.ContextModifiers == nil {
		w.ContextModifiers = make(map[string]float64)
	}
	for _, tag := range tags {
		mod := w.ContextModifiers[tag]
		mod += w.LearningRate * ((eff - 0.5) - mod)
		w.ContextModifiers[tag] = clampRange(mod, -contextModMax, contextModMax)
	}
}

// TypeRate returns the learned per-type effectiveness rate, with ok=false
// for a type that has never received feedback.
func (w *RuleWeights) TypeRate(t RecommendationType) (float64, bool) {
	rate, ok := w.Effectiveness[t]
	return rate, ok
}

// RuleBias is the mean base weight across the given rules. Rules with no
// learned base count as the neutral 1.0, so an empty selection is neutral.
func (w *RuleWeights) RuleBias(ids []RuleID) float64 {
	if len(ids) == 0 {
		return 1.0
	}
	var sum float64
	for _, id := range ids {
		base, ok := w.Base[id]
		if !ok {
			base = 1.0
		}
		sum += base
	}
	return sum / float64(len(ids))
}

// ContextShift sums the learned modifiers for the active context tags,
// clamped so context alone can never outvote the per-type rate.
func (w *RuleWeights) ContextShift(tags []string) float64 {
	var shift float64
	for _, tag := range tags {
		shift += w.ContextModifiers[tag]
	}
	return clampRange(shift, -contextShiftMax, contextShiftMax)
}

// SeedBase applies rule-set version weights to rules the user has no
// learned base for yet. Learned values are never overwritten; rollout
// weights set the starting point, feedback owns it afterwards.
func (w *RuleWeights) SeedBase(seed map[RuleID]float64) {
	if len(seed) == 0 {
		return
	}
	if w.Base == nil {
		w.Base = make(map[RuleID]float64, len(seed))
	}
	for id, weight := range seed {
		if cur, ok := w.Base[id]; !ok || cur == 1.0 {
			w.Base[id] = clampRange(weight, baseWeightMin, baseWeightMax)
		}
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
