// Package explain builds the structured, human-readable rationale for an
// analysis result: why the top recommendation was chosen, which metrics
// drove it, what was considered instead, and what to expect.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// Explanation is the full rationale bundle returned with a recommendation
// list.
type Explanation struct {
	PrimaryReason       string        `json:"primary_reason"`
	ContributingFactors []Factor      `json:"contributing_factors"`
	Confidence          float64       `json:"confidence"` // [0,1]
	RiskFactors         []string      `json:"risk_factors"`
	Alternatives        []Alternative `json:"alternatives_considered"`
	DataPoints          []string      `json:"data_points"`
	HistoricalContext   string        `json:"historical_context,omitempty"`
	TimelineExpectation string        `json:"timeline_expectation"`
}

// Factor records one metric's contribution to the decision.
type Factor struct {
	Metric string `json:"metric"`
	Value  int    `json:"value"`
	Impact string `json:"impact"` // high | moderate | low
	Trend  string `json:"trend"`  // declining | stable | improving
}

// Alternative is a considered-but-rejected option with the condition under
// which it would be revisited.
type Alternative struct {
	Option          string `json:"option"`
	ReasonNotChosen string `json:"reason_not_chosen"`
	ReconsiderWhen  string `json:"reconsider_when"`
}

// Generator produces explanations from finalized recommendations.
type Generator struct{}

// NewGenerator returns an explanation generator.
func NewGenerator() *Generator {
	return &Generator{}
}

var primaryReasons = map[domain.RecommendationType]string{
	domain.TypeIntensity:    "Training intensity needs adjusting to match what your body is currently handling.",
	domain.TypeVolume:       "The amount of work per session is the lever that fits your current state best.",
	domain.TypeFrequency:    "Your weekly schedule is the main constraint right now, so the session count changes first.",
	domain.TypeExerciseSwap: "The current exercises have stopped producing the response they used to.",
	domain.TypeRestDay:      "Your recovery markers call for full rest before any further training stress.",
	domain.TypeNutrition:    "Nutrition is currently the cheapest way to improve how you respond to training.",
	domain.TypeRecovery:     "Recovery is lagging behind training load and needs dedicated attention.",
}

// Generate builds the explanation for a finalized recommendation list. When
// the list is empty it returns the fixed steady-state explanation with high
// confidence and no risks.
func (g *Generator) Generate(recs []domain.Recommendation, m domain.SignatureMetrics, sig *domain.UserSignature, history []domain.AdaptationHistoryEntry) *Explanation {
	if len(recs) == 0 {
		return &Explanation{
			PrimaryReason:       "Your current plan is working well. No changes needed, keep going.",
			ContributingFactors: contributingFactors(m),
			Confidence:          0.9,
			RiskFactors:         []string{},
			DataPoints:          dataPoints(m),
			TimelineExpectation: "Re-evaluated at your next check-in.",
		}
	}

	top := recs[0]
	factors := contributingFactors(m)

	return &Explanation{
		PrimaryReason:       primaryReason(top),
		ContributingFactors: factors,
		Confidence:          confidence(factors, sig),
		RiskFactors:         riskFactors(recs),
		Alternatives:        alternatives(top),
		DataPoints:          dataPoints(m),
		HistoricalContext:   historicalContext(history),
		TimelineExpectation: timeline(top.DurationDays),
	}
}

func primaryReason(top domain.Recommendation) string {
	reason, ok := primaryReasons[top.Type]
	if !ok {
		reason = "The strongest signal in your data points to this change."
	}
	if top.Reason != "" {
		reason = fmt.Sprintf("%s Triggered by: %s.", reason, top.Reason)
	}
	return reason
}

// contributingFactors ranks metrics by distance from the neutral midpoint;
// the furthest from neutral carried the most weight in the decision.
func contributingFactors(m domain.SignatureMetrics) []Factor {
	factors := make([]Factor, 0, 9)
	for name, value := range m.Map() {
		factors = append(factors, Factor{
			Metric: name,
			Value:  value,
			Impact: impactTier(value),
			Trend:  trend(value),
		})
	}
	sort.Slice(factors, func(i, j int) bool {
		di, dj := distance(factors[i].Value), distance(factors[j].Value)
		if di != dj {
			return di > dj
		}
		return factors[i].Metric < factors[j].Metric
	})
	return factors
}

func distance(v int) int {
	if v >= 50 {
		return v - 50
	}
	return 50 - v
}

func impactTier(v int) string {
	switch {
	case v < 25 || v > 75:
		return "high"
	case v < 40 || v > 60:
		return "moderate"
	default:
		return "low"
	}
}

func trend(v int) string {
	switch {
	case v < 40:
		return "declining"
	case v > 60:
		return "improving"
	default:
		return "stable"
	}
}

// confidence blends the fraction of high-impact factors with the
// signature's own confidence level.
func confidence(factors []Factor, sig *domain.UserSignature) float64 {
	var high float64
	for _, f := range factors {
		if f.Impact == "high" {
			high++
		}
	}
	frac := 0.0
	if len(factors) > 0 {
		frac = high / float64(len(factors))
	}
	c := 0.6*frac + 0.4*sig.ConfidenceLevel
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// riskFactors populates when any recommendation is critical or carries a
// large negative intensity adjustment.
func riskFactors(recs []domain.Recommendation) []string {
	risks := []string{}
	for _, r := range recs {
		if r.Priority == domain.PriorityCritical {
			risks = append(risks, fmt.Sprintf("Ignoring this %s change risks a longer forced break later.", r.Type))
		}
		if delta, ok := r.AdjustmentFor("intensity"); ok && delta <= -30 {
			risks = append(risks, "The intensity cut is large; expect it to feel too easy before it feels right.")
		}
	}
	return risks
}

var alternativeTable = map[domain.RecommendationType][]Alternative{
	domain.TypeIntensity: {
		{
			Option:          "keep intensity, reduce volume instead",
			ReasonNotChosen: "intensity is the stronger driver of the current strain",
			ReconsiderWhen:  "recovery index holds above 50 for two weeks",
		},
		{
			Option:          "insert a full rest week",
			ReasonNotChosen: "a full stop risks breaking the training habit",
			ReconsiderWhen:  "fatigue persists after this adjustment window",
		},
	},
	domain.TypeVolume: {
		{
			Option:          "raise intensity at constant volume",
			ReasonNotChosen: "volume changes are easier to recover from if misjudged",
			ReconsiderWhen:  "two consecutive weeks of full completion at the new volume",
		},
	},
	domain.TypeFrequency: {
		{
			Option:          "shorten sessions instead of removing them",
			ReasonNotChosen: "missed sessions, not long sessions, are driving the inconsistency",
			ReconsiderWhen:  "weekly consistency recovers above 70%",
		},
	},
}

func alternatives(top domain.Recommendation) []Alternative {
	return alternativeTable[top.Type]
}

// dataPoints lists the literal metric values the decision was based on.
func dataPoints(m domain.SignatureMetrics) []string {
	values := m.Map()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	points := make([]string, 0, len(names))
	for _, name := range names {
		points = append(points, fmt.Sprintf("%s=%d", name, values[name]))
	}
	return points
}

// historicalContext summarizes up to the 3 most recent history entries with
// effectiveness above 0.7.
func historicalContext(history []domain.AdaptationHistoryEntry) string {
	var wins []domain.AdaptationHistoryEntry
	for _, e := range history {
		if e.Effectiveness > 0.7 {
			wins = append(wins, e)
		}
	}
	if len(wins) == 0 {
		return ""
	}
	sort.Slice(wins, func(i, j int) bool { return wins[i].Timestamp.After(wins[j].Timestamp) })
	if len(wins) > 3 {
		wins = wins[:3]
	}
	types := make([]string, 0, len(wins))
	for _, e := range wins {
		types = append(types, string(e.Recommendation.Type))
	}
	return fmt.Sprintf("Similar adjustments worked well for you before (%s), most recently on %s.",
		strings.Join(types, ", "), wins[0].Timestamp.Format("Jan 2"))
}

// timeline converts a duration in days into a qualitative expectation.
func timeline(days int) string {
	switch {
	case days <= 0:
		return "Effect expected immediately."
	case days <= 5:
		return "Expect a noticeable difference within the week."
	case days <= 10:
		return "Expect clear movement in one to two weeks."
	case days <= 21:
		return "Give this about three weeks before judging it."
	default:
		return fmt.Sprintf("This is a longer play: plan on roughly %d weeks.", (days+6)/7)
	}
}
