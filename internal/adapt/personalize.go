package adapt

import (
	"fmt"
	"strings"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// genericStrategies are the fallback suggestions used when the signature
// has no proven personal strategies yet.
var genericStrategies = map[domain.RecommendationType]string{
	domain.TypeExerciseSwap: "rotate in unfamiliar movement patterns",
	domain.TypeRecovery:     "low-intensity active recovery",
	domain.TypeRestDay:      "full rest with light walking",
	domain.TypeFrequency:    "anchor sessions to fixed weekdays",
	domain.TypeNutrition:    "prioritize protein and hydration",
}

// Personalizer rewrites embedded strategy text and parameters from the user
// signature. It never changes a recommendation's type or priority, and it is
// idempotent: applying it twice yields the same result.
type Personalizer struct{}

// NewPersonalizer returns a personalization pass.
func NewPersonalizer() *Personalizer {
	return &Personalizer{}
}

// Apply returns personalized copies of the candidates.
func (p *Personalizer) Apply(recs []domain.Recommendation, sig *domain.UserSignature) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, p.personalize(rec.Clone(), sig))
	}
	return out
}

const personalNoteMarker = "Personal note:"

func (p *Personalizer) personalize(rec domain.Recommendation, sig *domain.UserSignature) domain.Recommendation {
	if strings.Contains(rec.Explanation, personalNoteMarker) {
		return rec // already personalized
	}

	var note string
	switch rec.Type {
	case domain.TypeExerciseSwap:
		if len(sig.ProvenPlateauBreakers) > 0 {
			note = fmt.Sprintf("%s has worked for you before", strings.Join(sig.ProvenPlateauBreakers, ", "))
		} else if fallback, ok := genericStrategies[rec.Type]; ok {
			note = fallback
		}
	case domain.TypeFrequency:
		if len(sig.MotivationalTriggers) > 0 {
			note = fmt.Sprintf("lean on what keeps you going: %s", strings.Join(sig.MotivationalTriggers, ", "))
		} else if fallback, ok := genericStrategies[rec.Type]; ok {
			note = fallback
		}
	default:
		if len(sig.PreferredModalities) > 0 {
			note = fmt.Sprintf("keep your preferred %s work in the mix", strings.Join(sig.PreferredModalities, "/"))
		} else if fallback, ok := genericStrategies[rec.Type]; ok {
			note = fallback
		}
	}

	if note != "" {
		rec.Explanation = strings.TrimSpace(rec.Explanation + " " + personalNoteMarker + " " + note + ".")
	}

	// Clamp intensity targets into the user's preferred range when the plan
	// would land outside it after the adjustment.
	if delta, ok := rec.AdjustmentFor("intensity"); ok && delta > 0 {
		for i, adj := range rec.Adjustments {
			if adj.Target == "intensity" && sig.PreferredIntensity.Max > 0 {
				capDelta := (sig.PreferredIntensity.Max - sig.PreferredIntensity.Min) * 10
				if adj.Delta > capDelta {
					rec.Adjustments[i].Delta = capDelta
				}
			}
		}
	}

	return rec
}
