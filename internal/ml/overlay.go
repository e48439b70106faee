package ml

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// ConfidenceThreshold gates overlay application: predictions below it leave
// the rule-based output untouched.
const ConfidenceThreshold = 0.7

// Overlay nudges numeric fields of matching rule-based recommendations
// using a deployed model's prediction. It never adds or removes a
// recommendation and never propagates an error.
type Overlay struct {
	provider Provider
}

// NewOverlay wraps a provider; nil disables the overlay entirely.
func NewOverlay(provider Provider) *Overlay {
	return &Overlay{provider: provider}
}

// Apply returns the recommendations with ML adjustments blended in where
// the model is confident and its predicted type matches an existing
// recommendation. Every failure path returns the input unchanged.
func (o *Overlay) Apply(ctx context.Context, snap domain.MetricsSnapshot, m domain.SignatureMetrics, recs []domain.Recommendation) []domain.Recommendation {
	if o == nil || o.provider == nil || len(recs) == 0 {
		return recs
	}
	if o.provider.Status() != StatusProduction {
		return recs
	}

	pred, err := o.provider.Predict(ctx, ExtractFeatures(snap, m))
	if err != nil {
		log.Debug().Err(err).Msg("ml overlay skipped, prediction failed")
		return recs
	}
	if pred == nil || pred.Confidence < ConfidenceThreshold {
		return recs
	}

	matched := false
	out := make([]domain.Recommendation, len(recs))
	for i, rec := range recs {
		if matched || rec.Type != pred.Type {
			out[i] = rec
			continue
		}
		out[i] = blend(rec, pred)
		matched = true
	}
	if !matched {
		return recs
	}
	return out
}

// blend overwrites only the numeric adjustments and duration, averaging
// the model's deltas with the rule's where both exist, and appends an ML
// provenance note to the explanation.
func blend(rec domain.Recommendation, pred *Prediction) domain.Recommendation {
	out := rec.Clone()

	for i, adj := range out.Adjustments {
		if delta, ok := pred.AdjustmentDeltas[adj.Target]; ok {
			out.Adjustments[i].Delta = (adj.Delta + delta) / 2
		}
	}
	if pred.DurationDays > 0 {
		out.DurationDays = (out.DurationDays + pred.DurationDays + 1) / 2
	}
	out.MLAdjusted = true
	out.Explanation = fmt.Sprintf("%s Fine-tuned by the adaptation model (confidence %.0f%%).",
		out.Explanation, pred.Confidence*100)
	return out
}
