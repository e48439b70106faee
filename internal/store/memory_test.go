package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan/internal/domain"
)

func TestMemoryStore_SignatureRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetSignature(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	sig := domain.NewDefaultSignature("u1", time.Now())
	sig.FatigueTriggers = []string{"poor_sleep"}
	require.NoError(t, s.PutSignature(ctx, sig))

	got, err := s.GetSignature(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	// The returned copy must not alias stored slices.
	got.FatigueTriggers[0] = "mutated"
	again, err := s.GetSignature(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "poor_sleep", again.FatigueTriggers[0])
}

func TestMemoryStore_HistoryOrderingAndOutcome(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	newer := domain.AdaptationHistoryEntry{
		UserID:         "u1",
		Timestamp:      base.Add(48 * time.Hour),
		Recommendation: domain.Recommendation{ID: "rec-2", Type: domain.TypeVolume},
		Effectiveness:  0.5,
	}
	older := domain.AdaptationHistoryEntry{
		UserID:         "u1",
		Timestamp:      base,
		Recommendation: domain.Recommendation{ID: "rec-1", Type: domain.TypeIntensity},
		Effectiveness:  0.5,
	}
	require.NoError(t, s.AppendHistory(ctx, newer))
	require.NoError(t, s.AppendHistory(ctx, older))

	entries, err := s.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "rec-1", entries[0].Recommendation.ID, "history lists oldest first")
	assert.Equal(t, "rec-2", entries[1].Recommendation.ID)

	outcome := domain.Outcome{AdherenceDelta: 0.8, Satisfaction: 8}
	found, err := s.RecordOutcome(ctx, "u1", "rec-1", outcome, 0.9)
	require.NoError(t, err)
	assert.True(t, found)

	entries, err = s.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, entries[0].Outcome)
	assert.Equal(t, 0.9, entries[0].Effectiveness)
	assert.Equal(t, 8.0, entries[0].Satisfaction)

	// Unknown recommendation id is a no-op, not an error.
	found, err = s.RecordOutcome(ctx, "u1", "rec-missing", outcome, 0.9)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_WeightsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetWeights(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	w := domain.NewDefaultRuleWeights("u1")
	require.NoError(t, s.PutWeights(ctx, w))

	// Mutating the caller's maps after Put must not leak into the store.
	w.Base[domain.RuleFatigue] = 99

	got, err := s.GetWeights(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Base[domain.RuleFatigue])

	// Nor should mutating the returned copy.
	got.Effectiveness[domain.TypeRecovery] = 0.7
	again, err := s.GetWeights(ctx, "u1")
	require.NoError(t, err)
	_, present := again.Effectiveness[domain.TypeRecovery]
	assert.False(t, present)
}

func TestMemoryStore_RuleSetsSortedByName(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetRuleSet(ctx, "v2")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutRuleSet(ctx, &domain.RuleSetVersion{Name: "v2-experimental", Version: "2.0.0"}))
	require.NoError(t, s.PutRuleSet(ctx, &domain.RuleSetVersion{Name: "v1-stable", Version: "1.4.0"}))

	list, err := s.ListRuleSets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "v1-stable", list[0].Name)
	assert.Equal(t, "v2-experimental", list[1].Name)

	got, err := s.GetRuleSet(ctx, "v1-stable")
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", got.Version)
}
