package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan/internal/domain"
)

func newMockedRedisStore(t *testing.T) (*RedisStore, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	return NewRedisStoreWithClient(client, RedisConfig{}), mock
}

func TestRedisStore_GetSignatureMissing(t *testing.T) {
	s, mock := newMockedRedisStore(t)
	mock.ExpectGet("pulseplan:sig:u1").RedisNil()

	_, err := s.GetSignature(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SignatureRoundTrip(t *testing.T) {
	s, mock := newMockedRedisStore(t)
	sig := domain.NewDefaultSignature("u1", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	payload, err := json.Marshal(sig)
	require.NoError(t, err)

	mock.ExpectSet("pulseplan:sig:u1", payload, 0).SetVal("OK")
	require.NoError(t, s.PutSignature(context.Background(), sig))

	mock.ExpectGet("pulseplan:sig:u1").SetVal(string(payload))
	got, err := s.GetSignature(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, sig, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_HistoryAppendAndList(t *testing.T) {
	s, mock := newMockedRedisStore(t)
	entry := domain.AdaptationHistoryEntry{
		UserID:         "u1",
		Timestamp:      time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Recommendation: domain.Recommendation{ID: "rec-1", Type: domain.TypeRecovery},
		Effectiveness:  0.5,
	}
	payload, err := json.Marshal(entry)
	require.NoError(t, err)

	mock.ExpectRPush("pulseplan:hist:u1", payload).SetVal(1)
	require.NoError(t, s.AppendHistory(context.Background(), entry))

	mock.ExpectLRange("pulseplan:hist:u1", 0, -1).SetVal([]string{string(payload)})
	entries, err := s.ListHistory(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "rec-1", entries[0].Recommendation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_RecordOutcome(t *testing.T) {
	s, mock := newMockedRedisStore(t)
	entry := domain.AdaptationHistoryEntry{
		UserID:         "u1",
		Timestamp:      time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Recommendation: domain.Recommendation{ID: "rec-1", Type: domain.TypeRecovery},
		Effectiveness:  0.5,
	}
	payload, err := json.Marshal(entry)
	require.NoError(t, err)

	outcome := domain.Outcome{AdherenceDelta: 0.6, Satisfaction: 7}
	updated := entry
	o := outcome
	updated.Outcome = &o
	updated.Effectiveness = 0.8
	updated.Satisfaction = 7
	updatedPayload, err := json.Marshal(updated)
	require.NoError(t, err)

	mock.ExpectLRange("pulseplan:hist:u1", 0, -1).SetVal([]string{string(payload)})
	mock.ExpectLSet("pulseplan:hist:u1", 0, updatedPayload).SetVal("OK")

	found, err := s.RecordOutcome(context.Background(), "u1", "rec-1", outcome, 0.8)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_RecordOutcomeUnknownID(t *testing.T) {
	s, mock := newMockedRedisStore(t)
	mock.ExpectLRange("pulseplan:hist:u1", 0, -1).SetVal([]string{})

	found, err := s.RecordOutcome(context.Background(), "u1", "rec-missing", domain.Outcome{}, 0.8)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_RuleSetIndex(t *testing.T) {
	s, mock := newMockedRedisStore(t)
	version := &domain.RuleSetVersion{
		Name:        "v2-experimental",
		Version:     "2.0.0",
		ActiveRules: []domain.RuleID{domain.RuleFatigue, domain.RuleSleep},
	}
	payload, err := json.Marshal(version)
	require.NoError(t, err)

	mock.ExpectSet("pulseplan:ruleset:v2-experimental", payload, 0).SetVal("OK")
	mock.ExpectSAdd("pulseplan:rulesets", "v2-experimental").SetVal(1)
	require.NoError(t, s.PutRuleSet(context.Background(), version))

	mock.ExpectSMembers("pulseplan:rulesets").SetVal([]string{"v2-experimental"})
	mock.ExpectGet("pulseplan:ruleset:v2-experimental").SetVal(string(payload))
	list, err := s.ListRuleSets(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "v2-experimental", list[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
