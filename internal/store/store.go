// Package store defines the injected persistence abstraction for per-user
// engine state: signatures, adaptation history, learned weights, and
// rule-set versions. The engine is constructed against these interfaces;
// implementations cover in-memory (default and tests), Redis, and Postgres.
package store

import (
	"context"
	"errors"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// ErrNotFound is returned when a user has no stored record of the
// requested kind.
var ErrNotFound = errors.New("store: not found")

// SignatureStore persists user signatures keyed by user id.
type SignatureStore interface {
	GetSignature(ctx context.Context, userID string) (*domain.UserSignature, error)
	PutSignature(ctx context.Context, sig *domain.UserSignature) error
}

// HistoryStore persists the append-only adaptation history.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry domain.AdaptationHistoryEntry) error
	// ListHistory returns all entries for a user, oldest first.
	ListHistory(ctx context.Context, userID string) ([]domain.AdaptationHistoryEntry, error)
	// RecordOutcome attaches an outcome to the history entry whose
	// recommendation matches recommendationID. It returns false when no
	// such entry exists; that is not an error.
	RecordOutcome(ctx context.Context, userID, recommendationID string, outcome domain.Outcome, effectiveness float64) (bool, error)
}

// WeightsStore persists learned rule weights keyed by user id.
type WeightsStore interface {
	GetWeights(ctx context.Context, userID string) (*domain.RuleWeights, error)
	PutWeights(ctx context.Context, weights *domain.RuleWeights) error
}

// RuleSetStore persists rule-set versions for controlled rollout.
type RuleSetStore interface {
	GetRuleSet(ctx context.Context, name string) (*domain.RuleSetVersion, error)
	PutRuleSet(ctx context.Context, version *domain.RuleSetVersion) error
	ListRuleSets(ctx context.Context) ([]domain.RuleSetVersion, error)
}

// Store is the full persistence surface the engine depends on.
type Store interface {
	SignatureStore
	HistoryStore
	WeightsStore
	RuleSetStore
}
