package store

import (
	"context"
	"sort"
	"sync"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// MemoryStore is the default in-process Store. Thread-safe; state lives for
// the process lifetime. It also serves as the reference implementation for
// the store contract in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	signatures map[string]domain.UserSignature
	history    map[string][]domain.AdaptationHistoryEntry
	weights    map[string]domain.RuleWeights
	ruleSets   map[string]domain.RuleSetVersion
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		signatures: make(map[string]domain.UserSignature),
		history:    make(map[string][]domain.AdaptationHistoryEntry),
		weights:    make(map[string]domain.RuleWeights),
		ruleSets:   make(map[string]domain.RuleSetVersion),
	}
}

func (s *MemoryStore) GetSignature(_ context.Context, userID string) (*domain.UserSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signatures[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := sig
	out.FatigueTriggers = append([]string(nil), sig.FatigueTriggers...)
	out.MotivationalTriggers = append([]string(nil), sig.MotivationalTriggers...)
	out.PreferredModalities = append([]string(nil), sig.PreferredModalities...)
	out.ProvenPlateauBreakers = append([]string(nil), sig.ProvenPlateauBreakers...)
	return &out, nil
}

func (s *MemoryStore) PutSignature(_ context.Context, sig *domain.UserSignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signatures[sig.UserID] = *sig
	return nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, entry domain.AdaptationHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.UserID] = append(s.history[entry.UserID], entry)
	return nil
}

func (s *MemoryStore) ListHistory(_ context.Context, userID string) ([]domain.AdaptationHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := append([]domain.AdaptationHistoryEntry(nil), s.history[userID]...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func (s *MemoryStore) RecordOutcome(_ context.Context, userID, recommendationID string, outcome domain.Outcome, effectiveness float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.history[userID]
	for i := range entries {
		if entries[i].Recommendation.ID != recommendationID {
			continue
		}
		o := outcome
		entries[i].Outcome = &o
		entries[i].Effectiveness = effectiveness
		entries[i].Satisfaction = outcome.Satisfaction
		return true, nil
	}
	return false, nil
}

func (s *MemoryStore) GetWeights(_ context.Context, userID string) (*domain.RuleWeights, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weights[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := w
	out.Base = copyMap(w.Base)
	out.ContextModifiers = copyMap(w.ContextModifiers)
	out.Effectiveness = copyMap(w.Effectiveness)
	return &out, nil
}

func (s *MemoryStore) PutWeights(_ context.Context, weights *domain.RuleWeights) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := *weights
	w.Base = copyMap(weights.Base)
	w.ContextModifiers = copyMap(weights.ContextModifiers)
	w.Effectiveness = copyMap(weights.Effectiveness)
	s.weights[weights.UserID] = w
	return nil
}

func (s *MemoryStore) GetRuleSet(_ context.Context, name string) (*domain.RuleSetVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.ruleSets[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := v
	return &out, nil
}

func (s *MemoryStore) PutRuleSet(_ context.Context, version *domain.RuleSetVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ruleSets[version.Name] = *version
	return nil
}

func (s *MemoryStore) ListRuleSets(_ context.Context) ([]domain.RuleSetVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RuleSetVersion, 0, len(s.ruleSets))
	for _, v := range s.ruleSets {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
