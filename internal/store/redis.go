package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// RedisStore implements Store over Redis with JSON payloads. Signatures and
// weights live as plain keys; history is an append-only list per user.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"` // 0 = no expiry
}

// NewRedisStore connects a Redis-backed store.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewRedisStoreWithClient(client, cfg)
}

// NewRedisStoreWithClient wraps an existing client; used by tests.
func NewRedisStoreWithClient(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "pulseplan:"
	}
	return &RedisStore{client: client, keyPrefix: prefix, ttl: cfg.TTL}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) sigKey(userID string) string     { return s.keyPrefix + "sig:" + userID }
func (s *RedisStore) historyKey(userID string) string { return s.keyPrefix + "hist:" + userID }
func (s *RedisStore) weightsKey(userID string) string { return s.keyPrefix + "weights:" + userID }
func (s *RedisStore) ruleSetKey(name string) string   { return s.keyPrefix + "ruleset:" + name }
func (s *RedisStore) ruleSetIndexKey() string         { return s.keyPrefix + "rulesets" }

func (s *RedisStore) GetSignature(ctx context.Context, userID string) (*domain.UserSignature, error) {
	var sig domain.UserSignature
	if err := s.getJSON(ctx, s.sigKey(userID), &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

func (s *RedisStore) PutSignature(ctx context.Context, sig *domain.UserSignature) error {
	return s.setJSON(ctx, s.sigKey(sig.UserID), sig)
}

func (s *RedisStore) AppendHistory(ctx context.Context, entry domain.AdaptationHistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.historyKey(entry.UserID), payload).Err(); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *RedisStore) ListHistory(ctx context.Context, userID string) ([]domain.AdaptationHistoryEntry, error) {
	raw, err := s.client.LRange(ctx, s.historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries := make([]domain.AdaptationHistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.AdaptationHistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisStore) RecordOutcome(ctx context.Context, userID, recommendationID string, outcome domain.Outcome, effectiveness float64) (bool, error) {
	key := s.historyKey(userID)
	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return false, fmt.Errorf("scan history: %w", err)
	}
	for i, item := range raw {
		var entry domain.AdaptationHistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return false, fmt.Errorf("decode history entry: %w", err)
		}
		if entry.Recommendation.ID != recommendationID {
			continue
		}
		o := outcome
		entry.Outcome = &o
		entry.Effectiveness = effectiveness
		entry.Satisfaction = outcome.Satisfaction
		payload, err := json.Marshal(entry)
		if err != nil {
			return false, fmt.Errorf("marshal history entry: %w", err)
		}
		if err := s.client.LSet(ctx, key, int64(i), payload).Err(); err != nil {
			return false, fmt.Errorf("update history entry: %w", err)
		}
		return true, nil
	}
	return false, nil
}

func (s *RedisStore) GetWeights(ctx context.Context, userID string) (*domain.RuleWeights, error) {
	var w domain.RuleWeights
	if err := s.getJSON(ctx, s.weightsKey(userID), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *RedisStore) PutWeights(ctx context.Context, weights *domain.RuleWeights) error {
	return s.setJSON(ctx, s.weightsKey(weights.UserID), weights)
}

func (s *RedisStore) GetRuleSet(ctx context.Context, name string) (*domain.RuleSetVersion, error) {
	var v domain.RuleSetVersion
	if err := s.getJSON(ctx, s.ruleSetKey(name), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *RedisStore) PutRuleSet(ctx context.Context, version *domain.RuleSetVersion) error {
	if err := s.setJSON(ctx, s.ruleSetKey(version.Name), version); err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, s.ruleSetIndexKey(), version.Name).Err(); err != nil {
		return fmt.Errorf("index rule set: %w", err)
	}
	return nil
}

func (s *RedisStore) ListRuleSets(ctx context.Context) ([]domain.RuleSetVersion, error) {
	names, err := s.client.SMembers(ctx, s.ruleSetIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list rule sets: %w", err)
	}
	out := make([]domain.RuleSetVersion, 0, len(names))
	for _, name := range names {
		v, err := s.GetRuleSet(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dst interface{}) error {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
