package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/pulseplan/pulseplan/internal/domain"
)

// PostgresConfig configures the Postgres-backed store.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// PostgresStore implements Store over Postgres. Structured fields are
// columns; nested recommendation/signature payloads are JSONB.
type PostgresStore struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS user_signatures (
	user_id    TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS adaptation_history (
	id                SERIAL PRIMARY KEY,
	user_id           TEXT NOT NULL,
	recommendation_id TEXT NOT NULL,
	ts                TIMESTAMPTZ NOT NULL,
	payload           JSONB NOT NULL,
	effectiveness     DOUBLE PRECISION NOT NULL DEFAULT 0.5
);
CREATE INDEX IF NOT EXISTS idx_history_user_ts ON adaptation_history (user_id, ts);
CREATE INDEX IF NOT EXISTS idx_history_rec ON adaptation_history (user_id, recommendation_id);

CREATE TABLE IF NOT EXISTS rule_weights (
	user_id    TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS rule_set_versions (
	name       TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// NewPostgresStore opens the connection pool and ensures the schema.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	log.Info().Msg("postgres store ready")
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetSignature(ctx context.Context, userID string) (*domain.UserSignature, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload,
		`SELECT payload FROM user_signatures WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get signature: %w", err)
	}
	var sig domain.UserSignature
	if err := json.Unmarshal(payload, &sig); err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	return &sig, nil
}

func (s *PostgresStore) PutSignature(ctx context.Context, sig *domain.UserSignature) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signature: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_signatures (user_id, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET payload = $2, updated_at = $3`,
		sig.UserID, payload, sig.LastUpdated)
	if err != nil {
		return fmt.Errorf("put signature: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendHistory(ctx context.Context, entry domain.AdaptationHistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO adaptation_history (user_id, recommendation_id, ts, payload, effectiveness)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.UserID, entry.Recommendation.ID, entry.Timestamp, payload, entry.Effectiveness)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, userID string) ([]domain.AdaptationHistoryEntry, error) {
	var payloads [][]byte
	err := s.db.SelectContext(ctx, &payloads,
		`SELECT payload FROM adaptation_history WHERE user_id = $1 ORDER BY ts ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries := make([]domain.AdaptationHistoryEntry, 0, len(payloads))
	for _, p := range payloads {
		var entry domain.AdaptationHistoryEntry
		if err := json.Unmarshal(p, &entry); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *PostgresStore) RecordOutcome(ctx context.Context, userID, recommendationID string, outcome domain.Outcome, effectiveness float64) (bool, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `
		SELECT payload FROM adaptation_history
		WHERE user_id = $1 AND recommendation_id = $2
		ORDER BY ts DESC LIMIT 1`, userID, recommendationID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find history entry: %w", err)
	}

	var entry domain.AdaptationHistoryEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return false, fmt.Errorf("decode history entry: %w", err)
	}
	o := outcome
	entry.Outcome = &o
	entry.Effectiveness = effectiveness
	entry.Satisfaction = outcome.Satisfaction

	updated, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("marshal history entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE adaptation_history SET payload = $3, effectiveness = $4
		WHERE user_id = $1 AND recommendation_id = $2`,
		userID, recommendationID, updated, effectiveness)
	if err != nil {
		return false, fmt.Errorf("update history entry: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) GetWeights(ctx context.Context, userID string) (*domain.RuleWeights, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload,
		`SELECT payload FROM rule_weights WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get weights: %w", err)
	}
	var w domain.RuleWeights
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) PutWeights(ctx context.Context, weights *domain.RuleWeights) error {
	payload, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rule_weights (user_id, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET payload = $2, updated_at = $3`,
		weights.UserID, payload, weights.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put weights: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRuleSet(ctx context.Context, name string) (*domain.RuleSetVersion, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload,
		`SELECT payload FROM rule_set_versions WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rule set: %w", err)
	}
	var v domain.RuleSetVersion
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode rule set: %w", err)
	}
	return &v, nil
}

func (s *PostgresStore) PutRuleSet(ctx context.Context, version *domain.RuleSetVersion) error {
	payload, err := json.Marshal(version)
	if err != nil {
		return fmt.Errorf("marshal rule set: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rule_set_versions (name, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET payload = $2, updated_at = NOW()`,
		version.Name, payload)
	if err != nil {
		return fmt.Errorf("put rule set: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRuleSets(ctx context.Context) ([]domain.RuleSetVersion, error) {
	var payloads [][]byte
	err := s.db.SelectContext(ctx, &payloads,
		`SELECT payload FROM rule_set_versions ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rule sets: %w", err)
	}
	out := make([]domain.RuleSetVersion, 0, len(payloads))
	for _, p := range payloads {
		var v domain.RuleSetVersion
		if err := json.Unmarshal(p, &v); err != nil {
			return nil, fmt.Errorf("decode rule set: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
