// Package config loads the engine configuration from YAML: storage backend
// selection, simulation defaults, model guard settings, and pre-provisioned
// rule-set versions for rollout.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pulseplan/pulseplan/internal/domain"
	"github.com/pulseplan/pulseplan/internal/store"
)

// Config is the root configuration document.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Simulation SimulationConfig `yaml:"simulation"`
	Model      ModelConfig      `yaml:"model"`
	RuleSets   []RuleSetConfig  `yaml:"rule_sets"`
	LogLevel   string           `yaml:"log_level"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend  string               `yaml:"backend"` // memory | redis | postgres
	Redis    store.RedisConfig    `yaml:"redis"`
	Postgres store.PostgresConfig `yaml:"postgres"`
}

// SimulationConfig tunes the what-if simulator.
type SimulationConfig struct {
	Trials       int           `yaml:"trials"`
	CacheEntries int           `yaml:"cache_entries"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// ModelConfig configures the optional adaptation model overlay.
type ModelConfig struct {
	Enabled             bool          `yaml:"enabled"`
	Status              string        `yaml:"status"` // production | staging | retired
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	BreakerTimeout      time.Duration `yaml:"breaker_timeout"`
	RateLimit           float64       `yaml:"rate_limit"` // predictions/sec
	RateBurst           int           `yaml:"rate_burst"`
}

// RuleSetConfig is a rule-set version declared in configuration, deployed
// at startup.
type RuleSetConfig struct {
	Name             string             `yaml:"name"`
	Version          string             `yaml:"version"`
	ActiveRules      []domain.RuleID    `yaml:"active_rules"`
	TestGroupPercent int                `yaml:"test_group_percent"`
	Weights          map[string]float64 `yaml:"weights"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Storage: StorageConfig{Backend: "memory"},
		Simulation: SimulationConfig{
			Trials:       100,
			CacheEntries: 512,
			CacheTTL:     15 * time.Minute,
		},
		Model: ModelConfig{
			Enabled:             false,
			Status:              "staging",
			ConsecutiveFailures: 5,
			BreakerTimeout:      30 * time.Second,
			RateLimit:           50,
			RateBurst:           10,
		},
		LogLevel: "info",
	}
}

// Load reads and validates a configuration file. Missing fields fall back
// to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", errs[0])
	}
	return &cfg, nil
}

// Validate returns every consistency problem found, empty when the
// configuration is usable.
func (c *Config) Validate() []string {
	var errs []string

	switch c.Storage.Backend {
	case "memory", "redis", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Storage.Backend == "redis" && c.Storage.Redis.Addr == "" {
		errs = append(errs, "redis backend selected but no addr set")
	}
	if c.Storage.Backend == "postgres" && c.Storage.Postgres.DSN == "" {
		errs = append(errs, "postgres backend selected but no dsn set")
	}

	if c.Simulation.Trials <= 0 {
		errs = append(errs, "simulation trials must be positive")
	}
	if c.Simulation.CacheEntries <= 0 {
		errs = append(errs, "simulation cache_entries must be positive")
	}

	switch c.Model.Status {
	case "production", "staging", "retired":
	default:
		errs = append(errs, fmt.Sprintf("unknown model status %q", c.Model.Status))
	}

	for _, rs := range c.RuleSets {
		if rs.Name == "" {
			errs = append(errs, "rule set with empty name")
			continue
		}
		if rs.TestGroupPercent < 0 || rs.TestGroupPercent > 100 {
			errs = append(errs, fmt.Sprintf("rule set %s: test_group_percent %d outside [0, 100]", rs.Name, rs.TestGroupPercent))
		}
		for _, id := range rs.ActiveRules {
			if !knownRule(id) {
				errs = append(errs, fmt.Sprintf("rule set %s: unknown rule %q", rs.Name, id))
			}
		}
	}

	return errs
}

// RuleSetVersions converts the configured rule sets into domain versions.
func (c *Config) RuleSetVersions(now time.Time) []domain.RuleSetVersion {
	out := make([]domain.RuleSetVersion, 0, len(c.RuleSets))
	for _, rs := range c.RuleSets {
		weights := make(map[domain.RuleID]float64, len(rs.Weights))
		for k, v := range rs.Weights {
			weights[domain.RuleID(k)] = v
		}
		out = append(out, domain.RuleSetVersion{
			Name:             rs.Name,
			Version:          rs.Version,
			ActiveRules:      append([]domain.RuleID(nil), rs.ActiveRules...),
			Weights:          weights,
			TestGroupPercent: rs.TestGroupPercent,
			ActivatedAt:      now,
		})
	}
	return out
}

func knownRule(id domain.RuleID) bool {
	switch id {
	case domain.RuleFatigue, domain.RuleConsistency, domain.RuleProgressiveOverload,
		domain.RuleRecovery, domain.RuleMotivation, domain.RulePlateau,
		domain.RuleStress, domain.RuleSleep:
		return true
	}
	return false
}
