package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan/internal/domain"
)

const sampleConfig = `
storage:
  backend: redis
  redis:
    addr: localhost:6379
    key_prefix: "pp:"
simulation:
  trials: 250
  cache_entries: 64
  cache_ttl: 5m
model:
  enabled: true
  status: production
rule_sets:
  - name: v2-experimental
    version: "2.0.0"
    active_rules: [fatigue, sleep, stress]
    test_group_percent: 10
    weights:
      fatigue: 1.2
log_level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulseplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FullDocument(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 250, cfg.Simulation.Trials)
	assert.Equal(t, 5*time.Minute, cfg.Simulation.CacheTTL)
	assert.True(t, cfg.Model.Enabled)
	assert.Equal(t, "production", cfg.Model.Status)
	assert.Equal(t, "debug", cfg.LogLevel)

	require.Len(t, cfg.RuleSets, 1)
	assert.Equal(t, 10, cfg.RuleSets[0].TestGroupPercent)
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log_level: warn\n"))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 100, cfg.Simulation.Trials)
	assert.Equal(t, 512, cfg.Simulation.CacheEntries)
	assert.False(t, cfg.Model.Enabled)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "dynamo"
	cfg.Simulation.Trials = 0
	cfg.RuleSets = []RuleSetConfig{
		{Name: "bad", ActiveRules: []domain.RuleID{"does_not_exist"}, TestGroupPercent: 120},
	}

	errs := cfg.Validate()
	assert.Len(t, errs, 4)
}

func TestValidate_BackendNeedsEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "postgres"

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "dsn")
}

func TestRuleSetVersions(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	versions := cfg.RuleSetVersions(now)
	require.Len(t, versions, 1)
	v := versions[0]
	assert.Equal(t, "v2-experimental", v.Name)
	assert.True(t, v.Includes(domain.RuleSleep))
	assert.False(t, v.Includes(domain.RuleMotivation))
	assert.Equal(t, 1.2, v.Weights[domain.RuleFatigue])
	assert.Equal(t, now, v.ActivatedAt)
}
