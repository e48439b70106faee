package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSnapshot = `
user_id: u1
plan:
  intensity_level: 6
  weekly_frequency: 4
  session_volume: 16
  modality: strength
recent_sessions:
  - completed: true
    completion_rate: 0.9
    perceived_exertion: 6
    enjoyment_score: 7
progress:
  total_sessions: 40
  current_streak: 5
  weekly_consistency: 0.8
  weeks_on_plan: 8
lifestyle:
  sleep_hours: 7.5
  sleep_quality: 7
  stress_level: 4
  workload_level: 5
mood:
  motivation_level: 7
  mood_score: 7
  energy_level: 6
`

func TestLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSnapshot), 0o644))

	snap, err := loadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, "u1", snap.UserID)
	assert.Equal(t, 6.0, snap.Plan.IntensityLevel)
	require.Len(t, snap.RecentSessions, 1)
	assert.Equal(t, 0.9, snap.RecentSessions[0].CompletionRate)
	assert.Equal(t, 0.8, snap.Progress.WeeklyConsistency)
}

func TestLoadSnapshot_MissingFile(t *testing.T) {
	_, err := loadSnapshot(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
