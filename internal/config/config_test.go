package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "mongo", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 10*time.Minute, cfg.Challenges.StatsInterval)
	assert.Equal(t, 10, cfg.Challenges.LeaderboardSize)

	loc, err := cfg.Attendance.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
database:
  driver: memory
challenges:
  stats_interval: 30s
  leaderboard_size: 5
jwt:
  secret: from-file
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Challenges.StatsInterval)
	assert.Equal(t, 5, cfg.Challenges.LeaderboardSize)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestAttendanceLocation(t *testing.T) {
	_, err := AttendanceConfig{Timezone: "Not/AZone"}.Location()
	assert.Error(t, err)

	loc, err := AttendanceConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
