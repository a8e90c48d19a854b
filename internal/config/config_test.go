package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("SLA_SWEEP_SCHEDULE", "")
	t.Setenv("CLASSIFIER_TIMEOUT_MS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "@every 1m", cfg.SLA.SweepSchedule)
	assert.Equal(t, 2*time.Second, cfg.Classifier.Timeout())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SLA_SWEEP_SCHEDULE", "*/5 * * * *")
	t.Setenv("CLASSIFIER_TIMEOUT_MS", "150")
	t.Setenv("SLA_SWEEP_LOCK_TTL_SECONDS", "10")
	t.Setenv("AUTH_SEED_USERS", "admin:secret:admin")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "*/5 * * * *", cfg.SLA.SweepSchedule)
	assert.Equal(t, 150*time.Millisecond, cfg.Classifier.Timeout())
	assert.Equal(t, 10*time.Second, cfg.SLA.LockTTL())
	require.Len(t, cfg.Auth.SeedUsers, 1)
	assert.Equal(t, "admin", cfg.Auth.SeedUsers[0].Username)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")
	_, err := Load()
	assert.Error(t, err)
}

func TestParseSeedUsers(t *testing.T) {
	users, err := ParseSeedUsers("admin:pw:admin; eng:pw2:support_engineer, analyst ;")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []string{"admin"}, users[0].Roles)
	assert.Equal(t, "eng", users[1].Username)
	assert.Equal(t, []string{"support_engineer", "analyst"}, users[1].Roles)

	_, err = ParseSeedUsers("broken-entry")
	assert.Error(t, err)

	users, err = ParseSeedUsers("   ")
	require.NoError(t, err)
	assert.Nil(t, users)
}
