package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8002", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Backend)
	assert.Equal(t, "dreampilot", cfg.Database.Name)
	assert.Equal(t, "openclaw", cfg.Agent.Bin)
	assert.Equal(t, 20*time.Minute, cfg.Agent.Deadline)
}

func TestLoad_PostgresBackend(t *testing.T) {
	t.Setenv("DB_BACKEND", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("DB_BACKEND", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_BACKEND")
}

func TestLoad_DeadlineAsSeconds(t *testing.T) {
	t.Setenv("AGENT_DEADLINE", "1200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, cfg.Agent.Deadline)
}

func TestLoad_DeadlineAsDuration(t *testing.T) {
	t.Setenv("AGENT_DEADLINE", "45m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.Agent.Deadline)
}
