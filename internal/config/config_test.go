package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 2, cfg.AI.MaxRetries)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Models["standard"])
	assert.InDelta(t, 0.30, cfg.Interview.FollowUpRate, 1e-9)
	assert.Equal(t, 10, cfg.Interview.DefaultQuestions)
	assert.Equal(t, 2*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, "Kore", cfg.Voice.Voice)

	assert.Equal(t, 5, cfg.PlanQuotas()["free"])
	assert.Equal(t, -1, cfg.PlanQuotas()["enterprise"])
	assert.Equal(t, "advanced", cfg.PlanTiers()["pro"])
}

func TestLoad_YAMLFile(t *testing.T) {
	content := `
server:
  port: 9090
ai:
  max-retries: 4
  timeout: 10s
interview:
  follow-up-rate: 0.5
  follow-up-seed: 42
plans:
  free:
    monthly-sessions: 1
    tier: lite
`
	path := filepath.Join(t.TempDir(), "interview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.AI.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.AI.Timeout)
	assert.InDelta(t, 0.5, cfg.Interview.FollowUpRate, 1e-9)
	assert.Equal(t, uint64(42), cfg.Interview.FollowUpSeed)
	assert.Equal(t, 1, cfg.PlanQuotas()["free"])
	// unset keys keep their defaults
	assert.Equal(t, 500*time.Millisecond, cfg.AI.InitialBackoff)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("INTERVIEW_SERVER_PORT", "7070")
	t.Setenv("INTERVIEW_AI_MAX_RETRIES", "0")
	t.Setenv("DATABASE_URL", "postgres://localhost/interviews")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 0, cfg.AI.MaxRetries)
	assert.Equal(t, "postgres://localhost/interviews", cfg.Database.URL)
	assert.Equal(t, "gemini-key", cfg.AI.APIKey)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoad_PrefixedVariableWins(t *testing.T) {
	t.Setenv("INTERVIEW_DATABASE_URL", "postgres://prefixed")
	t.Setenv("DATABASE_URL", "postgres://plain")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://prefixed", cfg.Database.URL)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, errMsg: "server.port"},
		{name: "negative retries", mutate: func(c *Config) { c.AI.MaxRetries = -1 }, errMsg: "ai.max-retries"},
		{name: "backoff order", mutate: func(c *Config) { c.AI.MaxBackoff = time.Millisecond }, errMsg: "backoff"},
		{name: "follow-up rate", mutate: func(c *Config) { c.Interview.FollowUpRate = 1.5 }, errMsg: "follow-up-rate"},
		{name: "question count", mutate: func(c *Config) { c.Interview.DefaultQuestions = 20 }, errMsg: "default-questions"},
		{name: "plan tier", mutate: func(c *Config) { c.Plans["free"] = PlanConfig{Tier: "gold"} }, errMsg: "plans.free.tier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
