package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIGACHAT_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "guided", cfg.Engine.Schema)
	assert.Equal(t, 1024, cfg.Engine.EmbeddingDimension)
	assert.Equal(t, 3, cfg.Engine.TopN)
	assert.Equal(t, 0, cfg.Engine.CandidateLimit)
	assert.InDelta(t, 0.10, cfg.Engine.RuleBonus, 1e-12)
	assert.True(t, cfg.Engine.UseLLMExplanations)
	assert.Equal(t, "memory", cfg.Index.Backend)
	assert.Equal(t, "databases", cfg.Index.Collection)
	assert.Empty(t, cfg.Auth.SecretKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GIGACHAT_API_KEY", "secret")
	t.Setenv("USE_LLM_EXPLANATIONS", "false")
	t.Setenv("EMBEDDING_DIMENSION", "768")
	t.Setenv("QUESTION_SCHEMA", "classic")
	t.Setenv("INDEX_BACKEND", "postgres")
	t.Setenv("RULE_BONUS", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Engine.UseLLMExplanations)
	assert.Equal(t, 768, cfg.Engine.EmbeddingDimension)
	assert.Equal(t, "classic", cfg.Engine.Schema)
	assert.Equal(t, "postgres", cfg.Index.Backend)
	assert.InDelta(t, 0.25, cfg.Engine.RuleBonus, 1e-12)
}

func TestLoadMissingCredential(t *testing.T) {
	t.Setenv("GIGACHAT_API_KEY", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dimension", func(c *Config) { c.Engine.EmbeddingDimension = 0 }},
		{"zero top n", func(c *Config) { c.Engine.TopN = 0 }},
		{"negative candidate limit", func(c *Config) { c.Engine.CandidateLimit = -1 }},
		{"unknown backend", func(c *Config) { c.Index.Backend = "qdrant" }},
		{"negative request timeout", func(c *Config) { c.Server.RequestTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				GigaChat: GigaChatConfig{APIKey: "secret"},
				Engine:   EngineConfig{EmbeddingDimension: 8, TopN: 3},
				Index:    IndexConfig{Backend: "memory"},
			}
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnvSkipsValidation(t *testing.T) {
	t.Setenv("GIGACHAT_API_KEY", "")
	t.Setenv("AUTH_JWT_SECRET", "jwt-secret")

	cfg := LoadEnv()

	assert.Equal(t, "jwt-secret", cfg.Auth.SecretKey)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingCredential)
}

func TestLoadZeroRequestTimeoutDisablesDeadline(t *testing.T) {
	t.Setenv("GIGACHAT_API_KEY", "secret")
	t.Setenv("REQUEST_TIMEOUT", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Server.RequestTimeout)
}
