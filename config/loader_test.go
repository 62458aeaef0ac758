package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("does-not-exist.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Retrieval.FusionAlpha)
	assert.Equal(t, 2, cfg.Generation.RetryBudget)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexrag.yaml")
	data := `
retrieval:
  fusion_alpha: 0.6
  top_k: 5
  sparse_top_n: 12
  dense_top_n: 12
rerank:
  top_m: 5
generation:
  context_top_n: 4
  retry_budget: 1
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.Retrieval.FusionAlpha)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 1, cfg.Generation.RetryBudget)
	// Untouched fields keep defaults.
	assert.Equal(t, 1.5, cfg.Retrieval.BM25K1)
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("LEXRAG_RETRIEVAL_TOP_K", "6")
	t.Setenv("LEXRAG_RERANK_TOP_M", "4")
	t.Setenv("LEXRAG_GENERATION_RETRY_BUDGET", "3")
	t.Setenv("LEXRAG_GENERATION_TIMEOUT", "90s")
	t.Setenv("LEXRAG_PROVIDERS_RERANK_BASE_URL", "http://localhost:8081")
	t.Setenv("LEXRAG_METRICS_ENABLED", "false")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Retrieval.TopK)
	assert.Equal(t, 4, cfg.Rerank.TopM)
	assert.Equal(t, 3, cfg.Generation.RetryBudget)
	assert.Equal(t, 90*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "http://localhost:8081", cfg.Providers.Rerank.BaseURL)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestValidateRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"alpha out of range", func(c *Config) { c.Retrieval.FusionAlpha = 1.5 }},
		{"top_n below top_k", func(c *Config) { c.Retrieval.SparseTopN = 2 }},
		{"rerank prefix above top_k", func(c *Config) { c.Rerank.TopM = 99 }},
		{"context above rerank prefix", func(c *Config) { c.Generation.ContextTopN = 99 }},
		{"negative retry budget", func(c *Config) { c.Generation.RetryBudget = -1 }},
		{"inverted thresholds", func(c *Config) { c.Validation.PartialThreshold = 0.9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
