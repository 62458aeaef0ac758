// Package config provides unified configuration loading for lexrag:
// defaults → YAML file → environment variable overrides.
package config

import (
	"fmt"
	"time"
)

// Config is the complete lexrag configuration.
type Config struct {
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Rerank       RerankConfig       `yaml:"rerank"`
	Generation   GenerationConfig   `yaml:"generation"`
	Validation   ValidationConfig   `yaml:"validation"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge"`
	Conversation ConversationConfig `yaml:"conversation"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Redis        RedisConfig        `yaml:"redis"`
	Log          LogConfig          `yaml:"log"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// RetrievalConfig controls the hybrid retrieval stage.
type RetrievalConfig struct {
	// FusionAlpha is the sparse weight in the fused score:
	// fused = alpha*sparse + (1-alpha)*dense.
	FusionAlpha float64 `yaml:"fusion_alpha" env:"FUSION_ALPHA"`
	// SparseTopN and DenseTopN are the per-method result sizes before
	// fusion; both must exceed TopK to leave fusion headroom.
	SparseTopN int `yaml:"sparse_top_n" env:"SPARSE_TOP_N"`
	DenseTopN  int `yaml:"dense_top_n" env:"DENSE_TOP_N"`
	// TopK bounds the fused candidate set.
	TopK int `yaml:"top_k" env:"TOP_K"`
	// ExpansionWeight scales expansion-term weights below original query
	// terms in the lexical query.
	ExpansionWeight float64 `yaml:"expansion_weight" env:"EXPANSION_WEIGHT"`
	// BM25 parameters.
	BM25K1 float64 `yaml:"bm25_k1" env:"BM25_K1"`
	BM25B  float64 `yaml:"bm25_b" env:"BM25_B"`
	// Timeout applies to the embedding lookup inside retrieval.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RerankConfig controls the cross-encoder rerank stage.
type RerankConfig struct {
	// TopM is the bounded prefix of fused candidates handed to the
	// cross-encoder; candidates beyond it are dropped.
	TopM    int           `yaml:"top_m" env:"TOP_M"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// GenerationConfig controls prompt assembly and the generation stage.
type GenerationConfig struct {
	// ContextTopN is the number of reranked passages given to the
	// generator (N <= rerank TopM).
	ContextTopN int `yaml:"context_top_n" env:"CONTEXT_TOP_N"`
	// MaxContextTokens bounds the total passage context; passages are
	// dropped from the lowest-ranked end first.
	MaxContextTokens int `yaml:"max_context_tokens" env:"MAX_CONTEXT_TOKENS"`
	// RetryBudget bounds corrective regenerations; generator calls per
	// query never exceed RetryBudget+1.
	RetryBudget int `yaml:"retry_budget" env:"RETRY_BUDGET"`
	// TokenizerModel selects the tiktoken encoding used for budgeting.
	TokenizerModel string        `yaml:"tokenizer_model" env:"TOKENIZER_MODEL"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ValidationConfig controls the corrective validator.
type ValidationConfig struct {
	// ExactThreshold and PartialThreshold split claim support into
	// exact / partial / none by content-word overlap.
	ExactThreshold   float64       `yaml:"exact_threshold" env:"EXACT_THRESHOLD"`
	PartialThreshold float64       `yaml:"partial_threshold" env:"PARTIAL_THRESHOLD"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// KnowledgeConfig controls the knowledge expander.
type KnowledgeConfig struct {
	// GraphPath optionally loads a YAML knowledge graph; empty uses the
	// built-in legal seed graph.
	GraphPath string `yaml:"graph_path" env:"GRAPH_PATH"`
	// DecayBase is the per-hop weight decay (weight = base^distance).
	DecayBase float64 `yaml:"decay_base" env:"DECAY_BASE"`
	// MaxDepth bounds the graph walk.
	MaxDepth int `yaml:"max_depth" env:"MAX_DEPTH"`
	// ExtractTimeout applies to the entity-extraction model call.
	ExtractTimeout time.Duration `yaml:"extract_timeout" env:"EXTRACT_TIMEOUT"`
}

// ConversationConfig controls conversation history.
type ConversationConfig struct {
	// MaxTurns trims history to the most recent N turns.
	MaxTurns int `yaml:"max_turns" env:"MAX_TURNS"`
	// TTL expires idle conversations.
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// HistoryTurns is how many recent turns feed the generator prompt.
	HistoryTurns int `yaml:"history_turns" env:"HISTORY_TURNS"`
	// Store selects "memory" or "redis".
	Store string `yaml:"store" env:"STORE"`
}

// ProviderConfig is the common shape for one model endpoint.
type ProviderConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	Model   string        `yaml:"model" env:"MODEL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// RPS rate-limits calls to the endpoint; 0 disables limiting.
	RPS float64 `yaml:"rps" env:"RPS"`
}

// ProvidersConfig wires the four model capabilities.
type ProvidersConfig struct {
	Extract   ProviderConfig `yaml:"extract"`
	Embedding ProviderConfig `yaml:"embedding"`
	Rerank    ProviderConfig `yaml:"rerank"`
	Generate  ProviderConfig `yaml:"generate"`
}

// RedisConfig configures the optional Redis conversation store.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug/info/warn/error
	Format string `yaml:"format" env:"FORMAT"` // json/console
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// Default returns the baseline configuration. YAML and environment
// overrides are applied on top of it by the Loader.
func Default() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			FusionAlpha:     0.4,
			SparseTopN:      10,
			DenseTopN:       10,
			TopK:            8,
			ExpansionWeight: 0.5,
			BM25K1:          1.5,
			BM25B:           0.75,
			Timeout:         10 * time.Second,
		},
		Rerank: RerankConfig{
			TopM:    8,
			Timeout: 15 * time.Second,
		},
		Generation: GenerationConfig{
			ContextTopN:      3,
			MaxContextTokens: 2048,
			RetryBudget:      2,
			TokenizerModel:   "gpt-4o",
			Timeout:          60 * time.Second,
		},
		Validation: ValidationConfig{
			ExactThreshold:   0.7,
			PartialThreshold: 0.35,
			Timeout:          15 * time.Second,
		},
		Knowledge: KnowledgeConfig{
			DecayBase:      0.5,
			MaxDepth:       2,
			ExtractTimeout: 10 * time.Second,
		},
		Conversation: ConversationConfig{
			MaxTurns:     10,
			TTL:          24 * time.Hour,
			HistoryTurns: 3,
			Store:        "memory",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "lexrag",
		},
	}
}

// Validate checks cross-field constraints the pipeline depends on.
func (c *Config) Validate() error {
	r := c.Retrieval
	if r.FusionAlpha < 0 || r.FusionAlpha > 1 {
		return fmt.Errorf("retrieval.fusion_alpha must be in [0,1], got %v", r.FusionAlpha)
	}
	if r.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", r.TopK)
	}
	if r.SparseTopN < r.TopK || r.DenseTopN < r.TopK {
		return fmt.Errorf("per-method top_n (%d/%d) must be >= top_k (%d) for fusion headroom",
			r.SparseTopN, r.DenseTopN, r.TopK)
	}
	if c.Rerank.TopM > r.TopK {
		return fmt.Errorf("rerank.top_m (%d) must be <= retrieval.top_k (%d)", c.Rerank.TopM, r.TopK)
	}
	if c.Generation.ContextTopN > c.Rerank.TopM {
		return fmt.Errorf("generation.context_top_n (%d) must be <= rerank.top_m (%d)",
			c.Generation.ContextTopN, c.Rerank.TopM)
	}
	if c.Generation.RetryBudget < 0 {
		return fmt.Errorf("generation.retry_budget must be >= 0, got %d", c.Generation.RetryBudget)
	}
	if c.Validation.PartialThreshold > c.Validation.ExactThreshold {
		return fmt.Errorf("validation.partial_threshold (%v) must be <= exact_threshold (%v)",
			c.Validation.PartialThreshold, c.Validation.ExactThreshold)
	}
	return nil
}
