// Package embedding provides the embedding capability interface and HTTP
// adapters. The pipeline depends only on Provider; any concrete embedding
// model can be substituted behind it.
package embedding

import (
	"context"
	"time"
)

// InputType specifies what the embedding is optimized for.
type InputType string

const (
	InputTypeQuery    InputType = "query"
	InputTypeDocument InputType = "document"
)

// EmbeddingRequest is a request to embed one or more texts.
type EmbeddingRequest struct {
	Input     []string  `json:"input"`
	Model     string    `json:"model,omitempty"`
	InputType InputType `json:"input_type,omitempty"`
}

// EmbeddingData is a single embedding result.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingUsage reports token consumption for a request.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// EmbeddingResponse is the response to an embedding request.
type EmbeddingResponse struct {
	Provider   string          `json:"provider"`
	Model      string          `json:"model"`
	Embeddings []EmbeddingData `json:"embeddings"`
	Usage      EmbeddingUsage  `json:"usage"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
}

// Provider defines the unified embedding capability.
type Provider interface {
	// Embed generates embeddings for the given inputs.
	Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)

	// EmbedQuery is a convenience method for embedding a single query.
	EmbedQuery(ctx context.Context, query string) ([]float64, error)

	// EmbedDocuments is a convenience method for embedding multiple documents.
	EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error)

	// Name returns the provider name.
	Name() string

	// Dimensions returns the embedding dimensionality.
	Dimensions() int
}
