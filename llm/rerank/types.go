// Package rerank provides the cross-encoder rerank capability interface
// and HTTP adapters.
package rerank

import (
	"context"
	"time"
)

// RerankRequest is a request to rerank documents against a query.
type RerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
	// TopN limits how many results are returned; 0 returns all.
	TopN int `json:"top_n,omitempty"`
}

// RerankResult is a single reranked document. Index refers to the
// position in the request's Documents slice.
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
	Document       string  `json:"document,omitempty"`
}

// RerankResponse is the response to a rerank request. Results are ordered
// by descending relevance.
type RerankResponse struct {
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Results   []RerankResult `json:"results"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// Provider defines the unified rerank capability.
type Provider interface {
	// Rerank scores documents against a query.
	Rerank(ctx context.Context, req *RerankRequest) (*RerankResponse, error)

	// RerankSimple is a convenience method returning at most topN results.
	RerankSimple(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)

	// Name returns the provider name.
	Name() string

	// MaxDocuments returns the per-request document limit.
	MaxDocuments() int
}
