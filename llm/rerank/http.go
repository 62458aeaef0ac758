package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPConfig configures a Cohere-style /v1/rerank endpoint. Local
// cross-encoder servers (e.g. text-embeddings-inference, Jina) expose the
// same shape.
type HTTPConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	APIKey  string        `json:"api_key" yaml:"api_key"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RPS     float64       `json:"rps,omitempty" yaml:"rps,omitempty"`
}

// HTTPProvider implements Provider over a rerank HTTP endpoint.
type HTTPProvider struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPProvider creates a rerank provider for a Cohere-compatible endpoint.
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cohere.com"
	}
	if cfg.Model == "" {
		cfg.Model = "rerank-v3.5"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return &HTTPProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

func (p *HTTPProvider) Name() string      { return "http-rerank" }
func (p *HTTPProvider) MaxDocuments() int { return 1000 }

type httpRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type httpRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores documents against a query.
func (p *HTTPProvider) Rerank(ctx context.Context, req *RerankRequest) (*RerankResponse, error) {
	if len(req.Documents) == 0 {
		return nil, fmt.Errorf("rerank: no documents")
	}
	if len(req.Documents) > p.MaxDocuments() {
		return nil, fmt.Errorf("rerank: %d documents exceeds limit %d", len(req.Documents), p.MaxDocuments())
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	payload, err := json.Marshal(httpRerankRequest{
		Model:     model,
		Query:     req.Query,
		Documents: req.Documents,
		TopN:      req.TopN,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/rerank",
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var hResp httpRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&hResp); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	out := &RerankResponse{
		Provider:  p.Name(),
		Model:     model,
		Results:   make([]RerankResult, len(hResp.Results)),
		CreatedAt: time.Now(),
	}
	for i, r := range hResp.Results {
		out.Results[i] = RerankResult{
			Index:          r.Index,
			RelevanceScore: r.RelevanceScore,
		}
		if r.Index >= 0 && r.Index < len(req.Documents) {
			out.Results[i].Document = req.Documents[r.Index]
		}
	}
	return out, nil
}

// RerankSimple returns at most topN reranked results.
func (p *HTTPProvider) RerankSimple(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error) {
	resp, err := p.Rerank(ctx, &RerankRequest{Query: query, Documents: documents, TopN: topN})
	if err != nil {
		return nil, err
	}
	results := resp.Results
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}
