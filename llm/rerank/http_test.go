package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProviderRerank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req httpRerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "which clause governs termination", req.Query)

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 1, "relevance_score": 0.92},
				{"index": 0, "relevance_score": 0.31},
			},
		})
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, APIKey: "test-key"})
	resp, err := p.Rerank(context.Background(), &RerankRequest{
		Query:     "which clause governs termination",
		Documents: []string{"clause one", "clause two"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1, resp.Results[0].Index)
	assert.Equal(t, "clause two", resp.Results[0].Document)
	assert.InDelta(t, 0.92, resp.Results[0].RelevanceScore, 1e-9)
}

func TestHTTPProviderRerankSimpleTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 2, "relevance_score": 0.9},
				{"index": 0, "relevance_score": 0.5},
				{"index": 1, "relevance_score": 0.1},
			},
		})
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL})
	results, err := p.RerankSimple(context.Background(), "q", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestHTTPProviderToleratesOutOfRangeResultIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 99, "relevance_score": 0.9},
				{"index": -1, "relevance_score": 0.4},
				{"index": 0, "relevance_score": 0.2},
			},
		})
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL})
	resp, err := p.Rerank(context.Background(), &RerankRequest{
		Query:     "q",
		Documents: []string{"only document"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Empty(t, resp.Results[0].Document)
	assert.Empty(t, resp.Results[1].Document)
	assert.Equal(t, "only document", resp.Results[2].Document)
}

func TestHTTPProviderRejectsEmptyDocuments(t *testing.T) {
	p := NewHTTPProvider(HTTPConfig{BaseURL: "http://127.0.0.1:0"})
	_, err := p.Rerank(context.Background(), &RerankRequest{Query: "q"})
	assert.Error(t, err)
}

func TestHTTPProviderSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL})
	_, err := p.Rerank(context.Background(), &RerankRequest{Query: "q", Documents: []string{"d"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
