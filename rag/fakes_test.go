package rag

import (
	"context"
	"errors"
	"time"

	"github.com/lexrag/lexrag/llm/embedding"
	"github.com/lexrag/lexrag/llm/extract"
	"github.com/lexrag/lexrag/llm/generate"
	"github.com/lexrag/lexrag/llm/rerank"
	"github.com/lexrag/lexrag/types"
)

// fakeEmbedder returns fixed vectors by exact text, or a zero-ish default.
// truncate drops the last vector from every batch.
type fakeEmbedder struct {
	vectors  map[string][]float64
	dims     int
	fail     bool
	truncate bool
	calls    int
}

func newFakeEmbedder(dims int) *fakeEmbedder {
	return &fakeEmbedder{vectors: make(map[string][]float64), dims: dims}
}

func (f *fakeEmbedder) vectorFor(text string) []float64 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	v := make([]float64, f.dims)
	v[0] = 1
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, req *embedding.EmbeddingRequest) (*embedding.EmbeddingResponse, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("embedder down")
	}
	resp := &embedding.EmbeddingResponse{Provider: f.Name()}
	for i, text := range req.Input {
		resp.Embeddings = append(resp.Embeddings, embedding.EmbeddingData{Index: i, Embedding: f.vectorFor(text)})
	}
	if f.truncate && len(resp.Embeddings) > 0 {
		resp.Embeddings = resp.Embeddings[:len(resp.Embeddings)-1]
	}
	return resp, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	resp, err := f.Embed(ctx, &embedding.EmbeddingRequest{Input: []string{query}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0].Embedding, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	resp, err := f.Embed(ctx, &embedding.EmbeddingRequest{Input: documents})
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Embedding
	}
	return out, nil
}

func (f *fakeEmbedder) Name() string    { return "fake-embedder" }
func (f *fakeEmbedder) Dimensions() int { return f.dims }

// fakeExtractor returns canned entities.
type fakeExtractor struct {
	entities []extract.Entity
	fail     bool
}

func (f *fakeExtractor) Extract(_ context.Context, _ *extract.ExtractRequest) (*extract.ExtractResponse, error) {
	if f.fail {
		return nil, errors.New("extractor down")
	}
	return &extract.ExtractResponse{Provider: f.Name(), Entities: f.entities}, nil
}

func (f *fakeExtractor) ExtractSimple(ctx context.Context, text string) ([]extract.Entity, error) {
	resp, err := f.Extract(ctx, &extract.ExtractRequest{Text: text})
	if err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

func (f *fakeExtractor) Name() string { return "fake-extractor" }

// fakeRerankProvider scores documents by a fixed map, defaulting to 0.
type fakeRerankProvider struct {
	scores map[string]float64
	fail   bool
	calls  int
	seen   []string
}

func (f *fakeRerankProvider) Rerank(_ context.Context, req *rerank.RerankRequest) (*rerank.RerankResponse, error) {
	f.calls++
	f.seen = req.Documents
	if f.fail {
		return nil, errors.New("reranker down")
	}
	resp := &rerank.RerankResponse{Provider: f.Name()}
	for i, doc := range req.Documents {
		resp.Results = append(resp.Results, rerank.RerankResult{Index: i, RelevanceScore: f.scores[doc]})
	}
	return resp, nil
}

func (f *fakeRerankProvider) RerankSimple(ctx context.Context, query string, documents []string, topN int) ([]rerank.RerankResult, error) {
	resp, err := f.Rerank(ctx, &rerank.RerankRequest{Query: query, Documents: documents, TopN: topN})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (f *fakeRerankProvider) Name() string      { return "fake-reranker" }
func (f *fakeRerankProvider) MaxDocuments() int { return 100 }

// fakeGenerator replays scripted responses in order, repeating the last
// one when the script runs out. failures fails the first N calls; failOn
// fails specific 1-based call numbers.
type fakeGenerator struct {
	responses []string
	failures  int
	failOn    map[int]bool
	calls     int
	prompts   []string
}

func (f *fakeGenerator) Generate(_ context.Context, req *generate.GenerateRequest) (*generate.GenerateResponse, error) {
	f.calls++
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	if f.failOn[f.calls] {
		return nil, errors.New("generator down")
	}
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("generator down")
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return &generate.GenerateResponse{Provider: f.Name(), Content: f.responses[idx]}, nil
}

func (f *fakeGenerator) GenerateSimple(ctx context.Context, system, user string) (string, error) {
	resp, err := f.Generate(ctx, &generate.GenerateRequest{Messages: []generate.Message{
		{Role: generate.RoleSystem, Content: system},
		{Role: generate.RoleUser, Content: user},
	}})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (f *fakeGenerator) Name() string { return "fake-generator" }

// testDoc builds a document whose chunks carry the given texts and
// orthogonal unit embeddings.
func testDoc(id string, texts ...string) *types.Document {
	doc := &types.Document{ID: id, Filename: id + ".pdf", IngestedAt: time.Now()}
	for i, text := range texts {
		vec := make([]float64, 4)
		vec[i%4] = 1
		doc.Chunks = append(doc.Chunks, types.Chunk{
			DocID:     id,
			Index:     i,
			Page:      i + 1,
			Text:      text,
			Embedding: vec,
			TermFreqs: termFrequencies(text),
		})
	}
	doc.TotalChunks = len(doc.Chunks)
	return doc
}
