package rag

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/lexrag/lexrag/llm/rerank"
	"github.com/lexrag/lexrag/types"
)

// Reranker rescoring the fused candidate prefix with a cross-encoder.
// Only the top-M fused candidates are sent to the model; the rest are
// dropped before reranking, never after.
type Reranker struct {
	provider rerank.Provider
	topM     int
	logger   *zap.Logger
}

// NewReranker creates a reranker. A nil provider disables cross-encoder
// scoring; candidates keep their fused order.
func NewReranker(provider rerank.Provider, topM int, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{
		provider: provider,
		topM:     topM,
		logger:   logger.With(zap.String("component", "reranker")),
	}
}

// Rerank rescores the top-M prefix of fused candidates against the query.
// Equal relevance scores keep their fused relative order. On provider
// failure the fused order is returned along with a typed error so the
// caller can log the degradation and continue.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []types.RetrievalCandidate, snap *Snapshot) ([]types.RerankedCandidate, error) {
	prefix := candidates
	if r.topM > 0 && len(prefix) > r.topM {
		prefix = prefix[:r.topM]
	}
	if len(prefix) == 0 {
		return nil, nil
	}
	if r.provider == nil {
		return fusedOrder(prefix), nil
	}

	documents := make([]string, len(prefix))
	for i, c := range prefix {
		chunk, ok := snap.Chunk(c.Ref)
		if ok {
			documents[i] = chunk.Text
		}
	}

	results, err := r.provider.RerankSimple(ctx, query, documents, len(documents))
	if err != nil {
		r.logger.Warn("rerank failed, keeping fused order", zap.Error(err))
		return fusedOrder(prefix), types.NewError(types.ErrRerankFailure, "cross-encoder rerank failed").
			WithStage("rerank").WithCause(err)
	}

	scores := make(map[int]float64, len(results))
	for _, res := range results {
		if res.Index >= 0 && res.Index < len(prefix) {
			scores[res.Index] = res.RelevanceScore
		}
	}

	reranked := make([]types.RerankedCandidate, len(prefix))
	order := make([]int, len(prefix))
	for i := range prefix {
		order[i] = i
	}
	// Stable on the fused prefix order, so score ties never reorder.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	for rank, i := range order {
		reranked[rank] = types.RerankedCandidate{
			RetrievalCandidate: prefix[i],
			RelevanceScore:     scores[i],
			Rank:               rank,
		}
	}
	return reranked, nil
}

// fusedOrder wraps the prefix unchanged, reusing fused scores as
// relevance.
func fusedOrder(prefix []types.RetrievalCandidate) []types.RerankedCandidate {
	out := make([]types.RerankedCandidate, len(prefix))
	for i, c := range prefix {
		out[i] = types.RerankedCandidate{
			RetrievalCandidate: c,
			RelevanceScore:     c.FusedScore,
			Rank:               i,
		}
	}
	return out
}
