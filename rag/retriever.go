package rag

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lexrag/lexrag/config"
	"github.com/lexrag/lexrag/llm/embedding"
	"github.com/lexrag/lexrag/types"
)

// HybridRetriever fuses BM25 and dense-embedding retrieval over one index
// snapshot. Both branches run concurrently; their scores are min-max
// normalized to [0,1] before the weighted merge, so fusion weights mean
// the same thing regardless of raw score scale.
type HybridRetriever struct {
	embedder embedding.Provider
	cfg      config.RetrievalConfig
	bm25     bm25Scorer
	logger   *zap.Logger
}

// NewHybridRetriever creates a retriever.
func NewHybridRetriever(embedder embedding.Provider, cfg config.RetrievalConfig, logger *zap.Logger) *HybridRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridRetriever{
		embedder: embedder,
		cfg:      cfg,
		bm25:     bm25Scorer{k1: cfg.BM25K1, b: cfg.BM25B},
		logger:   logger.With(zap.String("component", "retriever")),
	}
}

// Retrieve runs hybrid retrieval for an expanded query against the given
// snapshot and returns at most TopK fused candidates. The caller supplies
// the snapshot so every stage of a query sees the same corpus. An
// embedding failure degrades to sparse-only results. Zero candidates is
// reported as a RetrievalEmpty error so callers can short-circuit instead
// of generating from nothing.
func (r *HybridRetriever) Retrieve(ctx context.Context, q *types.ExpandedQuery, snap *Snapshot) ([]types.RetrievalCandidate, error) {
	terms := queryTerms(q, r.cfg.ExpansionWeight)

	var (
		sparse []scoredRef
		dense  []scoredRef
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sparse = r.bm25.score(snap, terms, r.cfg.SparseTopN)
		return nil
	})
	g.Go(func() error {
		if r.embedder == nil {
			return nil
		}
		vec, err := r.embedder.EmbedQuery(gctx, q.Original)
		if err != nil {
			// Degrade to sparse-only rather than failing the query.
			r.logger.Warn("query embedding failed, sparse-only retrieval", zap.Error(err))
			return nil
		}
		dense = denseScore(snap, vec, r.cfg.DenseTopN)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := fuse(sparse, dense, r.cfg.FusionAlpha)
	if r.cfg.TopK > 0 && len(candidates) > r.cfg.TopK {
		candidates = candidates[:r.cfg.TopK]
	}
	if len(candidates) == 0 {
		return nil, types.NewError(types.ErrRetrievalEmpty, "no candidates for query").WithStage("retrieve")
	}

	r.logger.Debug("retrieval complete",
		zap.Int("sparse", len(sparse)),
		zap.Int("dense", len(dense)),
		zap.Int("fused", len(candidates)))
	return candidates, nil
}

// fuse min-max normalizes each branch, merges by
// alpha*sparse + (1-alpha)*dense, and orders the union under the total
// order: fused score descending, raw sparse score descending, ChunkRef
// ascending. The same inputs always yield the same order.
func fuse(sparse, dense []scoredRef, alpha float64) []types.RetrievalCandidate {
	sparseNorm := normalizeScores(sparse)
	denseNorm := normalizeScores(dense)

	merged := make(map[types.ChunkRef]*types.RetrievalCandidate)
	for i, sr := range sparse {
		merged[sr.ref] = &types.RetrievalCandidate{
			Ref:         sr.ref,
			SparseScore: sparseNorm[i],
			RawSparse:   sr.score,
			Source:      types.SourceSparse,
		}
	}
	for i, dr := range dense {
		if c, ok := merged[dr.ref]; ok {
			c.DenseScore = denseNorm[i]
			c.Source = types.SourceBoth
		} else {
			merged[dr.ref] = &types.RetrievalCandidate{
				Ref:        dr.ref,
				DenseScore: denseNorm[i],
				Source:     types.SourceDense,
			}
		}
	}

	out := make([]types.RetrievalCandidate, 0, len(merged))
	for _, c := range merged {
		c.FusedScore = alpha*c.SparseScore + (1-alpha)*c.DenseScore
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		if out[i].RawSparse != out[j].RawSparse {
			return out[i].RawSparse > out[j].RawSparse
		}
		return out[i].Ref.Less(out[j].Ref)
	})
	return out
}

// normalizeScores min-max scales a branch's scores to [0,1]. A single
// result, or all-equal scores, normalizes to 1.
func normalizeScores(refs []scoredRef) []float64 {
	if len(refs) == 0 {
		return nil
	}
	min, max := refs[0].score, refs[0].score
	for _, r := range refs[1:] {
		if r.score < min {
			min = r.score
		}
		if r.score > max {
			max = r.score
		}
	}
	out := make([]float64, len(refs))
	for i, r := range refs {
		if max == min {
			out[i] = 1.0
		} else {
			out[i] = (r.score - min) / (max - min)
		}
	}
	return out
}
