package types

// SourceTag records which retrieval method produced a candidate.
type SourceTag string

const (
	SourceSparse SourceTag = "sparse"
	SourceDense  SourceTag = "dense"
	SourceBoth   SourceTag = "both"
)

// RetrievalCandidate is one fused retrieval result. Scores are the
// min-max-normalized per-method scores; a chunk absent from one method's
// result set carries 0 for that method. RawSparse keeps the unnormalized
// BM25 score for the sparse-desc tie-break.
type RetrievalCandidate struct {
	Ref         ChunkRef  `json:"ref"`
	SparseScore float64   `json:"sparse_score"`
	DenseScore  float64   `json:"dense_score"`
	FusedScore  float64   `json:"fused_score"`
	RawSparse   float64   `json:"raw_sparse"`
	Source      SourceTag `json:"source"`
}

// RerankedCandidate is a retrieval candidate after cross-encoder rescoring.
// Ordering is solely by RelevanceScore descending; ties keep the incoming
// fused rank (stable).
type RerankedCandidate struct {
	RetrievalCandidate
	RelevanceScore float64 `json:"relevance_score"`
	Rank           int     `json:"rank"`
}

// Passage is a chunk handed to the generator as grounded context, tagged
// with its citation index ([S1]..[Sn]).
type Passage struct {
	Ref           ChunkRef `json:"ref"`
	CitationIndex int      `json:"citation_index"`
	Page          int      `json:"page"`
	Text          string   `json:"text"`
	Score         float64  `json:"score"`
}
