package types

import (
	"fmt"
	"time"
)

// Document is an indexed source document. Once indexed it is immutable;
// re-uploading the same ID replaces the old document wholesale.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Chunks      []Chunk   `json:"chunks"`
	TotalChunks int       `json:"total_chunks"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Chunk is the atomic unit of retrieval and citation. A chunk is uniquely
// identified by (DocID, Index).
type Chunk struct {
	DocID     string         `json:"doc_id"`
	Index     int            `json:"index"`
	Page      int            `json:"page"`
	Text      string         `json:"text"`
	Embedding []float64      `json:"embedding,omitempty"`
	TermFreqs map[string]int `json:"term_freqs,omitempty"`
}

// Ref returns the chunk's identity.
func (c Chunk) Ref() ChunkRef {
	return ChunkRef{DocID: c.DocID, Index: c.Index}
}

// ChunkRef identifies a chunk across the pipeline. It is comparable and
// usable as a map key.
type ChunkRef struct {
	DocID string `json:"doc_id"`
	Index int    `json:"index"`
}

// String renders the reference as "doc_id#index".
func (r ChunkRef) String() string {
	return fmt.Sprintf("%s#%d", r.DocID, r.Index)
}

// Less defines the ascending (DocID, Index) order used as the final
// tie-break in retrieval ranking.
func (r ChunkRef) Less(other ChunkRef) bool {
	if r.DocID != other.DocID {
		return r.DocID < other.DocID
	}
	return r.Index < other.Index
}

// DocumentInfo summarizes an indexed document without its chunk payload.
type DocumentInfo struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	TotalChunks int       `json:"total_chunks"`
	IngestedAt  time.Time `json:"ingested_at"`
}
