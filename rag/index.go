package rag

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/lexrag/lexrag/types"
)

// Snapshot is an immutable view of the indexed corpus. Retrieval runs
// entirely against one snapshot, so a query never observes a half-indexed
// document.
type Snapshot struct {
	chunks []types.Chunk
	byRef  map[types.ChunkRef]int
	docs   map[string]types.DocumentInfo

	// BM25 corpus statistics.
	docFreqs    map[string]int
	totalTokens int
	avgChunkLen float64

	dims int
}

// Len returns the number of indexed chunks.
func (s *Snapshot) Len() int { return len(s.chunks) }

// Chunk resolves a reference against this snapshot.
func (s *Snapshot) Chunk(ref types.ChunkRef) (types.Chunk, bool) {
	i, ok := s.byRef[ref]
	if !ok {
		return types.Chunk{}, false
	}
	return s.chunks[i], true
}

// Dimensions returns the embedding dimensionality of the snapshot, or 0
// when no embedded chunk has been indexed yet.
func (s *Snapshot) Dimensions() int { return s.dims }

// CorpusIndex is the versioned in-memory index. Writers are serialized;
// each write publishes a fresh snapshot atomically, so readers are never
// blocked and never see partial state.
type CorpusIndex struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	closed  bool
	logger  *zap.Logger
}

// NewCorpusIndex creates an empty index.
func NewCorpusIndex(logger *zap.Logger) *CorpusIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &CorpusIndex{logger: logger.With(zap.String("component", "index"))}
	idx.current.Store(emptySnapshot())
	return idx
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		byRef:    make(map[types.ChunkRef]int),
		docs:     make(map[string]types.DocumentInfo),
		docFreqs: make(map[string]int),
	}
}

// Snapshot returns the current published snapshot.
func (idx *CorpusIndex) Snapshot() *Snapshot {
	return idx.current.Load()
}

// IndexDocument adds a document's chunks to the index and publishes a new
// snapshot. Re-indexing an existing document ID replaces the old document
// wholesale. Chunks must share one embedding dimensionality.
func (idx *CorpusIndex) IndexDocument(doc *types.Document) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return types.NewError(types.ErrIndexClosed, "index is closed")
	}

	prev := idx.current.Load()
	if _, exists := prev.docs[doc.ID]; exists {
		prev = snapshotWithout(prev, doc.ID)
	}

	dims := prev.dims
	for _, chunk := range doc.Chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		if dims == 0 {
			dims = len(chunk.Embedding)
		} else if len(chunk.Embedding) != dims {
			return types.NewError(types.ErrEmbeddingDimMismatch, "embedding dimension mismatch in "+chunk.Ref().String())
		}
	}

	next := cloneSnapshot(prev)
	next.dims = dims
	for _, chunk := range doc.Chunks {
		if chunk.TermFreqs == nil {
			chunk.TermFreqs = termFrequencies(chunk.Text)
		}
		next.byRef[chunk.Ref()] = len(next.chunks)
		next.chunks = append(next.chunks, chunk)

		chunkLen := 0
		for term, n := range chunk.TermFreqs {
			next.docFreqs[term]++
			chunkLen += n
		}
		next.totalTokens += chunkLen
	}
	next.docs[doc.ID] = types.DocumentInfo{
		ID:          doc.ID,
		Filename:    doc.Filename,
		TotalChunks: len(doc.Chunks),
		IngestedAt:  doc.IngestedAt,
	}
	next.recomputeAvg()

	idx.current.Store(next)
	idx.logger.Info("document indexed",
		zap.String("doc_id", doc.ID),
		zap.Int("chunks", len(doc.Chunks)),
		zap.Int("total_chunks", next.Len()))
	return nil
}

// RemoveDocument drops all chunks of a document and publishes a new
// snapshot. Removing an unknown ID is a no-op.
func (idx *CorpusIndex) RemoveDocument(docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return types.NewError(types.ErrIndexClosed, "index is closed")
	}

	prev := idx.current.Load()
	if _, exists := prev.docs[docID]; !exists {
		return nil
	}
	next := snapshotWithout(prev, docID)

	idx.current.Store(next)
	idx.logger.Info("document removed",
		zap.String("doc_id", docID),
		zap.Int("total_chunks", next.Len()))
	return nil
}

// Documents lists indexed documents ordered by ID.
func (idx *CorpusIndex) Documents() []types.DocumentInfo {
	snap := idx.current.Load()
	out := make([]types.DocumentInfo, 0, len(snap.docs))
	for _, info := range snap.docs {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close rejects further writes. Published snapshots remain readable.
func (idx *CorpusIndex) Close() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
}

// snapshotWithout rebuilds a snapshot with one document's chunks and
// statistics removed.
func snapshotWithout(prev *Snapshot, docID string) *Snapshot {
	next := emptySnapshot()
	next.dims = prev.dims
	for id, info := range prev.docs {
		if id != docID {
			next.docs[id] = info
		}
	}
	for _, chunk := range prev.chunks {
		if chunk.DocID == docID {
			continue
		}
		next.byRef[chunk.Ref()] = len(next.chunks)
		next.chunks = append(next.chunks, chunk)
		for term, n := range chunk.TermFreqs {
			next.docFreqs[term]++
			next.totalTokens += n
		}
	}
	next.recomputeAvg()
	return next
}

func cloneSnapshot(prev *Snapshot) *Snapshot {
	next := &Snapshot{
		chunks:      make([]types.Chunk, len(prev.chunks), len(prev.chunks)+8),
		byRef:       make(map[types.ChunkRef]int, len(prev.byRef)),
		docs:        make(map[string]types.DocumentInfo, len(prev.docs)),
		docFreqs:    make(map[string]int, len(prev.docFreqs)),
		totalTokens: prev.totalTokens,
		dims:        prev.dims,
	}
	copy(next.chunks, prev.chunks)
	for ref, i := range prev.byRef {
		next.byRef[ref] = i
	}
	for id, info := range prev.docs {
		next.docs[id] = info
	}
	for term, n := range prev.docFreqs {
		next.docFreqs[term] = n
	}
	return next
}

func (s *Snapshot) recomputeAvg() {
	if len(s.chunks) == 0 {
		s.avgChunkLen = 0
		return
	}
	s.avgChunkLen = float64(s.totalTokens) / float64(len(s.chunks))
}
