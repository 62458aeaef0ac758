package rag

import (
	"math"
	"sort"
)

// denseScore ranks snapshot chunks by cosine similarity to the query
// embedding and returns the topN with positive similarity, ordered by
// score descending then ChunkRef ascending.
func denseScore(snap *Snapshot, queryVec []float64, topN int) []scoredRef {
	if snap.Len() == 0 || len(queryVec) == 0 {
		return nil
	}

	var results []scoredRef
	for _, chunk := range snap.chunks {
		if len(chunk.Embedding) != len(queryVec) {
			continue
		}
		sim := cosineSimilarity(queryVec, chunk.Embedding)
		if sim > 0 {
			results = append(results, scoredRef{ref: chunk.Ref(), score: sim})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].ref.Less(results[j].ref)
	})
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
