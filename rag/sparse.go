package rag

import (
	"math"
	"sort"

	"github.com/lexrag/lexrag/types"
)

// bm25Scorer scores snapshot chunks with Okapi BM25 over a weighted term
// query. Expansion terms carry weights below 1 so they broaden recall
// without outvoting the user's own words.
type bm25Scorer struct {
	k1 float64
	b  float64
}

type scoredRef struct {
	ref   types.ChunkRef
	score float64
}

// queryTerms flattens an expanded query into weighted tokens. Original
// query tokens get weight 1; each expansion term contributes its tokens
// at expansionWeight*term.Weight. A token keeps its maximum weight when
// contributed from several sources.
func queryTerms(q *types.ExpandedQuery, expansionWeight float64) map[string]float64 {
	weights := make(map[string]float64)
	for _, tok := range tokenize(q.Original) {
		weights[tok] = 1.0
	}
	for _, term := range q.Terms {
		w := expansionWeight * term.Weight
		for _, tok := range tokenize(term.Term) {
			if w > weights[tok] {
				weights[tok] = w
			}
		}
	}
	return weights
}

// score ranks all snapshot chunks by weighted BM25 and returns the topN
// with positive scores, ordered by score descending then ChunkRef
// ascending so equal scores never reorder across runs.
func (s *bm25Scorer) score(snap *Snapshot, terms map[string]float64, topN int) []scoredRef {
	if snap.Len() == 0 || len(terms) == 0 {
		return nil
	}

	n := float64(snap.Len())
	idf := make(map[string]float64, len(terms))
	for term := range terms {
		df := float64(snap.docFreqs[term])
		if df == 0 {
			continue
		}
		idf[term] = math.Log((n-df+0.5)/(df+0.5) + 1)
	}

	var results []scoredRef
	for _, chunk := range snap.chunks {
		chunkLen := 0
		for _, c := range chunk.TermFreqs {
			chunkLen += c
		}

		score := 0.0
		for term, weight := range terms {
			tf := float64(chunk.TermFreqs[term])
			if tf == 0 {
				continue
			}
			norm := s.k1 * (1 - s.b + s.b*float64(chunkLen)/snap.avgChunkLen)
			score += weight * idf[term] * tf * (s.k1 + 1) / (tf + norm)
		}
		if score > 0 {
			results = append(results, scoredRef{ref: chunk.Ref(), score: score})
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
