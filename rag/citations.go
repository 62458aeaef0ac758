package rag

import (
	"regexp"
	"strconv"

	"github.com/lexrag/lexrag/types"
)

var citationMarker = regexp.MustCompile(`\[S(\d+)\]`)

// extractCitationIndices returns the distinct marker indices in the text,
// in first-appearance order.
func extractCitationIndices(text string) []int {
	var indices []int
	seen := make(map[int]bool)
	for _, m := range citationMarker.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		indices = append(indices, n)
	}
	return indices
}

// stripUnknownMarkers removes citation markers that do not correspond to
// a supplied passage, enforcing that answers only cite what they were
// shown.
func stripUnknownMarkers(text string, maxIndex int) string {
	return citationMarker.ReplaceAllStringFunc(text, func(marker string) string {
		sub := citationMarker.FindStringSubmatch(marker)
		n, err := strconv.Atoi(sub[1])
		if err != nil || n < 1 || n > maxIndex {
			return ""
		}
		return marker
	})
}

// resolveCitations maps marker indices to the chunk references of the
// supplied passages. Unknown indices are skipped.
func resolveCitations(text string, passages []types.Passage) []types.ChunkRef {
	byIndex := make(map[int]types.ChunkRef, len(passages))
	for _, p := range passages {
		byIndex[p.CitationIndex] = p.Ref
	}
	var refs []types.ChunkRef
	for _, idx := range extractCitationIndices(text) {
		if ref, ok := byIndex[idx]; ok {
			refs = append(refs, ref)
		}
	}
	return refs
}
