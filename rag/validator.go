package rag

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/lexrag/lexrag/config"
	"github.com/lexrag/lexrag/types"
)

// Validator checks a draft answer against the passages it was generated
// from. Each claim sentence is scored by content-word overlap with its
// best-matching passage; the thresholds split the result into exact,
// partial, and unsupported. The check is deterministic: the same draft
// and passages always produce the same verdict.
type Validator struct {
	cfg    config.ValidationConfig
	logger *zap.Logger
}

// NewValidator creates a validator.
func NewValidator(cfg config.ValidationConfig, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{cfg: cfg, logger: logger.With(zap.String("component", "validator"))}
}

// Validate classifies every claim in the draft and aggregates a verdict:
// no unsupported claim is Supported, all claims unsupported is
// Unsupported, anything between is PartiallySupported. Flagged carries
// the unsupported spans for regeneration feedback. Confidence is the
// supported fraction of claims.
func (v *Validator) Validate(draft *types.DraftAnswer) *types.ValidationVerdict {
	spans := splitClaims(draft.Text)
	if len(spans) == 0 {
		return &types.ValidationVerdict{
			Classification: types.VerdictSupported,
			Confidence:     1,
		}
	}

	passageSets := make([]map[string]bool, len(draft.Passages))
	for i, p := range draft.Passages {
		passageSets[i] = contentWordSet(p.Text)
	}

	unsupported := 0
	for i := range spans {
		spans[i].Support = v.classifySpan(spans[i].Text, passageSets)
		if spans[i].Support == types.SupportNone {
			unsupported++
		}
	}

	verdict := &types.ValidationVerdict{
		Confidence: float64(len(spans)-unsupported) / float64(len(spans)),
	}
	switch {
	case unsupported == 0:
		verdict.Classification = types.VerdictSupported
	case unsupported == len(spans):
		verdict.Classification = types.VerdictUnsupported
	default:
		verdict.Classification = types.VerdictPartiallySupported
	}
	for _, s := range spans {
		if s.Support == types.SupportNone {
			verdict.Flagged = append(verdict.Flagged, s)
		}
	}

	v.logger.Debug("draft validated",
		zap.String("classification", string(verdict.Classification)),
		zap.Int("claims", len(spans)),
		zap.Int("unsupported", unsupported))
	return verdict
}

// classifySpan scores the claim against its best-matching passage.
func (v *Validator) classifySpan(claim string, passageSets []map[string]bool) types.SupportLevel {
	words := contentWords(claim)
	if len(words) == 0 {
		return types.SupportExact
	}

	best := 0.0
	for _, set := range passageSets {
		hits := 0
		for _, w := range words {
			if set[w] {
				hits++
			}
		}
		if overlap := float64(hits) / float64(len(words)); overlap > best {
			best = overlap
		}
	}

	switch {
	case best >= v.cfg.ExactThreshold:
		return types.SupportExact
	case best >= v.cfg.PartialThreshold:
		return types.SupportPartial
	default:
		return types.SupportNone
	}
}

// splitClaims breaks the answer into sentence spans with byte offsets.
// Citation markers stay attached to their sentence; fragments without
// letters are skipped.
func splitClaims(text string) []types.ClaimSpan {
	var spans []types.ClaimSpan
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		sentence := strings.TrimSpace(text[start:end])
		if hasLetter(sentence) {
			spans = append(spans, types.ClaimSpan{Text: sentence, Start: start, End: end})
		}
		start = end
	}
	if tail := strings.TrimSpace(text[start:]); hasLetter(tail) {
		spans = append(spans, types.ClaimSpan{Text: tail, Start: start, End: len(text)})
	}
	return spans
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
