package extract

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Statute references like "Section 420 of the IPC", "Article 21",
// "§ 1983", and case citations like "Smith v. Jones".
var (
	statutePattern  = regexp.MustCompile(`(?i)\b(?:section|article|rule|clause|§)\s*\d+[A-Za-z]?(?:\s*(?:of\s+the\s+)?[A-Z][A-Za-z. ]{1,40}(?:Act|Code|Constitution|IPC|CrPC|CPC))?`)
	casePattern     = regexp.MustCompile(`\b[A-Z][A-Za-z.&' ]{1,40}\s+v\.?\s+[A-Z][A-Za-z.&' ]{1,40}`)
	citationPattern = regexp.MustCompile(`\b\d{1,4}\s+[A-Z][A-Za-z.]{1,15}\s+\d{1,5}\b`)
)

// RuleProvider implements Provider with regex patterns for statute,
// case, and citation references. It needs no network and serves as the
// fallback when no extraction model is configured.
type RuleProvider struct{}

// NewRuleProvider creates the pattern-based extraction provider.
func NewRuleProvider() *RuleProvider { return &RuleProvider{} }

func (p *RuleProvider) Name() string { return "rule-extract" }

// Extract matches statute, case, and citation patterns in the text.
func (p *RuleProvider) Extract(_ context.Context, req *ExtractRequest) (*ExtractResponse, error) {
	var entities []Entity
	seen := make(map[string]bool)

	add := func(matches []string, typ EntityType) {
		for _, m := range matches {
			m = strings.TrimSpace(m)
			key := strings.ToLower(m)
			if m == "" || seen[key] {
				continue
			}
			seen[key] = true
			entities = append(entities, Entity{Text: m, Type: typ})
		}
	}

	add(statutePattern.FindAllString(req.Text, -1), EntityStatute)
	add(casePattern.FindAllString(req.Text, -1), EntityCase)
	add(citationPattern.FindAllString(req.Text, -1), EntityCitation)

	return &ExtractResponse{
		Provider:  p.Name(),
		Entities:  entities,
		CreatedAt: time.Now(),
	}, nil
}

// ExtractSimple extracts entities from a single text.
func (p *RuleProvider) ExtractSimple(ctx context.Context, text string) ([]Entity, error) {
	resp, err := p.Extract(ctx, &ExtractRequest{Text: text})
	if err != nil {
		return nil, err
	}
	return resp.Entities, nil
}
