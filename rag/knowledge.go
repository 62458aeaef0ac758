package rag

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lexrag/lexrag/llm/extract"
	"github.com/lexrag/lexrag/types"
)

// KnowledgeGraph maps a legal term to its related terms. Lookups are
// case-insensitive; the graph is immutable after construction.
type KnowledgeGraph struct {
	edges map[string][]string
}

// graphFile is the YAML shape for an external graph:
//
//	terms:
//	  negligence: [duty of care, breach of duty, damages]
type graphFile struct {
	Terms map[string][]string `yaml:"terms"`
}

// NewKnowledgeGraph builds a graph from term adjacency lists.
func NewKnowledgeGraph(terms map[string][]string) *KnowledgeGraph {
	g := &KnowledgeGraph{edges: make(map[string][]string, len(terms))}
	for term, related := range terms {
		key := strings.ToLower(strings.TrimSpace(term))
		for _, r := range related {
			r = strings.ToLower(strings.TrimSpace(r))
			if r != "" && r != key {
				g.edges[key] = append(g.edges[key], r)
			}
		}
		sort.Strings(g.edges[key])
	}
	return g
}

// LoadKnowledgeGraph reads a YAML graph file.
func LoadKnowledgeGraph(path string) (*KnowledgeGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge graph %s: %w", path, err)
	}
	var file graphFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse knowledge graph %s: %w", path, err)
	}
	return NewKnowledgeGraph(file.Terms), nil
}

// Related returns the neighbors of a term, or nil if unknown.
func (g *KnowledgeGraph) Related(term string) []string {
	return g.edges[strings.ToLower(strings.TrimSpace(term))]
}

// SeedLegalGraph returns the built-in graph covering common legal
// doctrine. It is intentionally small; production deployments load a
// curated graph via KnowledgeConfig.GraphPath.
func SeedLegalGraph() *KnowledgeGraph {
	return NewKnowledgeGraph(map[string][]string{
		"negligence":       {"duty of care", "breach of duty", "causation", "damages"},
		"duty of care":     {"negligence", "standard of care", "reasonable person"},
		"breach of duty":   {"negligence", "standard of care"},
		"damages":          {"compensation", "injury", "liability"},
		"contract":         {"offer", "acceptance", "consideration", "breach of contract"},
		"breach of contract": {"damages", "specific performance", "termination"},
		"consideration":    {"contract", "offer", "acceptance"},
		"termination":      {"notice period", "breach of contract", "severance"},
		"habeas corpus":    {"detention", "custody", "writ"},
		"detention":        {"habeas corpus", "arrest", "bail"},
		"bail":             {"detention", "surety", "bond"},
		"cheating":         {"fraud", "dishonest inducement", "misrepresentation"},
		"fraud":            {"cheating", "misrepresentation", "deceit"},
		"misrepresentation": {"fraud", "rescission"},
		"defamation":       {"libel", "slander", "reputation"},
		"libel":            {"defamation", "publication"},
		"slander":          {"defamation", "spoken statement"},
		"due process":      {"fair hearing", "natural justice", "fundamental rights"},
		"natural justice":  {"due process", "fair hearing", "bias"},
		"intellectual property": {"copyright", "patent", "trademark"},
		"copyright":        {"intellectual property", "infringement", "fair use"},
		"patent":           {"intellectual property", "infringement", "prior art"},
		"trademark":        {"intellectual property", "infringement", "passing off"},
		"lease":            {"tenancy", "rent", "eviction", "landlord"},
		"eviction":         {"lease", "notice period", "tenancy"},
		"divorce":          {"alimony", "custody", "maintenance"},
		"custody":          {"divorce", "guardianship", "welfare of the child"},
		"arbitration":      {"arbitral award", "arbitration agreement", "mediation"},
		"limitation":       {"limitation period", "prescription", "time bar"},
	})
}

// Expander turns a raw query into an ExpandedQuery by extracting legal
// entities and walking the knowledge graph around them.
type Expander struct {
	extractor extract.Provider
	graph     *KnowledgeGraph
	decayBase float64
	maxDepth  int
	logger    *zap.Logger
}

// NewExpander creates a query expander. A nil logger defaults to no-op.
func NewExpander(extractor extract.Provider, graph *KnowledgeGraph, decayBase float64, maxDepth int, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{
		extractor: extractor,
		graph:     graph,
		decayBase: decayBase,
		maxDepth:  maxDepth,
		logger:    logger.With(zap.String("component", "expander")),
	}
}

// Expand extracts entities and collects graph neighbors up to maxDepth
// hops away, weighted by decayBase^distance. A term reachable through
// several entities keeps its maximum weight rather than the sum. On
// extraction failure the unexpanded query is returned along with the
// error so the caller can degrade instead of failing the request.
func (e *Expander) Expand(ctx context.Context, query string) (*types.ExpandedQuery, error) {
	expanded := &types.ExpandedQuery{Original: query}

	extracted, err := e.extractor.ExtractSimple(ctx, query)
	if err != nil {
		e.logger.Warn("entity extraction failed, using unexpanded query", zap.Error(err))
		return expanded, types.NewError(types.ErrExtractionFailure, "entity extraction failed").
			WithStage("expand").WithCause(err)
	}

	for _, ent := range extracted {
		expanded.Entities = append(expanded.Entities, types.Entity{
			Text: ent.Text,
			Type: string(ent.Type),
		})
	}

	queryTokens := make(map[string]bool)
	for _, tok := range tokenize(query) {
		queryTokens[tok] = true
	}

	best := make(map[string]types.ExpansionTerm)
	for _, ent := range extracted {
		e.walk(strings.ToLower(ent.Text), ent.Text, queryTokens, best)
	}

	terms := make([]types.ExpansionTerm, 0, len(best))
	for _, t := range best {
		terms = append(terms, t)
	}
	// Deterministic order: weight descending, then term ascending.
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Weight != terms[j].Weight {
			return terms[i].Weight > terms[j].Weight
		}
		return terms[i].Term < terms[j].Term
	})
	expanded.Terms = terms

	e.logger.Debug("query expanded",
		zap.Int("entities", len(expanded.Entities)),
		zap.Int("terms", len(terms)))
	return expanded, nil
}

// walk runs a breadth-first traversal from one entity, recording each
// reached term with weight decayBase^distance if it beats the recorded one.
func (e *Expander) walk(start, source string, queryTokens map[string]bool, best map[string]types.ExpansionTerm) {
	type node struct {
		term  string
		depth int
	}
	visited := map[string]bool{start: true}
	frontier := []node{{term: start, depth: 0}}

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if cur.depth >= e.maxDepth {
			continue
		}
		for _, next := range e.graph.Related(cur.term) {
			if visited[next] {
				continue
			}
			visited[next] = true
			depth := cur.depth + 1

			if !termInQuery(next, queryTokens) {
				weight := pow(e.decayBase, depth)
				if prev, ok := best[next]; !ok || weight > prev.Weight {
					best[next] = types.ExpansionTerm{Term: next, Weight: weight, Source: source}
				}
			}
			frontier = append(frontier, node{term: next, depth: depth})
		}
	}
}

// termInQuery reports whether every token of a multi-word term already
// appears in the original query.
func termInQuery(term string, queryTokens map[string]bool) bool {
	toks := tokenize(term)
	if len(toks) == 0 {
		return true
	}
	for _, tok := range toks {
		if !queryTokens[tok] {
			return false
		}
	}
	return true
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}
