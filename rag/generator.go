package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lexrag/lexrag/config"
	"github.com/lexrag/lexrag/llm/generate"
	"github.com/lexrag/lexrag/types"
)

// InsufficientContextAnswer is returned without calling the model when no
// usable passage survives the token budget.
const InsufficientContextAnswer = "I could not find relevant material in the indexed documents to answer this question."

const generatorSystemPrompt = `You are a legal research assistant. Answer strictly from the
numbered source passages provided. After every factual statement, cite the passage that
supports it with its marker, e.g. [S1] or [S2]. Do not cite passages you were not given.
If the passages do not contain the answer, say so plainly instead of guessing.`

// Generator assembles grounded prompts and produces draft answers with
// citation markers.
type Generator struct {
	provider generate.Provider
	counter  TokenCounter
	cfg      config.GenerationConfig
	logger   *zap.Logger
}

// NewGenerator creates a generator. A nil counter falls back to the
// heuristic estimator.
func NewGenerator(provider generate.Provider, counter TokenCounter, cfg config.GenerationConfig, logger *zap.Logger) *Generator {
	if counter == nil {
		counter = EstimateCounter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		provider: provider,
		counter:  counter,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "generator")),
	}
}

// BuildPassages converts the top reranked candidates into numbered
// passages, resolving texts against the snapshot the candidates came
// from. Markers are assigned by rank: the best passage is [S1].
func (g *Generator) BuildPassages(candidates []types.RerankedCandidate, snap *Snapshot) []types.Passage {
	limit := len(candidates)
	if g.cfg.ContextTopN > 0 && limit > g.cfg.ContextTopN {
		limit = g.cfg.ContextTopN
	}

	var passages []types.Passage
	for _, c := range candidates[:limit] {
		chunk, ok := snap.Chunk(c.Ref)
		if !ok {
			continue
		}
		passages = append(passages, types.Passage{
			Ref:           c.Ref,
			CitationIndex: len(passages) + 1,
			Page:          chunk.Page,
			Text:          chunk.Text,
			Score:         c.RelevanceScore,
		})
	}
	return passages
}

// fitBudget drops passages from the lowest-ranked end until the combined
// passage text fits MaxContextTokens. The survivors keep their original
// citation indices.
func (g *Generator) fitBudget(passages []types.Passage) []types.Passage {
	if g.cfg.MaxContextTokens <= 0 {
		return passages
	}
	total := 0
	kept := 0
	for _, p := range passages {
		n := g.counter.CountTokens(p.Text)
		if total+n > g.cfg.MaxContextTokens {
			break
		}
		total += n
		kept++
	}
	return passages[:kept]
}

// Draft produces one draft answer grounded in the supplied passages.
// Passages beyond the token budget are dropped lowest-ranked first. With
// no surviving passage the insufficient-context answer is returned
// without a model call. Flagged spans from a previous validation round
// are fed back so the regeneration avoids repeating them.
func (g *Generator) Draft(ctx context.Context, query string, history []types.Turn, passages []types.Passage, flagged []types.ClaimSpan, attempt int) (*types.DraftAnswer, error) {
	passages = g.fitBudget(passages)
	if len(passages) == 0 {
		return &types.DraftAnswer{
			Text:    InsufficientContextAnswer,
			Attempt: attempt,
		}, nil
	}

	var sb strings.Builder
	sb.WriteString("Source passages:\n")
	for _, p := range passages {
		fmt.Fprintf(&sb, "[S%d] (page %d) %s\n\n", p.CitationIndex, p.Page, p.Text)
	}

	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", turn.Query, turn.Answer)
		}
		sb.WriteString("\n")
	}

	if len(flagged) > 0 {
		sb.WriteString("Your previous draft contained statements the sources do not support. " +
			"Remove or correct them, keeping only what the passages state:\n")
		for _, span := range flagged {
			fmt.Fprintf(&sb, "- %s\n", span.Text)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Question: %s", query)

	resp, err := g.provider.Generate(ctx, &generate.GenerateRequest{
		Messages: []generate.Message{
			{Role: generate.RoleSystem, Content: generatorSystemPrompt},
			{Role: generate.RoleUser, Content: sb.String()},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, types.NewError(types.ErrGenerationFailure, "generation failed").
			WithStage("generate").WithCause(err).WithRetryable(true)
	}

	text := stripUnknownMarkers(resp.Content, len(passages))
	draft := &types.DraftAnswer{
		Text:      text,
		Citations: resolveCitations(text, passages),
		Passages:  passages,
		Attempt:   attempt,
	}
	g.logger.Debug("draft generated",
		zap.Int("attempt", attempt),
		zap.Int("passages", len(passages)),
		zap.Int("citations", len(draft.Citations)))
	return draft, nil
}
