package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lexrag/lexrag/config"
	"github.com/lexrag/lexrag/internal/metrics"
	"github.com/lexrag/lexrag/llm/embedding"
	"github.com/lexrag/lexrag/types"
)

// SuppressedAnswer replaces a draft the validator could not ground within
// the retry budget.
const SuppressedAnswer = "I could not produce an answer that is fully supported by the indexed documents. " +
	"Please rephrase the question or index additional material."

// Pipeline is the corrective RAG orchestrator. One Query call runs
// expansion, hybrid retrieval, reranking, generation, and the corrective
// validation loop, then commits the turn to conversation history.
// Stage failures degrade per stage instead of failing the query;
// history is only written once a terminal answer exists.
type Pipeline struct {
	cfg       *config.Config
	expander  *Expander
	retriever *HybridRetriever
	reranker  *Reranker
	generator *Generator
	validator *Validator
	index     *CorpusIndex
	embedder  embedding.Provider
	store     ConversationStore
	metrics   *metrics.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
}

// PipelineDeps bundles the pipeline's collaborators.
type PipelineDeps struct {
	Expander  *Expander
	Retriever *HybridRetriever
	Reranker  *Reranker
	Generator *Generator
	Validator *Validator
	Index     *CorpusIndex
	Embedder  embedding.Provider
	Store     ConversationStore
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// NewPipeline wires the orchestrator. Metrics may be nil; logging
// defaults to no-op.
func NewPipeline(cfg *config.Config, deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		expander:  deps.Expander,
		retriever: deps.Retriever,
		reranker:  deps.Reranker,
		generator: deps.Generator,
		validator: deps.Validator,
		index:     deps.Index,
		embedder:  deps.Embedder,
		store:     deps.Store,
		metrics:   deps.Metrics,
		tracer:    otel.Tracer("lexrag/pipeline"),
		logger:    logger.With(zap.String("component", "pipeline")),
	}
}

// IndexDocument embeds any chunks that arrived without vectors, indexes
// the document, and publishes a new snapshot.
func (p *Pipeline) IndexDocument(ctx context.Context, doc *types.Document) error {
	var pending []int
	for i, chunk := range doc.Chunks {
		if len(chunk.Embedding) == 0 {
			pending = append(pending, i)
		}
	}
	if len(pending) > 0 && p.embedder != nil {
		texts := make([]string, len(pending))
		for i, idx := range pending {
			texts[i] = doc.Chunks[idx].Text
		}
		vecs, err := p.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return types.NewError(types.ErrEmbeddingFailure, "document embedding failed").
				WithStage("index").WithCause(err)
		}
		if len(vecs) != len(pending) {
			return types.NewError(types.ErrEmbeddingFailure,
				fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vecs), len(pending))).
				WithStage("index")
		}
		for i, idx := range pending {
			doc.Chunks[idx].Embedding = vecs[i]
		}
	}

	if err := p.index.IndexDocument(doc); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.SetIndexedChunks(p.index.Snapshot().Len())
	}
	return nil
}

// RemoveDocument drops a document from the index.
func (p *Pipeline) RemoveDocument(docID string) error {
	if err := p.index.RemoveDocument(docID); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.SetIndexedChunks(p.index.Snapshot().Len())
	}
	return nil
}

// Documents lists indexed documents.
func (p *Pipeline) Documents() []types.DocumentInfo {
	return p.index.Documents()
}

// NewConversation starts an empty conversation and returns its ID.
func (p *Pipeline) NewConversation(ctx context.Context) (string, error) {
	state, err := p.store.Create(ctx)
	if err != nil {
		return "", err
	}
	return state.ID, nil
}

// Answer resolves one user query within a conversation. An empty
// conversationID starts a new conversation; the returned answer carries
// the ID for follow-ups. The turn is committed to history only after the
// corrective loop reaches a terminal state, so a failed query leaves the
// conversation unchanged.
func (p *Pipeline) Answer(ctx context.Context, conversationID, query string) (*types.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrInvalidQuery, "query is empty")
	}
	ctx, span := p.tracer.Start(ctx, "pipeline.answer")
	defer span.End()

	state, err := p.resolveConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	history := state.LastTurns(p.cfg.Conversation.HistoryTurns)
	effective := rewriteVagueQuery(query, history)
	if effective != query {
		p.logger.Debug("vague follow-up rewritten", zap.String("rewritten", effective))
	}

	// One snapshot serves the whole query: retrieval, reranking, and
	// passage assembly all see the same corpus even if a re-index lands
	// mid-query.
	snap := p.index.Snapshot()

	expanded := p.expand(ctx, effective)
	candidates, err := p.retrieve(ctx, expanded, snap)
	if err != nil {
		if types.GetErrorCode(err) == types.ErrRetrievalEmpty {
			return p.finish(ctx, state, query, &types.DraftAnswer{Text: InsufficientContextAnswer}, types.OutcomeEmpty, false)
		}
		return nil, err
	}

	reranked := p.rerank(ctx, effective, candidates, snap)
	passages := p.generator.BuildPassages(reranked, snap)

	draft, outcome, err := p.correctiveLoop(ctx, effective, history, passages)
	if err != nil {
		return nil, err
	}
	grounded := outcome == types.OutcomeAccepted
	return p.finish(ctx, state, query, draft, outcome, grounded)
}

// resolveConversation loads the conversation or creates a fresh one.
func (p *Pipeline) resolveConversation(ctx context.Context, id string) (*types.ConversationState, error) {
	if id == "" {
		return p.store.Create(ctx)
	}
	return p.store.Get(ctx, id)
}

// expand runs entity extraction and graph expansion; on failure the
// unexpanded query is used.
func (p *Pipeline) expand(ctx context.Context, query string) *types.ExpandedQuery {
	ctx, span := p.tracer.Start(ctx, "pipeline.expand")
	defer span.End()
	defer p.observeStage("expand", time.Now())
	ectx, cancel := context.WithTimeout(ctx, p.cfg.Knowledge.ExtractTimeout)
	defer cancel()

	expanded, err := p.expander.Expand(ectx, query)
	if err != nil {
		span.RecordError(err)
		p.degraded("expand", err)
	}
	return expanded
}

func (p *Pipeline) retrieve(ctx context.Context, q *types.ExpandedQuery, snap *Snapshot) ([]types.RetrievalCandidate, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.retrieve")
	defer span.End()
	defer p.observeStage("retrieve", time.Now())
	rctx, cancel := context.WithTimeout(ctx, p.cfg.Retrieval.Timeout)
	defer cancel()
	candidates, err := p.retriever.Retrieve(rctx, q, snap)
	span.SetAttributes(attribute.Int("rag.candidates", len(candidates)))
	return candidates, err
}

// rerank falls back to fused order on cross-encoder failure.
func (p *Pipeline) rerank(ctx context.Context, query string, candidates []types.RetrievalCandidate, snap *Snapshot) []types.RerankedCandidate {
	ctx, span := p.tracer.Start(ctx, "pipeline.rerank")
	defer span.End()
	defer p.observeStage("rerank", time.Now())
	rctx, cancel := context.WithTimeout(ctx, p.cfg.Rerank.Timeout)
	defer cancel()

	reranked, err := p.reranker.Rerank(rctx, query, candidates, snap)
	if err != nil {
		span.RecordError(err)
		p.degraded("rerank", err)
	}
	return reranked
}

// correctiveLoop drafts, validates, and decides until a terminal state.
// Generator calls are bounded by RetryBudget+1 plus at most one retry of
// a transport-level generation failure per query.
func (p *Pipeline) correctiveLoop(ctx context.Context, query string, history []types.Turn, passages []types.Passage) (*types.DraftAnswer, types.Outcome, error) {
	loop := NewCorrectiveLoop(p.cfg.Generation.RetryBudget)
	var flagged []types.ClaimSpan
	retriedTransport := false

	for {
		draft, err := p.draftOnce(ctx, query, history, passages, flagged, loop.Attempt())
		if err != nil {
			// One transport retry for the whole query, then give up.
			p.degraded("generate", err)
			if retriedTransport {
				p.suppress()
				return &types.DraftAnswer{Text: SuppressedAnswer, Attempt: loop.Attempt()}, types.OutcomeSuppressed, nil
			}
			retriedTransport = true
			draft, err = p.draftOnce(ctx, query, history, passages, flagged, loop.Attempt())
			if err != nil {
				p.suppress()
				return &types.DraftAnswer{Text: SuppressedAnswer, Attempt: loop.Attempt()}, types.OutcomeSuppressed, nil
			}
		}
		if p.metrics != nil {
			p.metrics.ObserveDraft()
		}

		verdict := p.validate(ctx, draft)
		switch loop.Decide(verdict) {
		case StateAccepted:
			return draft, types.OutcomeAccepted, nil
		case StateRegenerated:
			flagged = verdict.Flagged
			if p.metrics != nil {
				p.metrics.ObserveRegeneration()
			}
			p.logger.Info("draft rejected, regenerating",
				zap.Int("attempt", loop.Attempt()),
				zap.Int("flagged", len(flagged)))
		case StateSuppressed:
			p.suppress()
			return &types.DraftAnswer{Text: SuppressedAnswer, Passages: draft.Passages, Attempt: loop.Attempt()},
				types.OutcomeSuppressed, nil
		}
	}
}

func (p *Pipeline) draftOnce(ctx context.Context, query string, history []types.Turn, passages []types.Passage, flagged []types.ClaimSpan, attempt int) (*types.DraftAnswer, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.generate",
		trace.WithAttributes(attribute.Int("rag.attempt", attempt)))
	defer span.End()
	defer p.observeStage("generate", time.Now())
	gctx, cancel := context.WithTimeout(ctx, p.cfg.Generation.Timeout)
	defer cancel()
	draft, err := p.generator.Draft(gctx, query, history, passages, flagged, attempt)
	if err != nil {
		span.RecordError(err)
	}
	return draft, err
}

func (p *Pipeline) validate(ctx context.Context, draft *types.DraftAnswer) *types.ValidationVerdict {
	_, span := p.tracer.Start(ctx, "pipeline.validate")
	defer span.End()
	defer p.observeStage("validate", time.Now())
	return p.validator.Validate(draft)
}

// finish assembles the caller-facing answer and commits the turn.
func (p *Pipeline) finish(ctx context.Context, state *types.ConversationState, query string, draft *types.DraftAnswer, outcome types.Outcome, grounded bool) (*types.Answer, error) {
	answer := &types.Answer{
		Text:           draft.Text,
		Citations:      buildCitations(draft),
		ConversationID: state.ID,
		Grounded:       grounded,
		Attempts:       draft.Attempt + 1,
		Outcome:        outcome,
	}

	turn := types.Turn{
		Query:     query,
		Answer:    answer.Text,
		Citations: answer.Citations,
		At:        time.Now(),
	}
	if err := p.store.Append(ctx, state.ID, turn); err != nil {
		// The caller still gets the answer; only history is lost.
		p.logger.Warn("failed to commit turn", zap.String("conversation", state.ID), zap.Error(err))
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("rag.outcome", string(outcome)),
		attribute.Int("rag.attempts", answer.Attempts))

	if p.metrics != nil {
		p.metrics.ObserveQuery(string(outcome))
	}
	p.logger.Info("query answered",
		zap.String("conversation", state.ID),
		zap.String("outcome", string(outcome)),
		zap.Int("attempts", answer.Attempts),
		zap.Int("citations", len(answer.Citations)))
	return answer, nil
}

func buildCitations(draft *types.DraftAnswer) []types.Citation {
	byRef := make(map[types.ChunkRef]types.Passage, len(draft.Passages))
	for _, pa := range draft.Passages {
		byRef[pa.Ref] = pa
	}
	var citations []types.Citation
	for _, ref := range draft.Citations {
		pa, ok := byRef[ref]
		if !ok {
			continue
		}
		citations = append(citations, types.Citation{
			Ref:     ref,
			Page:    pa.Page,
			Excerpt: excerpt(pa.Text, 200),
			Score:   pa.Score,
		})
	}
	return citations
}

func excerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, time.Since(start))
	}
}

func (p *Pipeline) degraded(stage string, err error) {
	if p.metrics != nil {
		p.metrics.ObserveDegraded(stage)
	}
	p.logger.Warn("stage degraded", zap.String("stage", stage), zap.Error(err))
}

func (p *Pipeline) suppress() {
	if p.metrics != nil {
		p.metrics.ObserveSuppression()
	}
}

var anaphors = map[string]bool{
	"it": true, "that": true, "this": true, "they": true,
	"those": true, "these": true,
}

// rewriteVagueQuery anchors anaphoric follow-ups ("why?", "does that
// apply here?") to the previous question so retrieval has something to
// match on. Specific queries pass through unchanged.
func rewriteVagueQuery(query string, history []types.Turn) string {
	if len(history) == 0 {
		return query
	}
	toks := tokenize(query)
	if len(toks) == 0 {
		return query
	}
	vague := len(toks) <= 2
	for _, tok := range toks {
		if anaphors[tok] {
			vague = true
			break
		}
	}
	last := history[len(history)-1].Query
	if !vague || last == "" {
		return query
	}
	return fmt.Sprintf("%s (in the context of: %s)", query, last)
}
