package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lexrag/lexrag/llm/generate"
)

const extractSystemPrompt = `You are a legal entity extractor. Given a user question,
extract the legal entities it mentions. Respond with a JSON array only, no prose.
Each element: {"text": "<entity span>", "type": "statute|case|concept|party|citation"}.
Return [] if there are none.`

// LLMProvider implements Provider by prompting a chat model for JSON
// entities. Any generation backend works.
type LLMProvider struct {
	generator generate.Provider
	model     string
}

// NewLLMProvider creates an extraction provider backed by a chat model.
func NewLLMProvider(generator generate.Provider, model string) *LLMProvider {
	return &LLMProvider{generator: generator, model: model}
}

func (p *LLMProvider) Name() string { return "llm-extract" }

// Extract prompts the chat model and parses the JSON entity list.
func (p *LLMProvider) Extract(ctx context.Context, req *ExtractRequest) (*ExtractResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	resp, err := p.generator.Generate(ctx, &generate.GenerateRequest{
		Model: model,
		Messages: []generate.Message{
			{Role: generate.RoleSystem, Content: extractSystemPrompt},
			{Role: generate.RoleUser, Content: req.Text},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return nil, fmt.Errorf("extract call failed: %w", err)
	}

	entities, err := parseEntityJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse extract response: %w", err)
	}

	return &ExtractResponse{
		Provider:  p.Name(),
		Model:     resp.Model,
		Entities:  entities,
		CreatedAt: time.Now(),
	}, nil
}

// ExtractSimple extracts entities from a single text.
func (p *LLMProvider) ExtractSimple(ctx context.Context, text string) ([]Entity, error) {
	resp, err := p.Extract(ctx, &ExtractRequest{Text: text})
	if err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// parseEntityJSON tolerates models wrapping the array in a code fence.
func parseEntityJSON(content string) ([]Entity, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	var entities []Entity
	if err := json.Unmarshal([]byte(s), &entities); err != nil {
		return nil, err
	}

	out := entities[:0]
	for _, e := range entities {
		e.Text = strings.TrimSpace(e.Text)
		if e.Text == "" {
			continue
		}
		if e.Type == "" {
			e.Type = EntityConcept
		}
		out = append(out, e)
	}
	return out, nil
}
