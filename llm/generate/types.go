// Package generate provides the text-generation capability interface and
// HTTP adapters for OpenAI-compatible chat endpoints.
package generate

import (
	"context"
	"time"
)

// Role identifies a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is a chat completion request.
type GenerateRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Usage reports token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResponse is the response to a chat completion request.
type GenerateResponse struct {
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Content      string    `json:"content"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Usage        Usage     `json:"usage"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Provider defines the unified generation capability.
type Provider interface {
	// Generate produces a chat completion.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// GenerateSimple is a convenience method for a single prompt.
	GenerateSimple(ctx context.Context, system, user string) (string, error)

	// Name returns the provider name.
	Name() string
}
