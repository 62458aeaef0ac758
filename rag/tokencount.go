package rag

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures prompt text against the generation budget.
type TokenCounter interface {
	CountTokens(text string) int
}

// TiktokenCounter counts with the model's real BPE encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the encoding for a model name. Unknown models
// fall back to the heuristic estimator rather than failing startup.
func NewTiktokenCounter(model string) (TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return EstimateCounter{}, err
	}
	return &TiktokenCounter{encoding: enc}, nil
}

func (c *TiktokenCounter) CountTokens(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimateCounter approximates tokens as len/4, the common heuristic for
// English text. Used when no encoding is available.
type EstimateCounter struct{}

func (EstimateCounter) CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
