// Package extract provides the entity-extraction capability interface and
// HTTP adapters. Extraction pulls typed entities (statutes, case names,
// legal concepts, parties) out of a user query for downstream expansion.
package extract

import (
	"context"
	"time"
)

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntityStatute  EntityType = "statute"
	EntityCase     EntityType = "case"
	EntityConcept  EntityType = "concept"
	EntityParty    EntityType = "party"
	EntityCitation EntityType = "citation"
)

// Entity is one extracted span.
type Entity struct {
	Text string     `json:"text"`
	Type EntityType `json:"type"`
}

// ExtractRequest asks for entities in a text.
type ExtractRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// ExtractResponse carries the extracted entities.
type ExtractResponse struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Entities  []Entity  `json:"entities"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Provider defines the unified extraction capability.
type Provider interface {
	// Extract pulls entities out of the request text.
	Extract(ctx context.Context, req *ExtractRequest) (*ExtractResponse, error)

	// ExtractSimple is a convenience method for a single text.
	ExtractSimple(ctx context.Context, text string) ([]Entity, error)

	// Name returns the provider name.
	Name() string
}
