// Package ner defines the NERProvider contract (spec.md §6) — optional
// language-specific named-entity extraction consulted by TerminologyAgent
// before it falls back to LLM-only term identification. If no Provider is
// configured, the pipeline proceeds without it (spec.md §6).
//
// Interface shape grounded on the same interface-with-mock pattern as
// pkg/llmclient and pkg/projectstore.
package ner

import "context"

// Item is the minimal shape TerminologyAgent feeds in: the source text a
// candidate term may be drawn from.
type Item struct {
	SourceText string
}

// Entity is one extracted named entity.
type Entity struct {
	Text       string
	EntityType string
	Confidence float64
}

// Provider is the NERProvider contract.
type Provider interface {
	// Extract returns entities of the given entityTypes found across items,
	// using the named model. An empty entityTypes means all supported
	// types.
	Extract(ctx context.Context, items []Item, modelName string, entityTypes []string) ([]Entity, error)
}
