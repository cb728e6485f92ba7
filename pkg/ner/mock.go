package ner

import (
	"context"
	"sync"
)

// Mock is an in-memory test double for Provider.
type Mock struct {
	mu sync.Mutex

	// Responder, if set, computes the result for each call. Otherwise
	// Entities is returned verbatim on every call.
	Responder func(items []Item, modelName string, entityTypes []string) ([]Entity, error)
	Entities  []Entity

	calls []Call
}

// Call records one Extract invocation.
type Call struct {
	Items       []Item
	ModelName   string
	EntityTypes []string
}

// Extract implements Provider.
func (m *Mock) Extract(_ context.Context, items []Item, modelName string, entityTypes []string) ([]Entity, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Items: items, ModelName: modelName, EntityTypes: entityTypes})
	m.mu.Unlock()

	if m.Responder != nil {
		return m.Responder(items, modelName, entityTypes)
	}
	return m.Entities, nil
}

// Calls returns a copy of recorded calls.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
