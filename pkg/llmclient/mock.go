package llmclient

import (
	"context"
	"sync"
)

// Mock is an in-memory test double for Client, grounded on the teacher's own
// pattern of pairing every external interface with a scriptable fake (see
// pkg/agent/llm_grpc_test.go's stub client).
type Mock struct {
	mu    sync.Mutex
	calls []Call

	// Responder, if set, computes the response for each call. Otherwise
	// Responses is consumed in order (one entry per call); once exhausted,
	// the zero Response is returned.
	Responder func(messages []Message, systemPrompt string, cfg PlatformConfig) (Response, error)
	Responses []Response
	next      int
}

// Call records one Send invocation for test assertions.
type Call struct {
	Messages     []Message
	SystemPrompt string
	Config       PlatformConfig
}

// Send implements Client.
func (m *Mock) Send(_ context.Context, messages []Message, systemPrompt string, cfg PlatformConfig) (Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Messages: messages, SystemPrompt: systemPrompt, Config: cfg})
	m.mu.Unlock()

	if m.Responder != nil {
		return m.Responder(messages, systemPrompt, cfg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next < len(m.Responses) {
		r := m.Responses[m.next]
		m.next++
		return r, nil
	}
	return Response{}, nil
}

// Calls returns a copy of recorded calls.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
