// Package llmclient defines the LLMClient contract (spec.md §6) — the only
// interface the engine uses to reach an actual language model. The engine
// treats every transport error as a failed call: no partial state is ever
// written from a call that raised.
//
// Interface shape grounded on the teacher's pkg/agent/llm_client.go, which
// likewise abstracts the concrete model transport behind a small interface
// with a fixed message/role vocabulary.
package llmclient

import "context"

// Role is a conversation message role.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the conversation sent to the model.
type Message struct {
	Role    Role
	Content string
}

// PlatformConfig carries the provider/model selection and call parameters.
// Kept as a plain struct (not an interface) since it is pure configuration
// data passed through, never dispatched on.
type PlatformConfig struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	TimeoutSecs int
}

// Response is the result of a single Send call.
type Response struct {
	Skipped          bool
	Reasoning        string
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Client is the LLMClient contract: given messages + a system prompt +
// platform config, return a Response. Implementations may return an error
// on any transport failure (timeout, non-2xx, empty reply); the engine
// never lets that error bubble past its calling helper.
type Client interface {
	Send(ctx context.Context, messages []Message, systemPrompt string, cfg PlatformConfig) (Response, error)
}
