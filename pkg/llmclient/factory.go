package llmclient

import "fmt"

// NewFromProvider resolves a Client by provider name, mirroring the pack's
// config-driven factory pattern (e.g. hector's NewRateLimiterFromConfig
// switch-on-backend shape). Real transports for chat/completion providers
// are a deliberate external-collaborator boundary (spec.md §1) that this
// module does not implement, so the only provider this factory can satisfy
// today is "mock" — useful for operators running a local smoke test against
// a scripted responder. Any other name, including empty, is rejected so a
// misconfigured deployment fails at startup instead of silently talking to
// a test double.
func NewFromProvider(provider string, mock *Mock) (Client, error) {
	switch provider {
	case "mock":
		if mock == nil {
			return nil, fmt.Errorf("llmclient: provider %q requires a configured Mock responder", provider)
		}
		return mock, nil
	default:
		return nil, fmt.Errorf("llmclient: no production Client registered for provider %q — "+
			"supply a concrete Client built against your LLM platform's transport before starting a real run", provider)
	}
}
