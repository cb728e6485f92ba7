package ner

import "fmt"

// NewFromProvider resolves a Provider by name. NERProvider is an optional
// external collaborator (spec.md §1, §6) — an empty provider name returns a
// nil Provider, which WorkflowManager treats as "entity extraction
// disabled", not an error. A non-empty, unrecognized name still fails fast,
// since that almost always means a typo in deployment config rather than a
// deliberate opt-out.
func NewFromProvider(provider string, mock *Mock) (Provider, error) {
	switch provider {
	case "":
		return nil, nil
	case "mock":
		if mock == nil {
			return nil, fmt.Errorf("ner: provider %q requires a configured Mock fixture", provider)
		}
		return mock, nil
	default:
		return nil, fmt.Errorf("ner: no production Provider registered for provider %q — "+
			"supply a concrete Provider backed by your NER model before enabling entity extraction", provider)
	}
}
