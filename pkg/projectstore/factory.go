package projectstore

import "fmt"

// NewFromProvider resolves a Store by provider name. File-format
// parsing/writing is a deliberate external-collaborator boundary
// (spec.md §1), so "mock" — a fixed in-memory fixture, useful for local
// smoke tests — is the only provider this build can satisfy. Anything else
// fails fast rather than pretending to read real project files.
func NewFromProvider(provider string, mock *Mock) (Store, error) {
	switch provider {
	case "mock":
		if mock == nil {
			return nil, fmt.Errorf("projectstore: provider %q requires a configured Mock fixture", provider)
		}
		return mock, nil
	default:
		return nil, fmt.Errorf("projectstore: no production Store registered for provider %q — "+
			"supply a concrete Store that reads/writes your project file format before starting a real run", provider)
	}
}
