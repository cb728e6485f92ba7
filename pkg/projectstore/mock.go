package projectstore

import (
	"context"
	"sync"
)

// Mock is an in-memory test double for Store, grounded on the same scripted
// mock pattern used by pkg/llmclient.Mock.
type Mock struct {
	mu sync.Mutex

	// Projects is keyed by the path passed to LoadProject.
	Projects map[string]Project

	// Saved records every SaveProject call for test assertions.
	Saved []SaveCall
}

// SaveCall records one SaveProject invocation.
type SaveCall struct {
	Project    Project
	OutputPath string
	InputPath  string
	Config     OutputConfig
}

// LoadProject implements Store.
func (m *Mock) LoadProject(_ context.Context, path string) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Projects == nil {
		return Project{}, ErrNotFound
	}
	p, ok := m.Projects[path]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

// SaveProject implements Store.
func (m *Mock) SaveProject(_ context.Context, project Project, outputPath, inputPath string, cfg OutputConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, SaveCall{Project: project, OutputPath: outputPath, InputPath: inputPath, Config: cfg})
	return nil
}

// SaveCalls returns a copy of recorded SaveProject calls.
func (m *Mock) SaveCalls() []SaveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SaveCall, len(m.Saved))
	copy(out, m.Saved)
	return out
}
