package projectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_LoadProject_NotFound(t *testing.T) {
	m := &Mock{}
	_, err := m.LoadProject(context.Background(), "missing.xlsx")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMock_LoadProject_Found(t *testing.T) {
	want := Project{ID: "proj-1", SourceLang: "en", TargetLang: "fr"}
	m := &Mock{Projects: map[string]Project{"doc.xlsx": want}}

	got, err := m.LoadProject(context.Background(), "doc.xlsx")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMock_SaveProject_RecordsCall(t *testing.T) {
	m := &Mock{}
	p := Project{ID: "proj-1"}
	cfg := OutputConfig{OutputFilenameSuffix: "_fr"}

	err := m.SaveProject(context.Background(), p, "out.xlsx", "in.xlsx", cfg)
	require.NoError(t, err)

	calls := m.SaveCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "proj-1", calls[0].Project.ID)
	assert.Equal(t, "out.xlsx", calls[0].OutputPath)
	assert.Equal(t, "in.xlsx", calls[0].InputPath)
	assert.Equal(t, "_fr", calls[0].Config.OutputFilenameSuffix)
}
