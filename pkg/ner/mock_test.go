package ner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_Extract_DefaultEntities(t *testing.T) {
	want := []Entity{{Text: "Acme Corp", EntityType: "ORG", Confidence: 0.9}}
	m := &Mock{Entities: want}

	got, err := m.Extract(context.Background(), []Item{{SourceText: "Acme Corp shipped it."}}, "en-core", nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "en-core", calls[0].ModelName)
}

func TestMock_Extract_Responder(t *testing.T) {
	m := &Mock{
		Responder: func(items []Item, modelName string, entityTypes []string) ([]Entity, error) {
			return []Entity{{Text: items[0].SourceText, EntityType: entityTypes[0]}}, nil
		},
	}

	got, err := m.Extract(context.Background(), []Item{{SourceText: "Tokyo"}}, "ja-core", []string{"GPE"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Tokyo", got[0].Text)
	assert.Equal(t, "GPE", got[0].EntityType)
}
