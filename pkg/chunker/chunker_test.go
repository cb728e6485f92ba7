package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lens(ls ...int) []AtomLike {
	out := make([]AtomLike, len(ls))
	for i, l := range ls {
		out[i] = AtomLike{SourceText: string(make([]byte, l))}
	}
	return out
}

func TestPack_ExtremeLongIsolation(t *testing.T) {
	items := lens(200, 200, 8000, 200)
	chunks, err := Pack(items, Config{CharBudget: 6000})
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, []int{0, 1}, chunks[0].Indices)
	assert.Equal(t, []int{2}, chunks[1].Indices)
	assert.Equal(t, []int{3}, chunks[2].Indices)
}

func TestPack_BudgetNeverExceededExceptSingleton(t *testing.T) {
	items := lens(3000, 3000, 3000, 100)
	chunks, err := Pack(items, Config{CharBudget: 6000})
	require.NoError(t, err)

	for _, c := range chunks {
		if len(c.Indices) == 1 {
			continue // singleton may exceed budget
		}
		total := 0
		for _, idx := range c.Indices {
			total += items[idx].CharLen()
		}
		assert.LessOrEqual(t, total, 6000)
	}
}

func TestPack_ConcatenationEqualsInput(t *testing.T) {
	items := lens(100, 200, 50, 9000, 300, 300, 300)
	chunks, err := Pack(items, Config{CharBudget: 600})
	require.NoError(t, err)

	var flat []int
	for _, c := range chunks {
		flat = append(flat, c.Indices...)
	}
	want := []int{0, 1, 2, 3, 4, 5, 6}
	assert.Equal(t, want, flat)
}

func TestPack_EmptyInput(t *testing.T) {
	chunks, err := Pack([]AtomLike{}, Config{CharBudget: 6000})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestPack_InvalidBudget(t *testing.T) {
	_, err := Pack(lens(10), Config{CharBudget: 0})
	assert.Error(t, err)
}

func TestContextWindow(t *testing.T) {
	items := lens(10, 10, 10, 10, 10, 10)
	chunks, err := Pack(items, Config{CharBudget: 20})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// Chunk 1 starts at item 2; window of 3 should be [0,1] (only 2 precede).
	w := ContextWindow(chunks, 1, 3)
	assert.Equal(t, []int{0, 1}, w)

	// Chunk 0 starts at item 0; no preceding context.
	w0 := ContextWindow(chunks, 0, 3)
	assert.Empty(t, w0)
}

func TestPack_TextItems(t *testing.T) {
	items := []TextItem{"short", "another short term", "a"}
	chunks, err := Pack(items, Config{CharBudget: 3000})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []int{0, 1, 2}, chunks[0].Indices)
}
