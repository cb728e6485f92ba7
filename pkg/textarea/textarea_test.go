package textarea

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_Basic(t *testing.T) {
	raw := "<textarea>\n1. Hello world.\n2. Goodbye.\n</textarea>"
	got := Extract(raw)
	assert.Equal(t, map[int]string{0: "Hello world.", 1: "Goodbye."}, got)
}

func TestExtract_MissingLineNotPadded(t *testing.T) {
	raw := "<textarea>\n1. a\n2. b\n</textarea>"
	got := Extract(raw)
	// Only two entries; a caller expecting 3 must itself notice the gap.
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0])
	assert.Equal(t, "b", got[1])
	_, ok := got[2]
	assert.False(t, ok)
}

func TestExtract_RenumberedOutOfOrder(t *testing.T) {
	raw := "2. second\n1. first\n3. third"
	got := Extract(raw)
	assert.Equal(t, "first", got[0])
	assert.Equal(t, "second", got[1])
	assert.Equal(t, "third", got[2])
}

func TestExtract_MarkdownCleaned(t *testing.T) {
	raw := "1. **Bold term**\n2. *italic*\n3. __also bold__\n4. \"quoted\""
	got := Extract(raw)
	assert.Equal(t, "Bold term", got[0])
	assert.Equal(t, "italic", got[1])
	assert.Equal(t, "also bold", got[2])
	assert.Equal(t, "quoted", got[3])
}

func TestExtract_FullWidthDelimiter(t *testing.T) {
	raw := "1、你好\n2、再见"
	got := Extract(raw)
	assert.Equal(t, "你好", got[0])
	assert.Equal(t, "再见", got[1])
}

func TestExtract_Empty(t *testing.T) {
	assert.Empty(t, Extract(""))
	assert.Empty(t, Extract("no numbered lines here"))
}

func TestRoundTrip(t *testing.T) {
	texts := []string{"first line", "second line", "third line with punctuation."}
	rendered := Render(texts)
	got := Extract(rendered)
	for i, want := range texts {
		assert.Equal(t, want, got[i])
	}
}

func TestExtract_DoubleNumberedResidue(t *testing.T) {
	// Model sometimes repeats the number inside the content itself.
	raw := "1. 1. duplicated prefix"
	got := Extract(raw)
	assert.Equal(t, "duplicated prefix", got[0])
}
