// Package chunker packs an ordered sequence of translation items into
// LLM-sized batches under a character budget, isolating oversize items so a
// single outlier never bloats an otherwise small batch.
//
// The same routine backs translation chunking, terminology-identification
// chunking, and term-verification batching — only the budget and the item
// accessor differ.
package chunker

import "fmt"

// Config controls the packing budget.
type Config struct {
	// CharBudget is the maximum combined character length of a chunk's
	// items, except when a single item alone exceeds the budget (it then
	// becomes its own one-item chunk).
	CharBudget int
}

// Default budgets named in the spec for the three call sites that reuse
// this routine.
const (
	DefaultTranslationCharBudget   = 6000
	DefaultTerminologyCharBudget   = 6000
	DefaultVerificationCharBudget  = 3000

	// DefaultContextWindow is the default number of preceding items (K)
	// carried as context for each chunk.
	DefaultContextWindow = 3
)

// Sized is implemented by anything the chunker can pack: it only needs to
// know how many characters an item contributes.
type Sized interface {
	CharLen() int
}

// Chunk is an ordered, contiguous run of input indices packed together.
type Chunk struct {
	// Indices are positions into the original input slice, in order.
	Indices []int
}

// Pack runs the single-pass chunking algorithm described in the spec over
// any slice of Sized items, returning the resulting chunks in input order.
//
// Algorithm:
//  1. Maintain a running chunk and character count.
//  2. An item longer than the budget (extreme-long) flushes the running
//     chunk (if non-empty) and is then emitted alone.
//  3. Otherwise, if adding the item would exceed the budget and the running
//     chunk is non-empty, flush first.
//  4. Append the item to the running chunk.
//  5. Flush the tail at the end.
func Pack[T Sized](items []T, cfg Config) ([]Chunk, error) {
	if cfg.CharBudget <= 0 {
		return nil, fmt.Errorf("chunker: CharBudget must be positive, got %d", cfg.CharBudget)
	}

	var chunks []Chunk
	var current []int
	chars := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, Chunk{Indices: current})
			current = nil
			chars = 0
		}
	}

	for i, item := range items {
		l := item.CharLen()
		if l > cfg.CharBudget {
			flush()
			chunks = append(chunks, Chunk{Indices: []int{i}})
			continue
		}
		if len(current) > 0 && chars+l > cfg.CharBudget {
			flush()
		}
		current = append(current, i)
		chars += l
	}
	flush()

	return chunks, nil
}

// ContextWindow returns, for chunk index ci (into the chunks slice returned
// by Pack), up to k indices into items immediately preceding the chunk's
// first item — the "context window" of preceding atoms.
func ContextWindow(chunks []Chunk, ci int, k int) []int {
	if ci < 0 || ci >= len(chunks) || k <= 0 {
		return nil
	}
	first := chunks[ci].Indices[0]
	start := first - k
	if start < 0 {
		start = 0
	}
	if start >= first {
		return nil
	}
	out := make([]int, 0, first-start)
	for i := start; i < first; i++ {
		out = append(out, i)
	}
	return out
}
