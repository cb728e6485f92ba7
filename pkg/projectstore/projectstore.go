// Package projectstore defines the ProjectStore contract (spec.md §6) — the
// boundary between the engine and whatever parses source files into
// translatable items and writes translated files back. The engine never
// touches a filesystem or document format directly; it only calls this
// interface.
//
// Interface shape grounded on the same interface-with-mock pattern as
// pkg/llmclient (itself grounded on the teacher's pkg/agent/llm_client.go).
package projectstore

import "context"

// Item is one translatable unit as loaded from a source file, before it
// becomes a models.Atom. RowIndex lets SaveProject write translations back
// to the exact row they came from (e.g. a spreadsheet row or a po-file msgid).
type Item struct {
	SourceText        string
	TranslatedText    string
	TranslationStatus string
	TokenCount        int
	RowIndex          int
	Extra             map[string]any
}

// File is one input file's ordered items.
type File struct {
	Path  string
	Items []Item
}

// Project is the loaded unit of work. Files preserves input order; Extra
// carries resumability state (dbWorkId, dbDocMap, dbAtomMap) whose map keys
// round-trip through JSON as strings and must be restored back to integers
// on load, per spec.md §6's resumability contract.
type Project struct {
	ID         string
	SourceLang string
	TargetLang string
	Files      []File
	Extra      map[string]any
}

// OutputConfig controls how SaveProject renders translated files.
type OutputConfig struct {
	OutputFilenameSuffix string
	BilingualTextOrder   string
}

// Store is the ProjectStore contract.
type Store interface {
	// LoadProject reads path and returns a Project with one File per input
	// file, items in source order.
	LoadProject(ctx context.Context, path string) (Project, error)

	// SaveProject writes translated files for project to outputPath, using
	// inputPath to resolve any per-file template that is relative to the
	// original input location.
	SaveProject(ctx context.Context, project Project, outputPath, inputPath string, cfg OutputConfig) error
}
