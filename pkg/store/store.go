// Package store is the Store contract (spec.md §4.5, §6): event-sourced
// persistence of projects, documents, atoms, traces, terms, and knowledge
// entries over PostgreSQL. The engine never issues SQL directly; every
// mutation and query goes through this interface.
package store

import (
	"context"

	"github.com/doctranslate/doctranslate/pkg/models"
)

// Store is the full persistence contract used by the workflow engine.
type Store interface {
	// CreateProject inserts p and returns the stored row (CreatedAt filled in).
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
	// GetProject loads a project by id for resume.
	GetProject(ctx context.Context, id string) (models.Project, error)
	// UpdateProjectExtra merges extra into the project's Extra map and persists it.
	UpdateProjectExtra(ctx context.Context, id string, extra map[string]any) error

	// CreateDocument idempotently creates or returns the existing document for
	// (projectID, filePath).
	CreateDocument(ctx context.Context, d models.Document) (models.Document, error)
	// GetDocumentsByProject returns every document belonging to projectID.
	GetDocumentsByProject(ctx context.Context, projectID string) ([]models.Document, error)
	// SetDocumentStatus updates a document's processing status.
	SetDocumentStatus(ctx context.Context, documentID string, status models.DocumentStatus) error

	// CreateAtomsBatch inserts atoms for documentID in position order and
	// returns them with ids populated, in the same order as input — ids come
	// directly from the INSERT...RETURNING result set, ordered by position,
	// never from a follow-up SELECT (resolved Open Question, spec.md §9).
	CreateAtomsBatch(ctx context.Context, documentID string, atoms []models.Atom) ([]models.Atom, error)
	// GetAtomsByDocument returns every atom of documentID ordered by position.
	GetAtomsByDocument(ctx context.Context, documentID string) ([]models.Atom, error)
	// GetAtom loads a single atom by id.
	GetAtom(ctx context.Context, atomID string) (models.Atom, error)
	// UpdateAtomTranslation sets translatedText/statusCode/qualityScore/summary
	// on an atom — called after a new active trace has been committed.
	UpdateAtomTranslation(ctx context.Context, atomID string, translatedText string, status models.AtomStatus, score *float64, summary string) error

	// AppendTrace inserts a new trace for an atom. If trace.ActionType is an
	// activating action (models.ActivatingActions), the previous active
	// trace for the same atom is deactivated in the same transaction before
	// the new one is inserted and marked active — the single-active-trace
	// invariant (spec.md §3) is enforced transactionally, never via a
	// read-then-write race.
	AppendTrace(ctx context.Context, trace models.Trace) (models.Trace, error)
	// GetActiveTrace returns the currently active trace for an atom, if any.
	GetActiveTrace(ctx context.Context, atomID string) (models.Trace, bool, error)
	// GetTraceHistory returns every trace for an atom in creation order.
	GetTraceHistory(ctx context.Context, atomID string) ([]models.Trace, error)

	// UpsertTerm inserts or updates a term keyed by (projectID, entryKey).
	UpsertTerm(ctx context.Context, term models.Term) error
	// GetTerm loads one term by key.
	GetTerm(ctx context.Context, projectID, entryKey string) (models.Term, bool, error)
	// SearchTerms runs the multi-match search described in spec.md §6 over
	// entry_key/entry_val/variants, optionally filtered by domain.
	SearchTerms(ctx context.Context, projectID, query string, domainTag string, limit int) ([]models.Term, error)
	// ConfirmTerm marks a term human-confirmed, called from ReviewCoordinator.
	ConfirmTerm(ctx context.Context, projectID, entryKey string) error

	// UpsertKnowledgeEntry inserts or replaces a knowledge base row.
	UpsertKnowledgeEntry(ctx context.Context, entry models.KnowledgeEntry) error
	// SearchKnowledge returns the k nearest knowledge entries to queryVector
	// within projectID, by cosine similarity.
	SearchKnowledge(ctx context.Context, projectID string, queryVector []float32, k int) ([]models.KnowledgeEntry, error)

	// Close releases the underlying connection pool.
	Close()
}
