package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/planner"
	"github.com/doctranslate/doctranslate/pkg/projectstore"
)

// resumeState is read back from the loaded project's Extra map before the
// first stage runs (spec.md §4.10's re-entry support).
type resumeState struct {
	workID string
	docIDs map[string]string // file path -> document id
}

// extractResumeState reads dbWorkId/dbDocMap out of extra, tolerating a nil
// map or mismatched value types (treated as "no resume state").
func extractResumeState(extra map[string]any) resumeState {
	rs := resumeState{docIDs: map[string]string{}}
	if extra == nil {
		return rs
	}
	if v, ok := extra["dbWorkId"].(string); ok {
		rs.workID = v
	}
	if raw, ok := extra["dbDocMap"].(map[string]any); ok {
		for path, v := range raw {
			if id, ok := v.(string); ok {
				rs.docIDs[path] = id
			}
		}
	}
	return rs
}

func coalesce(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveProject loads the resumed project by id, or creates a fresh one and
// immediately persists its own id into Extra so the next run can resume
// (spec.md §4.10, §6 resumability contract).
func (m *Manager) resolveProject(ctx context.Context, src projectstore.Project, resume resumeState) (models.Project, error) {
	if resume.workID != "" {
		p, err := m.cfg.Store.GetProject(ctx, resume.workID)
		if err == nil {
			return p, nil
		}
		slog.Warn("resume project id not found, starting a new project", "id", resume.workID, "error", err)
	}

	p, err := m.cfg.Store.CreateProject(ctx, models.Project{
		SourceLanguage: coalesce(src.SourceLang, m.cfg.Workflow.SourceLanguage),
		TargetLanguage: coalesce(src.TargetLang, m.cfg.Workflow.TargetLanguage),
		Extra:          map[string]any{},
	})
	if err != nil {
		return models.Project{}, err
	}
	if err := m.cfg.Store.UpdateProjectExtra(ctx, p.ID, map[string]any{"dbWorkId": p.ID}); err != nil {
		slog.Warn("failed to persist resume id", "project_id", p.ID, "error", err)
	}
	return p, nil
}

// docChunkSet is one document's planned translation chunks, with atoms
// already carrying their persisted ids.
type docChunkSet struct {
	documentID string
	filePath   string
	chunks     []models.Chunk
}

// preprocessFiles creates (or resumes) one Document and its Atoms per input
// file, then runs the Planner over every document's pending atoms. It
// returns the per-document chunk sets plus the total atom and pending-atom
// counts across the whole project.
// preprocessFiles also returns the largest ExecutionPlan.MaxWorkers the
// Planner assigned across this project's documents (spec.md §4.6/§5:
// 5/10/15 workers by complexity tier) — the caller sizes the translation
// stage's worker pool off this value rather than a fixed constant, taking
// the max so a project with one complex document isn't throttled down to a
// simpler sibling document's tier.
func (m *Manager) preprocessFiles(ctx context.Context, dbProject models.Project, src projectstore.Project, resume resumeState, pc planner.Config) ([]docChunkSet, int, int, planner.StyleGuide, int, error) {
	var (
		docChunks    []docChunkSet
		totalAtoms   int
		totalPending int
		style        planner.StyleGuide
		styleSet     bool
		maxWorkers   int
	)

	for _, file := range src.Files {
		if m.cfg.Runtime.Cancelled() {
			break
		}

		docID, atoms, err := m.resolveDocument(ctx, dbProject.ID, file, resume)
		if err != nil {
			return nil, 0, 0, style, 0, err
		}
		totalAtoms += len(atoms)

		var pending []models.Atom
		for _, a := range atoms {
			if a.StatusCode != models.AtomFinalized {
				pending = append(pending, a)
			}
		}
		totalPending += len(pending)
		if len(pending) == 0 {
			continue
		}

		items := make([]models.Item, len(pending))
		for i, a := range pending {
			items[i] = models.Item{SourceText: a.SourceText}
		}

		plan := planner.Plan(items, pc)
		if !styleSet {
			style = plan.Style
			styleSet = true
		}
		if plan.Exec.MaxWorkers > maxWorkers {
			maxWorkers = plan.Exec.MaxWorkers
		}
		for ci := range plan.Chunks {
			plan.Chunks[ci].FilePath = file.Path
			for ai := range plan.Chunks[ci].Atoms {
				pos := plan.Chunks[ci].Atoms[ai].Position
				plan.Chunks[ci].Atoms[ai].ID = pending[pos].ID
				plan.Chunks[ci].Atoms[ai].DocumentID = pending[pos].DocumentID
				plan.Chunks[ci].Atoms[ai].Position = pending[pos].Position
			}
		}

		docChunks = append(docChunks, docChunkSet{documentID: docID, filePath: file.Path, chunks: plan.Chunks})
	}

	return docChunks, totalAtoms, totalPending, style, maxWorkers, nil
}

// resolveDocument gets-or-creates the Document for file and its Atoms,
// reusing a resumed document's existing atoms untouched (position order is
// the store's contract) rather than re-inserting.
func (m *Manager) resolveDocument(ctx context.Context, projectID string, file projectstore.File, resume resumeState) (string, []models.Atom, error) {
	docID := resume.docIDs[file.Path]

	if docID == "" {
		doc, err := m.cfg.Store.CreateDocument(ctx, models.Document{ProjectID: projectID, FilePath: file.Path, AtomCount: len(file.Items)})
		if err != nil {
			return "", nil, err
		}
		docID = doc.ID
	}

	existing, err := m.cfg.Store.GetAtomsByDocument(ctx, docID)
	if err != nil {
		return "", nil, err
	}
	if len(existing) > 0 {
		return docID, existing, nil
	}

	atoms := make([]models.Atom, len(file.Items))
	for i, it := range file.Items {
		status := models.AtomUntranslated
		if it.TranslationStatus == "translated" {
			status = models.AtomFinalized
		}
		atoms[i] = models.Atom{
			Position:       i,
			SourceText:     it.SourceText,
			ContentHash:    contentHash(it.SourceText),
			TranslatedText: it.TranslatedText,
			StatusCode:     status,
		}
	}

	created, err := m.cfg.Store.CreateAtomsBatch(ctx, docID, atoms)
	if err != nil {
		return "", nil, err
	}
	return docID, created, nil
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
