package workflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/projectstore"
)

// failedMarker is the prefix translation.failedPlaceholder writes when even
// single-line fallback fails. Duplicated here (not imported) since
// pkg/translation's helper is unexported and this is a read-only scan.
const failedMarker = "[FAILED]"

// runEntityCheck re-reads every document's atoms and counts how many never
// received a real translation (still carrying the fallback marker, or left
// untranslated because the run was cancelled mid-document). It is a
// best-effort visibility pass, not a fatal-error source — spec.md §7 treats
// a per-line "[FAILED]" placeholder as a handled transient failure, not an
// error that aborts the pipeline.
func (m *Manager) runEntityCheck(ctx context.Context, dbProject models.Project) int {
	docs, err := m.cfg.Store.GetDocumentsByProject(ctx, dbProject.ID)
	if err != nil {
		slog.Warn("entity_check: failed to list documents", "project_id", dbProject.ID, "error", err)
		return 0
	}

	var flagged int
	for _, doc := range docs {
		atoms, err := m.cfg.Store.GetAtomsByDocument(ctx, doc.ID)
		if err != nil {
			slog.Warn("entity_check: failed to list atoms", "document_id", doc.ID, "error", err)
			continue
		}
		for _, a := range atoms {
			if a.StatusCode != models.AtomFinalized || strings.HasPrefix(a.TranslatedText, failedMarker) {
				flagged++
			}
		}
	}
	return flagged
}

// saveProject re-reads the finalized atoms for every file and writes the
// translated text back into the ProjectStore's item shape before delegating
// to SaveProject (spec.md §6's ProjectStore contract).
func (m *Manager) saveProject(ctx context.Context, dbProject models.Project, src projectstore.Project, outputPath, inputPath string) error {
	docs, err := m.cfg.Store.GetDocumentsByProject(ctx, dbProject.ID)
	if err != nil {
		return err
	}
	docByPath := make(map[string]models.Document, len(docs))
	for _, d := range docs {
		docByPath[d.FilePath] = d
	}

	out := src
	out.Files = make([]projectstore.File, len(src.Files))
	for fi, file := range src.Files {
		out.Files[fi] = projectstore.File{Path: file.Path, Items: append([]projectstore.Item(nil), file.Items...)}

		doc, ok := docByPath[file.Path]
		if !ok {
			continue
		}
		atoms, err := m.cfg.Store.GetAtomsByDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		for _, a := range atoms {
			if a.Position < 0 || a.Position >= len(out.Files[fi].Items) {
				continue
			}
			out.Files[fi].Items[a.Position].TranslatedText = a.TranslatedText
			if a.StatusCode == models.AtomFinalized {
				out.Files[fi].Items[a.Position].TranslationStatus = "translated"
			}
		}
	}

	return m.cfg.ProjectStore.SaveProject(ctx, out, outputPath, inputPath, projectstore.OutputConfig{
		OutputFilenameSuffix: m.cfg.Workflow.OutputFilenameSuffix,
		BilingualTextOrder:   m.cfg.Workflow.BilingualTextOrder,
	})
}
