package store

import (
	"context"
	"fmt"

	"github.com/doctranslate/doctranslate/pkg/models"
)

// CreateDocument implements Store. Idempotent on (projectID, filePath) per
// spec.md §3's "created once per input file; idempotently reused across
// resumes" invariant.
func (s *PostgresStore) CreateDocument(ctx context.Context, d models.Document) (models.Document, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO source_docs (id, project_id, file_path, atom_count, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id, file_path) DO UPDATE SET file_path = EXCLUDED.file_path
		RETURNING id, atom_count, status`,
		d.ID, d.ProjectID, d.FilePath, d.AtomCount, orDefault(string(d.Status), string(models.DocumentPending)),
	)
	if err := row.Scan(&d.ID, &d.AtomCount, &d.Status); err != nil {
		return models.Document{}, fmt.Errorf("upsert document: %w", err)
	}
	return d, nil
}

// GetDocumentsByProject implements Store.
func (s *PostgresStore) GetDocumentsByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, file_path, atom_count, status
		FROM source_docs WHERE project_id = $1 ORDER BY file_path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.FilePath, &d.AtomCount, &d.Status); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SetDocumentStatus implements Store.
func (s *PostgresStore) SetDocumentStatus(ctx context.Context, documentID string, status models.DocumentStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE source_docs SET status = $1 WHERE id = $2`, status, documentID)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
