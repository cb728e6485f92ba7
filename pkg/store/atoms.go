package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/doctranslate/doctranslate/pkg/models"
)

// CreateAtomsBatch implements Store. Resolved Open Question (spec.md §9):
// ids are read directly off the INSERT...RETURNING result set ordered by
// position, never by re-querying a tail afterward.
func (s *PostgresStore) CreateAtomsBatch(ctx context.Context, documentID string, atoms []models.Atom) ([]models.Atom, error) {
	if len(atoms) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, a := range atoms {
		contextInfo, err := marshalMap(a.ContextInfo)
		if err != nil {
			return nil, fmt.Errorf("marshal context_info: %w", err)
		}
		batch.Queue(`
			INSERT INTO processing_atoms
				(id, document_id, position, source_text, content_hash,
				 translated_text, status_code, context_info, summary)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			a.ID, documentID, a.Position, a.SourceText, a.ContentHash,
			a.TranslatedText, a.StatusCode, contextInfo, a.Summary,
		)
	}

	br := tx.SendBatch(ctx, batch)
	out := make([]models.Atom, len(atoms))
	for i, a := range atoms {
		a.DocumentID = documentID
		if err := br.QueryRow().Scan(&a.ID); err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("insert atom at position %d: %w", a.Position, err)
		}
		out[i] = a
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("close batch results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit atoms batch: %w", err)
	}
	return out, nil
}

// GetAtomsByDocument implements Store.
func (s *PostgresStore) GetAtomsByDocument(ctx context.Context, documentID string) ([]models.Atom, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, position, source_text, content_hash, translated_text,
		       status_code, quality_score, examination, context_info, summary
		FROM processing_atoms WHERE document_id = $1 ORDER BY position`, documentID)
	if err != nil {
		return nil, fmt.Errorf("select atoms: %w", err)
	}
	defer rows.Close()

	var atoms []models.Atom
	for rows.Next() {
		a, err := scanAtom(rows)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, a)
	}
	return atoms, rows.Err()
}

// GetAtom implements Store.
func (s *PostgresStore) GetAtom(ctx context.Context, atomID string) (models.Atom, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, document_id, position, source_text, content_hash, translated_text,
		       status_code, quality_score, examination, context_info, summary
		FROM processing_atoms WHERE id = $1`, atomID)
	a, err := scanAtom(row)
	if err == pgx.ErrNoRows {
		return models.Atom{}, ErrNotFound
	}
	if err != nil {
		return models.Atom{}, err
	}
	return a, nil
}

// UpdateAtomTranslation implements Store.
func (s *PostgresStore) UpdateAtomTranslation(ctx context.Context, atomID string, translatedText string, status models.AtomStatus, score *float64, summary string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE processing_atoms
		SET translated_text = $1, status_code = $2, quality_score = $3, summary = $4
		WHERE id = $5`, translatedText, status, score, summary, atomID)
	if err != nil {
		return fmt.Errorf("update atom translation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAtom(row rowScanner) (models.Atom, error) {
	var a models.Atom
	var examination, contextInfo []byte
	err := row.Scan(&a.ID, &a.DocumentID, &a.Position, &a.SourceText, &a.ContentHash,
		&a.TranslatedText, &a.StatusCode, &a.QualityScore, &examination, &contextInfo, &a.Summary)
	if err != nil {
		return models.Atom{}, err
	}

	if len(examination) > 0 {
		var ex models.Examination
		if err := json.Unmarshal(examination, &ex); err != nil {
			return models.Atom{}, fmt.Errorf("unmarshal examination: %w", err)
		}
		a.Examination = &ex
	}
	if len(contextInfo) > 0 {
		m, err := unmarshalMap(contextInfo)
		if err != nil {
			return models.Atom{}, fmt.Errorf("unmarshal context_info: %w", err)
		}
		a.ContextInfo = m
	}
	return a, nil
}
