package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/doctranslate/doctranslate/pkg/models"
)

func termCacheKey(projectID, entryKey string) string {
	return projectID + "\x00" + entryKey
}

// UpsertTerm implements Store.
func (s *PostgresStore) UpsertTerm(ctx context.Context, term models.Term) error {
	variants, err := json.Marshal(orEmptySlice(term.Variants))
	if err != nil {
		return fmt.Errorf("marshal variants: %w", err)
	}
	examples, err := json.Marshal(orEmptySlice(term.ExampleSentences))
	if err != nil {
		return fmt.Errorf("marshal example_sentences: %w", err)
	}
	candidates, err := json.Marshal(orEmptyCandidates(term.Candidates))
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}
	atomRefs, err := json.Marshal(orEmptySlice(term.AtomRefs))
	if err != nil {
		return fmt.Errorf("marshal atom_refs: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO domain_lexicon
			(project_id, entry_key, entry_val, word_type, domain_tag, variants,
			 example_sentences, candidates, atom_refs, confidence, human_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (project_id, entry_key) DO UPDATE SET
			entry_val = EXCLUDED.entry_val,
			word_type = EXCLUDED.word_type,
			domain_tag = EXCLUDED.domain_tag,
			variants = EXCLUDED.variants,
			example_sentences = EXCLUDED.example_sentences,
			candidates = EXCLUDED.candidates,
			atom_refs = EXCLUDED.atom_refs,
			confidence = EXCLUDED.confidence,
			human_confirmed = EXCLUDED.human_confirmed`,
		term.ProjectID, term.EntryKey, term.EntryVal, term.WordType, term.Domain, variants,
		examples, candidates, atomRefs, term.Confidence, term.HumanConfirmed,
	)
	if err != nil {
		return fmt.Errorf("upsert term: %w", err)
	}

	s.termCache.Remove(termCacheKey(term.ProjectID, term.EntryKey))
	return nil
}

// GetTerm implements Store, consulting the bounded LRU cache first.
func (s *PostgresStore) GetTerm(ctx context.Context, projectID, entryKey string) (models.Term, bool, error) {
	key := termCacheKey(projectID, entryKey)
	if cached, ok := s.termCache.Get(key); ok {
		return cached, true, nil
	}

	row := s.pool.QueryRow(ctx, `
		SELECT project_id, entry_key, entry_val, word_type, domain_tag, variants,
		       example_sentences, candidates, atom_refs, confidence, human_confirmed
		FROM domain_lexicon WHERE project_id = $1 AND entry_key = $2`, projectID, entryKey)
	term, err := scanTerm(row)
	if err == pgx.ErrNoRows {
		return models.Term{}, false, nil
	}
	if err != nil {
		return models.Term{}, false, err
	}

	s.termCache.Add(key, term)
	return term, true, nil
}

// SearchTerms implements Store's multi-match search over
// {entry_key^3, entry_val, variants}, optionally filtered by domain_tag
// (spec.md §6).
func (s *PostgresStore) SearchTerms(ctx context.Context, projectID, query string, domainTag string, limit int) ([]models.Term, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT project_id, entry_key, entry_val, word_type, domain_tag, variants,
		       example_sentences, candidates, atom_refs, confidence, human_confirmed,
		       ts_rank(
		           setweight(to_tsvector('simple', entry_key), 'A') ||
		           setweight(to_tsvector('simple', entry_val), 'B') ||
		           setweight(to_tsvector('simple', coalesce(variants::text, '')), 'C'),
		           plainto_tsquery('simple', $2)
		       ) AS rank
		FROM domain_lexicon
		WHERE project_id = $1
		  AND ($3 = '' OR domain_tag = $3)
		  AND (
		       to_tsvector('simple', entry_key || ' ' || entry_val || ' ' || coalesce(variants::text, ''))
		       @@ plainto_tsquery('simple', $2)
		  )
		ORDER BY rank DESC
		LIMIT $4`, projectID, query, domainTag, limit)
	if err != nil {
		return nil, fmt.Errorf("search terms: %w", err)
	}
	defer rows.Close()

	var terms []models.Term
	for rows.Next() {
		var rank float64
		term, err := scanTermWithRank(rows, &rank)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

// ConfirmTerm implements Store.
func (s *PostgresStore) ConfirmTerm(ctx context.Context, projectID, entryKey string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE domain_lexicon SET human_confirmed = true
		WHERE project_id = $1 AND entry_key = $2`, projectID, entryKey)
	if err != nil {
		return fmt.Errorf("confirm term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.termCache.Remove(termCacheKey(projectID, entryKey))
	return nil
}

func scanTerm(row rowScanner) (models.Term, error) {
	return scanTermWithRank(row, nil)
}

func scanTermWithRank(row rowScanner, rank *float64) (models.Term, error) {
	var t models.Term
	var variants, examples, candidates, atomRefs []byte

	dests := []any{
		&t.ProjectID, &t.EntryKey, &t.EntryVal, &t.WordType, &t.Domain, &variants,
		&examples, &candidates, &atomRefs, &t.Confidence, &t.HumanConfirmed,
	}
	if rank != nil {
		dests = append(dests, rank)
	}

	if err := row.Scan(dests...); err != nil {
		return models.Term{}, err
	}

	if err := json.Unmarshal(variants, &t.Variants); err != nil {
		return models.Term{}, fmt.Errorf("unmarshal variants: %w", err)
	}
	if err := json.Unmarshal(examples, &t.ExampleSentences); err != nil {
		return models.Term{}, fmt.Errorf("unmarshal example_sentences: %w", err)
	}
	if err := json.Unmarshal(candidates, &t.Candidates); err != nil {
		return models.Term{}, fmt.Errorf("unmarshal candidates: %w", err)
	}
	if err := json.Unmarshal(atomRefs, &t.AtomRefs); err != nil {
		return models.Term{}, fmt.Errorf("unmarshal atom_refs: %w", err)
	}
	return t, nil
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyCandidates(c []models.TranslationCandidate) []models.TranslationCandidate {
	if c == nil {
		return []models.TranslationCandidate{}
	}
	return c
}
