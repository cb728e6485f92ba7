package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/doctranslate/doctranslate/pkg/models"
)

// AppendTrace implements Store. When trace.ActionType is an activating
// action, the previous active trace for the atom is deactivated and the new
// one inserted active in the same transaction, enforced further by the
// partial unique index agent_traces_one_active_per_atom — the single
// source of truth is the database, not a read-then-write race in Go.
func (s *PostgresStore) AppendTrace(ctx context.Context, trace models.Trace) (models.Trace, error) {
	qualityReport, err := marshalQualityReport(trace.QualityReport)
	if err != nil {
		return models.Trace{}, fmt.Errorf("marshal quality_report: %w", err)
	}
	metadata, err := marshalMap(trace.Metadata)
	if err != nil {
		return models.Trace{}, fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Trace{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	activates := models.ActivatingActions[trace.ActionType]
	if activates {
		if _, err := tx.Exec(ctx, `UPDATE agent_traces SET is_active = false WHERE atom_id = $1 AND is_active`, trace.AtomID); err != nil {
			return models.Trace{}, fmt.Errorf("deactivate previous trace: %w", err)
		}
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO agent_traces
			(id, atom_id, agent_role, action_type, content, quality_report,
			 metadata, prompt_tokens, completion_tokens, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		trace.ID, trace.AtomID, trace.AgentRole, trace.ActionType, trace.Content,
		qualityReport, metadata, trace.PromptTokens, trace.CompletionTokens, activates,
	)
	if err := row.Scan(&trace.ID, &trace.CreatedAt); err != nil {
		return models.Trace{}, fmt.Errorf("insert trace: %w", err)
	}
	trace.IsActive = activates

	if err := tx.Commit(ctx); err != nil {
		return models.Trace{}, fmt.Errorf("commit trace: %w", err)
	}
	return trace, nil
}

// GetActiveTrace implements Store.
func (s *PostgresStore) GetActiveTrace(ctx context.Context, atomID string) (models.Trace, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, atom_id, agent_role, action_type, content, quality_report,
		       metadata, prompt_tokens, completion_tokens, is_active, created_at
		FROM agent_traces WHERE atom_id = $1 AND is_active`, atomID)
	t, err := scanTrace(row)
	if err == pgx.ErrNoRows {
		return models.Trace{}, false, nil
	}
	if err != nil {
		return models.Trace{}, false, err
	}
	return t, true, nil
}

// GetTraceHistory implements Store.
func (s *PostgresStore) GetTraceHistory(ctx context.Context, atomID string) ([]models.Trace, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, atom_id, agent_role, action_type, content, quality_report,
		       metadata, prompt_tokens, completion_tokens, is_active, created_at
		FROM agent_traces WHERE atom_id = $1 ORDER BY created_at ASC`, atomID)
	if err != nil {
		return nil, fmt.Errorf("select trace history: %w", err)
	}
	defer rows.Close()

	var traces []models.Trace
	for rows.Next() {
		t, err := scanTrace(rows)
		if err != nil {
			return nil, err
		}
		traces = append(traces, t)
	}
	return traces, rows.Err()
}

func scanTrace(row rowScanner) (models.Trace, error) {
	var t models.Trace
	var qualityReport, metadata []byte
	err := row.Scan(&t.ID, &t.AtomID, &t.AgentRole, &t.ActionType, &t.Content, &qualityReport,
		&metadata, &t.PromptTokens, &t.CompletionTokens, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return models.Trace{}, err
	}

	if len(qualityReport) > 0 {
		var qr models.QualityReport
		if err := json.Unmarshal(qualityReport, &qr); err != nil {
			return models.Trace{}, fmt.Errorf("unmarshal quality_report: %w", err)
		}
		t.QualityReport = &qr
	}
	m, err := unmarshalMap(metadata)
	if err != nil {
		return models.Trace{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	t.Metadata = m
	return t, nil
}

func marshalQualityReport(qr *models.QualityReport) ([]byte, error) {
	if qr == nil {
		return []byte("null"), nil
	}
	return json.Marshal(qr)
}
