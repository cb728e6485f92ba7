package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/doctranslate/doctranslate/pkg/models"
)

// CreateProject implements Store.
func (s *PostgresStore) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	workflowConfig, err := marshalMap(p.WorkflowConfig)
	if err != nil {
		return models.Project{}, fmt.Errorf("marshal workflow_config: %w", err)
	}
	templates := p.PromptTemplates
	if templates == nil {
		templates = map[string]string{}
	}
	promptTemplates, err := json.Marshal(templates)
	if err != nil {
		return models.Project{}, fmt.Errorf("marshal prompt_templates: %w", err)
	}
	extra, err := marshalMap(p.Extra)
	if err != nil {
		return models.Project{}, fmt.Errorf("marshal extra: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO project_works
			(id, source_language, target_language, workflow_config, topic_domain,
			 topic_style, translation_guide, prompt_templates, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		p.ID, p.SourceLanguage, p.TargetLanguage, workflowConfig, p.TopicDomain,
		p.TopicStyle, p.TranslationGuide, promptTemplates, extra,
	)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// GetProject implements Store.
func (s *PostgresStore) GetProject(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	var workflowConfig, promptTemplates, extra []byte
	p.ID = id

	row := s.pool.QueryRow(ctx, `
		SELECT source_language, target_language, workflow_config, topic_domain,
		       topic_style, translation_guide, prompt_templates, extra, created_at
		FROM project_works WHERE id = $1`, id)
	err := row.Scan(&p.SourceLanguage, &p.TargetLanguage, &workflowConfig, &p.TopicDomain,
		&p.TopicStyle, &p.TranslationGuide, &promptTemplates, &extra, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return models.Project{}, ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("select project: %w", err)
	}

	if p.WorkflowConfig, err = unmarshalMap(workflowConfig); err != nil {
		return models.Project{}, fmt.Errorf("unmarshal workflow_config: %w", err)
	}
	if p.Extra, err = unmarshalMap(extra); err != nil {
		return models.Project{}, fmt.Errorf("unmarshal extra: %w", err)
	}
	var templates map[string]string
	if err := json.Unmarshal(promptTemplates, &templates); err != nil {
		return models.Project{}, fmt.Errorf("unmarshal prompt_templates: %w", err)
	}
	p.PromptTemplates = templates
	return p, nil
}

// UpdateProjectExtra implements Store. Extra is resumability state
// (dbWorkId/dbDocMap/dbAtomMap per spec.md §6); the given keys are merged
// into the stored map at the top level, leaving other keys in place. Map keys
// round-trip through JSON as strings and the caller is responsible for
// restoring them back to integers on load.
func (s *PostgresStore) UpdateProjectExtra(ctx context.Context, id string, extra map[string]any) error {
	data, err := marshalMap(extra)
	if err != nil {
		return fmt.Errorf("marshal extra: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE project_works SET extra = extra || $1::jsonb WHERE id = $2`, data, id)
	if err != nil {
		return fmt.Errorf("update project extra: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}

func unmarshalMap(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
