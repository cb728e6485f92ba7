package store

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"

	"github.com/doctranslate/doctranslate/pkg/models"
)

// identityEmbed is required by chromem-go's GetOrCreateCollection signature
// but never invoked: every vector we index is already computed upstream
// (spec.md's Atom.Vector / KnowledgeEntry.Vector), grounded on
// kadirpekel-hector/pkg/vector/chromem.go's own identity-embedding stub.
func identityEmbed(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("embedding function invoked but vectors are pre-computed")
}

func (s *PostgresStore) knowledgeCollection(_ context.Context, projectID string) (*chromem.Collection, error) {
	name := "knowledge_" + projectID
	return s.vectorDB.GetOrCreateCollection(name, nil, identityEmbed)
}

// UpsertKnowledgeEntry implements Store: persists the row relationally and
// keeps the in-memory chromem-go index warm for SearchKnowledge.
func (s *PostgresStore) UpsertKnowledgeEntry(ctx context.Context, entry models.KnowledgeEntry) error {
	tags, err := json.Marshal(orEmptySlice(entry.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	vector := pqFloatArray(entry.Vector)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO knowledge_base (id, project_id, content, kb_type, vector, tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content, kb_type = EXCLUDED.kb_type,
			vector = EXCLUDED.vector, tags = EXCLUDED.tags`,
		entry.ID, entry.ProjectID, entry.Content, entry.KBType, vector, tags,
	)
	if err != nil {
		return fmt.Errorf("upsert knowledge entry: %w", err)
	}

	if len(entry.Vector) == 0 {
		return nil
	}

	col, err := s.knowledgeCollection(ctx, entry.ProjectID)
	if err != nil {
		return fmt.Errorf("get knowledge collection: %w", err)
	}
	doc := chromem.Document{
		ID:        entry.ID,
		Content:   entry.Content,
		Metadata:  map[string]string{"kb_type": string(entry.KBType)},
		Embedding: entry.Vector,
	}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("index knowledge entry: %w", err)
	}
	return nil
}

// SearchKnowledge implements Store via chromem-go cosine similarity search
// over the project's in-memory collection.
func (s *PostgresStore) SearchKnowledge(ctx context.Context, projectID string, queryVector []float32, k int) ([]models.KnowledgeEntry, error) {
	if k <= 0 {
		k = 5
	}
	col, err := s.knowledgeCollection(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get knowledge collection: %w", err)
	}
	if col.Count() == 0 {
		return nil, nil
	}
	if k > col.Count() {
		k = col.Count()
	}

	results, err := col.QueryEmbedding(ctx, queryVector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query knowledge collection: %w", err)
	}

	entries := make([]models.KnowledgeEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, models.KnowledgeEntry{
			ID:        r.ID,
			ProjectID: projectID,
			Content:   r.Content,
			KBType:    models.KBType(r.Metadata["kb_type"]),
		})
	}
	return entries, nil
}

func pqFloatArray(v []float32) []float64 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
