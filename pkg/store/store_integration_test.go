package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/test/storetest"
)

func newProject(t *testing.T) models.Project {
	t.Helper()
	return models.Project{
		ID:             uuid.New().String(),
		SourceLanguage: "en",
		TargetLanguage: "fr",
		WorkflowConfig: map[string]any{"round_limit": 3.0},
		Extra:          map[string]any{"dbWorkId": "1"},
	}
}

func TestStore_ProjectRoundTrip(t *testing.T) {
	s := storetest.NewTestStore(t)
	ctx := context.Background()

	p := newProject(t)
	created, err := s.CreateProject(ctx, p)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "en", got.SourceLanguage)
	assert.Equal(t, "fr", got.TargetLanguage)
	assert.Equal(t, "1", got.Extra["dbWorkId"])

	err = s.UpdateProjectExtra(ctx, p.ID, map[string]any{"dbWorkId": "1", "dbDocMap": map[string]any{"1": "doc-a"}})
	require.NoError(t, err)

	got, err = s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc-a", got.Extra["dbDocMap"].(map[string]any)["1"])
}

func TestStore_DocumentIdempotentCreate(t *testing.T) {
	s := storetest.NewTestStore(t)
	ctx := context.Background()

	p := newProject(t)
	_, err := s.CreateProject(ctx, p)
	require.NoError(t, err)

	d1, err := s.CreateDocument(ctx, models.Document{ID: uuid.New().String(), ProjectID: p.ID, FilePath: "a.txt"})
	require.NoError(t, err)

	d2, err := s.CreateDocument(ctx, models.Document{ID: uuid.New().String(), ProjectID: p.ID, FilePath: "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, d1.ID, d2.ID, "second create for the same path must be idempotent")

	err = s.SetDocumentStatus(ctx, d1.ID, models.DocumentProcessed)
	require.NoError(t, err)

	docs, err := s.GetDocumentsByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentProcessed, docs[0].Status)
}

func TestStore_AtomsBatchPreservesPositionOrder(t *testing.T) {
	s := storetest.NewTestStore(t)
	ctx := context.Background()

	p := newProject(t)
	_, err := s.CreateProject(ctx, p)
	require.NoError(t, err)
	doc, err := s.CreateDocument(ctx, models.Document{ID: uuid.New().String(), ProjectID: p.ID, FilePath: "b.txt"})
	require.NoError(t, err)

	atoms := make([]models.Atom, 5)
	for i := range atoms {
		atoms[i] = models.Atom{ID: uuid.New().String(), Position: i, SourceText: "line"}
	}

	created, err := s.CreateAtomsBatch(ctx, doc.ID, atoms)
	require.NoError(t, err)
	require.Len(t, created, 5)
	for i, a := range created {
		assert.Equal(t, i, a.Position)
		assert.Equal(t, atoms[i].ID, a.ID)
	}

	fetched, err := s.GetAtomsByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 5)
	for i, a := range fetched {
		assert.Equal(t, i, a.Position)
	}
}

// TestStore_ActiveTraceInvariant exercises spec.md §3's Trace invariant:
// at most one active trace per atom, activating actions swap atomically.
func TestStore_ActiveTraceInvariant(t *testing.T) {
	s := storetest.NewTestStore(t)
	ctx := context.Background()

	p := newProject(t)
	_, err := s.CreateProject(ctx, p)
	require.NoError(t, err)
	doc, err := s.CreateDocument(ctx, models.Document{ID: uuid.New().String(), ProjectID: p.ID, FilePath: "c.txt"})
	require.NoError(t, err)
	atoms, err := s.CreateAtomsBatch(ctx, doc.ID, []models.Atom{{ID: uuid.New().String(), Position: 0, SourceText: "hello"}})
	require.NoError(t, err)
	atomID := atoms[0].ID

	draft, err := s.AppendTrace(ctx, models.Trace{ID: uuid.New().String(), AtomID: atomID, AgentRole: models.RoleTranslator, ActionType: models.ActionDraft, Content: "bonjour"})
	require.NoError(t, err)
	assert.True(t, draft.IsActive)

	evalTrace, err := s.AppendTrace(ctx, models.Trace{ID: uuid.New().String(), AtomID: atomID, AgentRole: models.RoleQualityAssessor, ActionType: models.ActionEvaluate, Content: "looks fine"})
	require.NoError(t, err)
	assert.False(t, evalTrace.IsActive, "evaluate traces never activate")

	active, ok, err := s.GetActiveTrace(ctx, atomID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, draft.ID, active.ID)

	refine, err := s.AppendTrace(ctx, models.Trace{ID: uuid.New().String(), AtomID: atomID, AgentRole: models.RoleTranslator, ActionType: models.ActionRefine, Content: "bonjour le monde"})
	require.NoError(t, err)
	assert.True(t, refine.IsActive)

	active, ok, err = s.GetActiveTrace(ctx, atomID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, refine.ID, active.ID, "refine must supersede draft as the sole active trace")

	history, err := s.GetTraceHistory(ctx, atomID)
	require.NoError(t, err)
	require.Len(t, history, 3)
}

func TestStore_TermUpsertAndSearch(t *testing.T) {
	s := storetest.NewTestStore(t)
	ctx := context.Background()

	p := newProject(t)
	_, err := s.CreateProject(ctx, p)
	require.NoError(t, err)

	term := models.Term{
		ProjectID: p.ID,
		EntryKey:  "kubernetes",
		EntryVal:  "kubernetes",
		WordType:  models.WordTypeTerm,
		Domain:    "infra",
		Variants:  []string{"k8s"},
	}
	require.NoError(t, s.UpsertTerm(ctx, term))

	got, ok, err := s.GetTerm(ctx, p.ID, "kubernetes")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "infra", got.Domain)

	// Second GetTerm call should be served from cache but return identical data.
	cached, ok, err := s.GetTerm(ctx, p.ID, "kubernetes")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got, cached)

	results, err := s.SearchTerms(ctx, p.ID, "kubernetes", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "kubernetes", results[0].EntryKey)

	require.NoError(t, s.ConfirmTerm(ctx, p.ID, "kubernetes"))
	got, _, err = s.GetTerm(ctx, p.ID, "kubernetes")
	require.NoError(t, err)
	assert.True(t, got.HumanConfirmed)
}

func TestStore_KnowledgeVectorSearch(t *testing.T) {
	s := storetest.NewTestStore(t)
	ctx := context.Background()

	p := newProject(t)
	_, err := s.CreateProject(ctx, p)
	require.NoError(t, err)

	vecA := make([]float32, 768)
	vecA[0] = 1
	vecB := make([]float32, 768)
	vecB[1] = 1

	require.NoError(t, s.UpsertKnowledgeEntry(ctx, models.KnowledgeEntry{ID: uuid.New().String(), ProjectID: p.ID, Content: "glossary entry A", KBType: models.KBTypeGlossary, Vector: vecA}))
	require.NoError(t, s.UpsertKnowledgeEntry(ctx, models.KnowledgeEntry{ID: uuid.New().String(), ProjectID: p.ID, Content: "glossary entry B", KBType: models.KBTypeGlossary, Vector: vecB}))

	results, err := s.SearchKnowledge(ctx, p.ID, vecA, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "glossary entry A", results[0].Content)
}
