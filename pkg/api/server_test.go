package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctranslate/doctranslate/pkg/config"
	"github.com/doctranslate/doctranslate/pkg/llmclient"
	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/projectstore"
	"github.com/doctranslate/doctranslate/pkg/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore is a minimal in-memory Store double, grounded on the same
// pattern used by pkg/workflow's test double — only the methods the stage
// graph actually calls are implemented.
type fakeStore struct {
	store.Store

	mu        sync.Mutex
	projects  map[string]models.Project
	documents map[string]models.Document
	atoms     map[string][]models.Atom
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:  map[string]models.Project{},
		documents: map[string]models.Document{},
		atoms:     map[string][]models.Atom{},
	}
}

func (f *fakeStore) CreateProject(_ context.Context, p models.Project) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = uuid.New().String()
	if p.Extra == nil {
		p.Extra = map[string]any{}
	}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetProject(_ context.Context, id string) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return models.Project{}, assert.AnError
	}
	return p, nil
}

func (f *fakeStore) UpdateProjectExtra(_ context.Context, id string, extra map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.projects[id]
	if p.Extra == nil {
		p.Extra = map[string]any{}
	}
	for k, v := range extra {
		p.Extra[k] = v
	}
	f.projects[id] = p
	return nil
}

func (f *fakeStore) CreateDocument(_ context.Context, d models.Document) (models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = uuid.New().String()
	f.documents[d.ID] = d
	return d, nil
}

func (f *fakeStore) GetDocumentsByProject(_ context.Context, projectID string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Document
	for _, d := range f.documents {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateAtomsBatch(_ context.Context, documentID string, atoms []models.Atom) ([]models.Atom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Atom, len(atoms))
	for i, a := range atoms {
		a.ID = uuid.New().String()
		a.DocumentID = documentID
		out[i] = a
	}
	f.atoms[documentID] = out
	return append([]models.Atom(nil), out...), nil
}

func (f *fakeStore) GetAtomsByDocument(_ context.Context, documentID string) ([]models.Atom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Atom(nil), f.atoms[documentID]...), nil
}

func (f *fakeStore) UpdateAtomTranslation(_ context.Context, atomID, text string, status models.AtomStatus, score *float64, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for doc, atoms := range f.atoms {
		for i, a := range atoms {
			if a.ID == atomID {
				a.TranslatedText = text
				a.StatusCode = status
				a.Summary = summary
				f.atoms[doc][i] = a
				return nil
			}
		}
	}
	return assert.AnError
}

func (f *fakeStore) AppendTrace(_ context.Context, t models.Trace) (models.Trace, error) {
	t.ID = uuid.New().String()
	return t, nil
}

func (f *fakeStore) UpsertTerm(_ context.Context, term models.Term) error { return nil }

func (f *fakeStore) Close() {}

func translateResponder(messages []llmclient.Message, systemPrompt string, cfg llmclient.PlatformConfig) (llmclient.Response, error) {
	return llmclient.Response{Content: "<textarea>\n1. 评分：9.5\n</textarea>"}, nil
}

func testServer() (*Server, *projectstore.Mock) {
	ps := &projectstore.Mock{
		Projects: map[string]projectstore.Project{
			"in.json": {
				SourceLang: "en",
				TargetLang: "zh",
				Files: []projectstore.File{
					{Path: "doc1.txt", Items: []projectstore.Item{{SourceText: "Hello world."}}},
				},
			},
		},
	}
	llm := &llmclient.Mock{Responder: translateResponder}
	s := NewServer(newFakeStore(), ps, llm, nil, llmclient.PlatformConfig{}, config.Config{
		SourceLanguage:  "en",
		TargetLanguage:  "zh",
		ReviewThreshold: 0.7,
	})
	return s, ps
}

func TestHealthz(t *testing.T) {
	s, _ := testServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestProgressHandler_UnknownProject(t *testing.T) {
	s, _ := testServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects/missing/progress", nil)
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunHandler_StartsAndCompletes(t *testing.T) {
	s, ps := testServer()

	body, err := json.Marshal(runRequest{OutputPath: "out.json"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects/in.json/run", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Wait (up to 2s) for the run to leave the "running" status before
	// reading its progress.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r, ok := s.getRun("in.json")
		require.True(t, ok)
		r.mu.Lock()
		status := r.status
		r.mu.Unlock()
		if status != "running" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/projects/in.json/progress", nil)
	s.engine.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)

	var progress map[string]any
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &progress))
	assert.Contains(t, []any{"completed", "failed"}, progress["status"])

	assert.Len(t, ps.SaveCalls(), 1)
}

func TestCancelHandler_UnknownProject(t *testing.T) {
	s, _ := testServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects/missing/cancel", nil)
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
