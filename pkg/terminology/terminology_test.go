package terminology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctranslate/doctranslate/pkg/llmclient"
	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/ner"
	"github.com/doctranslate/doctranslate/pkg/ratelimiter"
	"github.com/doctranslate/doctranslate/pkg/stats"
	"github.com/doctranslate/doctranslate/pkg/store"
)

// fakeStore is a minimal in-memory Store double covering only the methods
// Agent calls, enough to exercise Run end to end without a database.
type fakeStore struct {
	store.Store
	upserted []models.Term
}

func (f *fakeStore) UpsertTerm(_ context.Context, term models.Term) error {
	f.upserted = append(f.upserted, term)
	return nil
}

func TestParseIdentifiedTerms_Basic(t *testing.T) {
	raw := "Here you go:\n" + `[{"term":"Kubernetes","category":"domain_term","context":"infra","meaning":"container orchestrator","translation_strategy":"transliterate"}]` + "\ntrailing noise"
	terms := parseIdentifiedTerms(raw)
	require.Len(t, terms, 1)
	assert.Equal(t, "Kubernetes", terms[0].Term)
	assert.Equal(t, "domain_term", terms[0].Category)
}

func TestParseIdentifiedTerms_Malformed(t *testing.T) {
	assert.Nil(t, parseIdentifiedTerms("no json here at all"))
}

func TestDedupeTerms_CaseInsensitive(t *testing.T) {
	terms := []identifiedTerm{{Term: "Kubernetes"}, {Term: "kubernetes"}, {Term: "Docker"}}
	out := dedupeTerms(terms)
	assert.Len(t, out, 2)
}

func TestNormalizeWordType(t *testing.T) {
	assert.Equal(t, models.WordTypeEntity, normalizeWordType("named_entity"))
	assert.Equal(t, models.WordTypeIdiom, normalizeWordType("cultural_expression"))
	assert.Equal(t, models.WordTypeTerm, normalizeWordType("domain_term"))
	assert.Equal(t, models.WordTypeTerm, normalizeWordType("unknown_category"))
}

func TestAgent_Run_AlreadyIdentified(t *testing.T) {
	fs := &fakeStore{}
	a := New(Config{Store: fs})
	terms, err := a.Run(context.Background(), "proj-1", nil, true)
	require.NoError(t, err)
	assert.Nil(t, terms)
	assert.Empty(t, fs.upserted)
}

func TestAgent_Run_IdentifiesAndPersists(t *testing.T) {
	llm := &llmclient.Mock{
		Responder: func(messages []llmclient.Message, systemPrompt string, cfg llmclient.PlatformConfig) (llmclient.Response, error) {
			if systemPrompt == identifyPrompt {
				return llmclient.Response{Content: `[{"term":"Kubernetes","category":"domain_term","context":"infra","meaning":"orchestrator","translation_strategy":"transliterate"}]`}, nil
			}
			return llmclient.Response{Content: "1. Kubernetes (translated)"}, nil
		},
	}
	fs := &fakeStore{}
	limiter := ratelimiter.New(ratelimiter.Config{})
	a := New(Config{
		LLM:     llm,
		Store:   fs,
		Limiter: limiter,
		Stats:   stats.New(),
	})

	items := []models.Item{{SourceText: "Kubernetes orchestrates containers."}}
	terms, err := a.Run(context.Background(), "proj-1", items, false)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "Kubernetes", terms[0].EntryKey)
	assert.Equal(t, models.WordTypeTerm, terms[0].WordType)
	require.Len(t, fs.upserted, 1)
}

func TestAgent_Run_WithNER(t *testing.T) {
	nerMock := &ner.Mock{
		Entities: []ner.Entity{{Text: "Acme Corp", EntityType: "ORG", Confidence: 0.9}},
	}
	llm := &llmclient.Mock{Responses: []llmclient.Response{{Content: "[]"}, {Content: "1. Acme Corp"}}}
	fs := &fakeStore{}
	limiter := ratelimiter.New(ratelimiter.Config{})
	a := New(Config{
		LLM:     llm,
		Store:   fs,
		Limiter: limiter,
		Stats:   stats.New(),
		NER:     nerMock,
	})

	items := []models.Item{{SourceText: "Acme Corp shipped a new product."}}
	terms, err := a.Run(context.Background(), "proj-1", items, false)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, models.WordTypeEntity, terms[0].WordType)
}
