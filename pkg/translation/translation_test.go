package translation

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctranslate/doctranslate/pkg/llmclient"
	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/ratelimiter"
	"github.com/doctranslate/doctranslate/pkg/review"
	"github.com/doctranslate/doctranslate/pkg/stats"
	"github.com/doctranslate/doctranslate/pkg/store"
)

// fakeStore is a minimal in-memory Store double that records traces and
// atom updates, enough to exercise commit() without a database. Every
// method besides AppendTrace/UpdateAtomTranslation is satisfied by the
// embedded nil store.Store and must never be called by these tests.
type fakeStore struct {
	store.Store

	mu     sync.Mutex
	traces []models.Trace
	active map[string]int // atomID -> index into traces of the active one
	atoms  map[string]models.Atom
}

func newFakeStore() *fakeStore {
	return &fakeStore{active: map[string]int{}, atoms: map[string]models.Atom{}}
}

func (f *fakeStore) AppendTrace(_ context.Context, t models.Trace) (models.Trace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New().String()
	if models.ActivatingActions[t.ActionType] {
		t.IsActive = true
		f.active[t.AtomID] = len(f.traces)
	}
	f.traces = append(f.traces, t)
	return t, nil
}

func (f *fakeStore) UpdateAtomTranslation(_ context.Context, atomID, text string, status models.AtomStatus, score *float64, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.atoms[atomID]
	a.TranslatedText = text
	a.StatusCode = status
	a.Summary = summary
	if score != nil {
		a.QualityScore = score
	}
	f.atoms[atomID] = a
	return nil
}

func (f *fakeStore) tracesFor(atomID string) []models.Trace {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Trace
	for _, t := range f.traces {
		if t.AtomID == atomID {
			out = append(out, t)
		}
	}
	return out
}

func newAgent(llm llmclient.Client, fs *fakeStore, enableReview bool, coord *review.Coordinator) *Agent {
	return New(Config{
		LLM:               llm,
		Store:             fs,
		Limiter:           ratelimiter.New(ratelimiter.Config{}),
		Stats:             stats.New(),
		Review:            coord,
		EnableHumanReview: enableReview,
	})
}

func atomOf(source string) models.Atom {
	return models.Atom{ID: uuid.New().String(), SourceText: source}
}

// TestScenario_BasicNoReview exercises spec.md §8 scenario 1: one item, no
// terms, score 9.0, no human review — atom finalizes with a non-empty
// translation and exactly one active draft trace plus one evaluate trace.
func TestScenario_BasicNoReview(t *testing.T) {
	llm := &llmclient.Mock{
		Responder: func(messages []llmclient.Message, systemPrompt string, cfg llmclient.PlatformConfig) (llmclient.Response, error) {
			switch {
			case systemPrompt == scorePrompt:
				return llmclient.Response{Content: "1. 评分：9.0"}, nil
			case systemPrompt == backTranslatePromptPrefix:
				return llmclient.Response{Content: "<textarea>\n1. Hello world.\n</textarea>"}, nil
			default:
				return llmclient.Response{Content: "<textarea>\n1. Bonjour le monde.\n</textarea>"}, nil
			}
		},
	}
	fs := newFakeStore()
	a := newAgent(llm, fs, false, nil)

	atom := atomOf("Hello world.")
	fs.atoms[atom.ID] = atom
	chunk := models.Chunk{Atoms: []models.Atom{atom}, Strategy: models.StrategyFree}

	n, err := a.Run(context.Background(), []models.Chunk{chunk}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	traces := fs.tracesFor(atom.ID)
	require.Len(t, traces, 2)
	assert.Equal(t, models.ActionDraft, traces[0].ActionType)
	assert.True(t, traces[0].IsActive)
	assert.Equal(t, models.ActionEvaluate, traces[1].ActionType)
	assert.False(t, traces[1].IsActive)

	stored := fs.atoms[atom.ID]
	assert.Equal(t, models.AtomFinalized, stored.StatusCode)
	assert.NotEmpty(t, stored.TranslatedText)
}

// TestScenario_LineCountMismatchFallback exercises spec.md §8 scenario 2:
// a 3-item chunk whose batch reply only carries 2 numbered lines triggers
// full-chunk per-line fallback.
func TestScenario_LineCountMismatchFallback(t *testing.T) {
	var singleLineCalls int
	var mu sync.Mutex
	llm := &llmclient.Mock{
		Responder: func(messages []llmclient.Message, systemPrompt string, cfg llmclient.PlatformConfig) (llmclient.Response, error) {
			switch systemPrompt {
			case singleLinePrompt:
				mu.Lock()
				singleLineCalls++
				call := singleLineCalls
				mu.Unlock()
				responses := []string{"a", "b", "fallback-three"}
				return llmclient.Response{Content: responses[call-1]}, nil
			case scorePrompt:
				return llmclient.Response{Content: "1. 评分：8.0\n2. 评分：8.0\n3. 评分：8.0"}, nil
			case backTranslatePromptPrefix:
				return llmclient.Response{Content: "<textarea>\n1. x\n2. y\n3. z\n</textarea>"}, nil
			default:
				// Step 1 batch call: deliberately short by one line.
				return llmclient.Response{Content: "<textarea>\n1. a\n2. b\n</textarea>"}, nil
			}
		},
	}
	fs := newFakeStore()
	a := newAgent(llm, fs, false, nil)

	atoms := []models.Atom{atomOf("one"), atomOf("two"), atomOf("three")}
	for _, at := range atoms {
		fs.atoms[at.ID] = at
	}
	chunk := models.Chunk{Atoms: atoms, Strategy: models.StrategyFree}

	n, err := a.Run(context.Background(), []models.Chunk{chunk}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, singleLineCalls, "full-chunk fallback must issue one single-line call per item")

	assert.Equal(t, "a", fs.atoms[atoms[0].ID].TranslatedText)
	assert.Equal(t, "b", fs.atoms[atoms[1].ID].TranslatedText)
	assert.Equal(t, "fallback-three", fs.atoms[atoms[2].ID].TranslatedText)
}

// TestScenario_RefineTraceAndDraftSnapshot exercises spec.md §4.8 Step 2's
// batch refine: a line scoring below 7.0 gets refined, which must produce
// its own "refine" trace distinct from the "draft" trace — and the "draft"
// trace must still show the original Step 1 output even though Chosen has
// since been overwritten by refine.
func TestScenario_RefineTraceAndDraftSnapshot(t *testing.T) {
	llm := &llmclient.Mock{
		Responder: func(messages []llmclient.Message, systemPrompt string, cfg llmclient.PlatformConfig) (llmclient.Response, error) {
			switch systemPrompt {
			case scorePrompt:
				return llmclient.Response{Content: "1. 评分：5.0"}, nil
			case backTranslatePromptPrefix:
				return llmclient.Response{Content: "<textarea>\n1. Hello world.\n</textarea>"}, nil
			case refinePrompt:
				return llmclient.Response{Content: "<textarea>\n1. Bonjour le monde (refined).\n</textarea>"}, nil
			default:
				return llmclient.Response{Content: "<textarea>\n1. Bonjour le monde.\n</textarea>"}, nil
			}
		},
	}
	fs := newFakeStore()
	a := newAgent(llm, fs, false, nil)

	atom := atomOf("Hello world.")
	fs.atoms[atom.ID] = atom
	chunk := models.Chunk{Atoms: []models.Atom{atom}, Strategy: models.StrategyFree}

	n, err := a.Run(context.Background(), []models.Chunk{chunk}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	traces := fs.tracesFor(atom.ID)
	require.Len(t, traces, 3)
	assert.Equal(t, models.ActionDraft, traces[0].ActionType)
	assert.Equal(t, "Bonjour le monde.", traces[0].Content, "draft trace must show the Step 1 output, not the later-refined text")
	assert.Equal(t, models.ActionEvaluate, traces[1].ActionType)
	assert.Equal(t, models.ActionRefine, traces[2].ActionType)
	assert.Equal(t, "Bonjour le monde (refined).", traces[2].Content)
	assert.True(t, traces[2].IsActive)

	assert.Equal(t, "Bonjour le monde (refined).", fs.atoms[atom.ID].TranslatedText)
}

func TestRunHumanReview_AcceptDecision(t *testing.T) {
	coord := review.New()
	coord.Listen()
	go func() {
		task := <-coord.Tasks()
		decisions := make([]review.Decision, len(task.Items))
		for i, item := range task.Items {
			decisions[i] = review.Decision{GlobalIndex: item.GlobalIndex, Kind: review.DecisionAccept}
		}
		_ = coord.Respond(context.Background(), decisions)
	}()

	a := newAgent(nil, newFakeStore(), true, coord)
	records := []*lineRecord{{GlobalIndex: 0, Score: 5.0, Chosen: "draft text"}}
	a.runHumanReview(context.Background(), records)

	assert.True(t, records[0].ReviewApplied)
	assert.Equal(t, models.ActionHumanEdit, records[0].ReviewTrace)
	assert.Equal(t, "draft text", records[0].Chosen)
}

func TestRunHumanReview_CustomDecision(t *testing.T) {
	coord := review.New()
	coord.Listen()
	go func() {
		task := <-coord.Tasks()
		decisions := make([]review.Decision, len(task.Items))
		for i, item := range task.Items {
			decisions[i] = review.Decision{GlobalIndex: item.GlobalIndex, Kind: review.DecisionCustom, CustomText: "human text"}
		}
		_ = coord.Respond(context.Background(), decisions)
	}()

	a := newAgent(nil, newFakeStore(), true, coord)
	records := []*lineRecord{{GlobalIndex: 0, Score: 5.0, Chosen: "draft text"}}
	a.runHumanReview(context.Background(), records)

	assert.Equal(t, "human text", records[0].Chosen)
	assert.Equal(t, models.ActionHumanEdit, records[0].ReviewTrace)
}

func TestRunHumanReview_NoLowScoresPicksThreeLowest(t *testing.T) {
	coord := review.New()
	coord.Listen()
	go func() {
		task := <-coord.Tasks()
		assert.Len(t, task.Items, 3)
		decisions := make([]review.Decision, len(task.Items))
		for i, item := range task.Items {
			decisions[i] = review.Decision{GlobalIndex: item.GlobalIndex, Kind: review.DecisionAccept}
		}
		_ = coord.Respond(context.Background(), decisions)
	}()

	a := newAgent(nil, newFakeStore(), true, coord)
	records := []*lineRecord{
		{GlobalIndex: 0, Score: 9.0, Chosen: "a"},
		{GlobalIndex: 1, Score: 8.5, Chosen: "b"},
		{GlobalIndex: 2, Score: 8.0, Chosen: "c"},
		{GlobalIndex: 3, Score: 9.5, Chosen: "d"},
	}
	a.runHumanReview(context.Background(), records)
}

func TestRunConsistency_FixesLeakedTerm(t *testing.T) {
	a := newAgent(nil, newFakeStore(), false, nil)
	records := []*lineRecord{
		{GlobalIndex: 0, SourceText: "Kubernetes schedules pods.", Chosen: "Kubernetes planifie des pods."},
	}
	terms := []models.Term{{EntryKey: "Kubernetes", EntryVal: "Kubernetes (k8s)", HumanConfirmed: true}}

	a.runConsistency(records, terms)
	assert.True(t, records[0].ConsistencyFixed)
	assert.Contains(t, records[0].Chosen, "Kubernetes (k8s)")
}

func TestParseScores_ClampsOutOfRange(t *testing.T) {
	scores := parseScores("1. 评分：9.2\n2. 评分：15.0", 2)
	assert.Equal(t, 9.2, scores[0])
	assert.Equal(t, 15.0, scores[1]) // clamping to default happens in backTranslateAndScore, not here
}

func TestStripRefineResidue(t *testing.T) {
	assert.Equal(t, "corrected text", stripRefineResidue("原文: foo 回译: bar 修正后译文: corrected text"))
}

func TestIsProblemLine(t *testing.T) {
	assert.True(t, isProblemLine("short", ""))
	longSource := "this is a very long source sentence that easily exceeds one hundred characters in total length for the test"
	assert.True(t, isProblemLine(longSource, "short"))
	assert.False(t, isProblemLine("short", "a reasonable translation"))
}

func TestFilterTerms_OnlyMatchingKeys(t *testing.T) {
	terms := []models.Term{{EntryKey: "Kubernetes"}, {EntryKey: "Docker"}}
	out := filterTerms(terms, "We use Kubernetes extensively.")
	require.Len(t, out, 1)
	assert.Equal(t, "Kubernetes", out[0].EntryKey)
}

func TestLooksLikeReference(t *testing.T) {
	assert.True(t, looksLikeReference("Smith, J. et al. (2020)."))
	assert.True(t, looksLikeReference("doi:10.1000/xyz"))
	assert.False(t, looksLikeReference("This is a plain sentence."))
}
