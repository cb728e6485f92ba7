// Package terminology implements TerminologyAgent (spec.md §4.7): optional
// NER extraction, parallel LLM term identification, verification/enrichment
// via numbered textarea batches, and persistence into the terminology
// store.
package terminology

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/doctranslate/doctranslate/pkg/chunker"
	"github.com/doctranslate/doctranslate/pkg/llmclient"
	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/ner"
	"github.com/doctranslate/doctranslate/pkg/ratelimiter"
	"github.com/doctranslate/doctranslate/pkg/stats"
	"github.com/doctranslate/doctranslate/pkg/store"
	"github.com/doctranslate/doctranslate/pkg/textarea"
)

// DefaultWorkers is the worker-pool size for identification and
// verification, independent of translation's own pool (spec.md §4.7).
const DefaultWorkers = 5

// Config configures one Agent.
type Config struct {
	LLM     llmclient.Client
	Store   store.Store
	Limiter *ratelimiter.RateLimiter
	Stats   *stats.Tracker
	NER     ner.Provider // optional; nil disables NER extraction

	Workers       int
	SourceLang    string
	Platform      llmclient.PlatformConfig
	IdentifyBudget   int // default chunker.DefaultTerminologyCharBudget
	VerifyCharBudget int // default chunker.DefaultVerificationCharBudget
}

// Agent runs the terminology pipeline for one project run.
type Agent struct {
	cfg Config
}

// New creates an Agent.
func New(cfg Config) *Agent {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.IdentifyBudget <= 0 {
		cfg.IdentifyBudget = chunker.DefaultTerminologyCharBudget
	}
	if cfg.VerifyCharBudget <= 0 {
		cfg.VerifyCharBudget = chunker.DefaultVerificationCharBudget
	}
	return &Agent{cfg: cfg}
}

// identifiedTerm is the term shape the LLM returns during identification.
type identifiedTerm struct {
	Term       string
	Category   string // domain_term | cultural_expression
	Context    string
	Meaning    string
	Strategy   string
}

// Run executes the full pipeline: reuse check, NER, parallel identification,
// verification, persistence. alreadyIdentified lets the caller short-circuit
// on resume when the project's extra map already marks terminology done
// (spec.md §4.7 point 1's idempotent-resume contract).
func (a *Agent) Run(ctx context.Context, projectID string, items []models.Item, alreadyIdentified bool) ([]models.Term, error) {
	log := slog.With("project_id", projectID)

	if alreadyIdentified {
		log.Info("terminology already identified, reusing")
		return nil, nil
	}

	var entityTerms []identifiedTerm
	if a.cfg.NER != nil {
		entityTerms = a.extractEntities(ctx, items)
	}

	llmTerms := a.identifyTerms(ctx, items)
	all := dedupeTerms(append(entityTerms, llmTerms...))

	verified := a.verifyTerms(ctx, projectID, all)

	for _, t := range verified {
		if err := a.cfg.Store.UpsertTerm(ctx, t); err != nil {
			log.Warn("failed to persist term", "entry_key", t.EntryKey, "error", err)
		}
	}

	return verified, nil
}

func (a *Agent) extractEntities(ctx context.Context, items []models.Item) []identifiedTerm {
	nerItems := make([]ner.Item, len(items))
	for i, it := range items {
		nerItems[i] = ner.Item{SourceText: it.SourceText}
	}

	entityTypes := []string{"PERSON", "ORG", "GPE", "LOC", "PRODUCT", "EVENT", "WORK_OF_ART"}
	entities, err := a.cfg.NER.Extract(ctx, nerItems, a.cfg.SourceLang, entityTypes)
	if err != nil {
		slog.Warn("NER extraction failed, continuing without it", "error", err)
		return nil
	}

	out := make([]identifiedTerm, len(entities))
	for i, e := range entities {
		out[i] = identifiedTerm{Term: e.Text, Category: "named_entity", Context: e.EntityType}
	}
	return out
}

// identifyTerms chunks all items (byte budget from cfg.IdentifyBudget) and
// processes chunks in parallel up to cfg.Workers.
func (a *Agent) identifyTerms(ctx context.Context, items []models.Item) []identifiedTerm {
	texts := make([]chunker.TextItem, len(items))
	for i, it := range items {
		texts[i] = chunker.TextItem(it.SourceText)
	}
	chunks, err := chunker.Pack(texts, chunker.Config{CharBudget: a.cfg.IdentifyBudget})
	if err != nil || len(chunks) == 0 {
		return nil
	}

	var mu sync.Mutex
	var results []identifiedTerm

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	for _, c := range chunks {
		c := c
		g.Go(func() error {
			terms := a.identifyChunk(gctx, c, texts)
			mu.Lock()
			results = append(results, terms...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // a failed sub-chunk contributes zero terms; never aborts the run

	return results
}

func (a *Agent) identifyChunk(ctx context.Context, c chunker.Chunk, texts []chunker.TextItem) []identifiedTerm {
	var b strings.Builder
	for _, idx := range c.Indices {
		b.WriteString(string(texts[idx]))
		b.WriteString("\n")
	}

	estTokens := len(b.String()) / 4
	if _, err := a.cfg.Limiter.Acquire(ctx, estTokens, func() bool { return ctx.Err() != nil }); err != nil {
		return nil
	}

	a.cfg.Stats.BeginLLMCall()
	resp, err := a.cfg.LLM.Send(ctx, []llmclient.Message{{Role: llmclient.RoleUser, Content: b.String()}}, identifyPrompt, a.cfg.Platform)
	a.cfg.Stats.EndLLMCall()
	if err != nil || resp.Skipped {
		return nil
	}
	a.cfg.Stats.AddTokens(resp.PromptTokens, resp.CompletionTokens)

	return parseIdentifiedTerms(resp.Content)
}

const identifyPrompt = `You identify domain terms and cultural expressions in the given text.
Return a JSON array of objects: {"term","category" (domain_term|cultural_expression),"context","meaning","translation_strategy"}.
Return only the JSON array, nothing else.`

// parseIdentifiedTerms defensively locates the first '{'/'[' through the
// last '}'/']' before parsing, per spec.md §4.7 point 3.
func parseIdentifiedTerms(raw string) []identifiedTerm {
	start := strings.IndexAny(raw, "[{")
	end := strings.LastIndexAny(raw, "]}")
	if start < 0 || end < 0 || end < start {
		return nil
	}
	body := raw[start : end+1]

	parsed := gjson.Parse(body)
	if !parsed.IsArray() {
		return nil
	}

	var out []identifiedTerm
	parsed.ForEach(func(_, value gjson.Result) bool {
		out = append(out, identifiedTerm{
			Term:     value.Get("term").String(),
			Category: value.Get("category").String(),
			Context:  value.Get("context").String(),
			Meaning:  value.Get("meaning").String(),
			Strategy: value.Get("translation_strategy").String(),
		})
		return true
	})
	return out
}

// dedupeTerms de-duplicates by lowercased term text (spec.md §4.7 point 3).
func dedupeTerms(terms []identifiedTerm) []identifiedTerm {
	return lo.UniqBy(terms, func(t identifiedTerm) string {
		return strings.ToLower(strings.TrimSpace(t.Term))
	})
}

// normalizeWordType applies spec.md §4.7 point 5's mapping.
func normalizeWordType(category string) models.WordType {
	switch category {
	case "named_entity":
		return models.WordTypeEntity
	case "terminology":
		return models.WordTypeTerm
	case "cultural_expression":
		return models.WordTypeIdiom
	case "domain_term":
		return models.WordTypeTerm
	default:
		return models.WordTypeTerm
	}
}

// verifyTerms batches term strings (character budget from
// cfg.VerifyCharBudget) and asks the model, in numbered textarea format, to
// translate each (spec.md §4.7 point 4).
func (a *Agent) verifyTerms(ctx context.Context, projectID string, terms []identifiedTerm) []models.Term {
	if len(terms) == 0 {
		return nil
	}

	texts := make([]chunker.TextItem, len(terms))
	for i, t := range terms {
		texts[i] = chunker.TextItem(t.Term)
	}
	chunks, err := chunker.Pack(texts, chunker.Config{CharBudget: a.cfg.VerifyCharBudget})
	if err != nil {
		return nil
	}

	out := make([]models.Term, len(terms))
	for i, t := range terms {
		out[i] = models.Term{
			ProjectID: projectID,
			EntryKey:  t.Term,
			EntryVal:  t.Term,
			WordType:  normalizeWordType(t.Category),
			Domain:    t.Context,
		}
	}

	for _, c := range chunks {
		a.verifyChunk(ctx, c, terms, out)
	}
	return out
}

// verificationContextCap is spec.md §9's resolved-but-unevaluated constant:
// term-verification prompt context stays truncated to 200 chars per term.
const verificationContextCap = 200

func (a *Agent) verifyChunk(ctx context.Context, c chunker.Chunk, terms []identifiedTerm, out []models.Term) {
	subset := make([]string, len(c.Indices))
	for i, idx := range c.Indices {
		t := terms[idx]
		subset[i] = t.Term
		if ctxSample := truncate(t.Context, verificationContextCap); ctxSample != "" {
			subset[i] = fmt.Sprintf("%s (%s)", t.Term, ctxSample)
		}
	}

	prompt := fmt.Sprintf("%s\n\n%s", verifyPrompt, textarea.Render(subset))

	estTokens := len(prompt) / 4
	if _, err := a.cfg.Limiter.Acquire(ctx, estTokens, func() bool { return ctx.Err() != nil }); err != nil {
		return
	}

	a.cfg.Stats.BeginLLMCall()
	resp, err := a.cfg.LLM.Send(ctx, []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}}, "", a.cfg.Platform)
	a.cfg.Stats.EndLLMCall()
	if err != nil || resp.Skipped {
		return
	}
	a.cfg.Stats.AddTokens(resp.PromptTokens, resp.CompletionTokens)

	translations := textarea.Extract(resp.Content)
	for localIdx, idx := range c.Indices {
		translated, ok := translations[localIdx]
		if !ok {
			continue
		}
		out[idx].Candidates = append(out[idx].Candidates, models.TranslationCandidate{
			Text:       translated,
			Source:     "llm_verification",
			Confidence: 0.8,
		})
		out[idx].Confidence = 0.8
	}
}

const verifyPrompt = `Translate each numbered term below. Reply with a numbered <textarea> block with exactly one translation per line, in the same order.`

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
