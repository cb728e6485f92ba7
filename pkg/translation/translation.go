// Package translation implements TranslationAgent (spec.md §4.8), the
// densest subsystem: a three-step in-chunk pipeline (strategy batch
// translate → back-translate/score/refine → per-chunk result), followed by
// cross-batch stages (human review, consistency enforcement, commit) run
// once every chunk has finished its in-chunk pipeline.
package translation

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/doctranslate/doctranslate/pkg/llmclient"
	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/ratelimiter"
	"github.com/doctranslate/doctranslate/pkg/review"
	"github.com/doctranslate/doctranslate/pkg/runtime"
	"github.com/doctranslate/doctranslate/pkg/stats"
	"github.com/doctranslate/doctranslate/pkg/store"
	"github.com/doctranslate/doctranslate/pkg/telemetry"
)

// DefaultReviewThreshold is the default minimum score (0-10 scale) below
// which a line is offered for human review.
const DefaultReviewThreshold = 7.0

// StyleContext carries the memory/domain/style hints the prompt builder
// injects into every chunk's system prompt (spec.md §4.8 Step 1).
type StyleContext struct {
	TopicDomain      string
	TopicStyle       string
	TranslationGuide string
	OverallStyle     string
	Tone             string
}

// Config configures one Agent for a project run.
type Config struct {
	LLM      llmclient.Client
	Store    store.Store
	Limiter  *ratelimiter.RateLimiter
	Stats    *stats.Tracker
	Review   *review.Coordinator
	Runtime  *runtime.Runtime
	Platform llmclient.PlatformConfig

	Workers           int
	EnableHumanReview bool
	ReviewThreshold   float64
	Style             StyleContext
}

// Agent runs the translation pipeline for a project's chunks.
type Agent struct {
	cfg Config
}

// New creates an Agent, filling in defaults.
func New(cfg Config) *Agent {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = DefaultReviewThreshold
	}
	return &Agent{cfg: cfg}
}

// lineRecord is one atom's working state as it moves through the pipeline.
// Nothing here is persisted until commit (spec.md §4.8 Step 3: "do not yet
// commit to store or cache").
type lineRecord struct {
	Atom        models.Atom
	GlobalIndex int
	FilePath    string

	SourceText      string
	ContextBefore   string
	ContextAfter    string
	Chosen          string // current best translation, mutated as stages run
	Draft           string // Chosen snapshotted right after Step 1, never touched again
	BackTranslation string
	Score           float64
	NeedsRefine     bool
	FellBackPerLine bool

	Step2Refined     bool
	Step2RefinedText string // Chosen right after Step 2's batch refine, if it changed anything

	ReviewApplied     bool
	ReviewTrace       models.ActionType // ActionHumanEdit or ActionRefine
	ConsistencyFixed  bool
	ConsistencyBefore string
}

// Run processes every chunk concurrently (bounded by cfg.Workers), then
// runs the cross-batch stages over the combined result set, then commits.
// It returns the number of atoms successfully finalized.
func (a *Agent) Run(ctx context.Context, chunks []models.Chunk, terms []models.Term) (int, error) {
	records := a.runChunks(ctx, chunks, terms)
	if len(records) == 0 {
		return 0, nil
	}

	a.runHumanReview(ctx, records)
	a.runConsistency(records, terms)
	return a.commit(ctx, records)
}

// runChunks executes Step 1 and Step 2 for every chunk in parallel, bounded
// by cfg.Workers, and flattens the results preserving chunk order but not
// necessarily completion order — global indices keep the final ordering
// stable regardless of goroutine scheduling.
func (a *Agent) runChunks(ctx context.Context, chunks []models.Chunk, terms []models.Term) []*lineRecord {
	var mu sync.Mutex
	byGlobalIndex := map[int]*lineRecord{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	globalIdx := 0
	for _, c := range chunks {
		c := c
		base := globalIdx
		globalIdx += len(c.Atoms)

		g.Go(func() error {
			if a.cfg.Runtime != nil && a.cfg.Runtime.Cancelled() {
				return nil
			}
			recs := a.runChunk(gctx, c, terms, base)
			mu.Lock()
			for _, r := range recs {
				byGlobalIndex[r.GlobalIndex] = r
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*lineRecord, 0, len(byGlobalIndex))
	for i := 0; i < globalIdx; i++ {
		if r, ok := byGlobalIndex[i]; ok {
			out = append(out, r)
		}
	}
	return out
}

// runChunk runs the full in-chunk pipeline (Step 1 → Step 2) for one chunk.
func (a *Agent) runChunk(ctx context.Context, c models.Chunk, terms []models.Term, globalBase int) []*lineRecord {
	var documentID string
	if len(c.Atoms) > 0 {
		documentID = c.Atoms[0].DocumentID
	}
	ctx, endSpan := telemetry.StartChunkSpan(ctx, documentID, c.Index, len(c.Atoms))
	defer endSpan(nil)

	records := make([]*lineRecord, len(c.Atoms))
	for i, atom := range c.Atoms {
		var ctxAfter string
		if i+1 < len(c.Atoms) {
			ctxAfter = c.Atoms[i+1].SourceText
		}
		records[i] = &lineRecord{
			Atom:          atom,
			GlobalIndex:   globalBase + i,
			FilePath:      c.FilePath,
			SourceText:    atom.SourceText,
			ContextBefore: contextBeforeText(c.ContextBefore),
			ContextAfter:  ctxAfter,
		}
	}

	a.translateChunk(ctx, c, terms, records)
	for _, r := range records {
		r.Draft = r.Chosen
	}
	a.backTranslateAndScore(ctx, terms, records)
	a.refineNeeded(ctx, records)
	return records
}

func contextBeforeText(atoms []models.Atom) string {
	var out string
	for i, a := range atoms {
		if i > 0 {
			out += "\n"
		}
		out += a.SourceText
	}
	return out
}
