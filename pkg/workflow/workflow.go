// Package workflow implements WorkflowManager (spec.md §4.10): the single
// stage-driving thread that owns the shared run state and walks the stage
// graph strictly in order planning → preprocessing → terminology →
// translating → backtranslation → entity_check → saving → completed,
// publishing a TaskUpdate at every transition.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doctranslate/doctranslate/pkg/config"
	"github.com/doctranslate/doctranslate/pkg/llmclient"
	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/ner"
	"github.com/doctranslate/doctranslate/pkg/planner"
	"github.com/doctranslate/doctranslate/pkg/projectstore"
	"github.com/doctranslate/doctranslate/pkg/ratelimiter"
	"github.com/doctranslate/doctranslate/pkg/review"
	"github.com/doctranslate/doctranslate/pkg/runtime"
	"github.com/doctranslate/doctranslate/pkg/stats"
	"github.com/doctranslate/doctranslate/pkg/store"
	"github.com/doctranslate/doctranslate/pkg/terminology"
	"github.com/doctranslate/doctranslate/pkg/translation"
)

// ErrNoProgress is the fatal error WorkflowManager raises when the
// translating stage completes with zero committed atoms while atoms were
// pending — spec.md §4.10's non-progress guard.
var ErrNoProgress = errors.New("workflow: translation stage made no progress")

// Config wires every dependency the stage graph needs.
type Config struct {
	Store        store.Store
	ProjectStore projectstore.Store
	LLM          llmclient.Client
	NER          ner.Provider // optional
	Runtime      *runtime.Runtime
	Review       *review.Coordinator // optional
	Stats        *stats.Tracker

	Platform llmclient.PlatformConfig
	Workflow config.Config
}

// Manager drives one project's run through the stage graph.
type Manager struct {
	cfg Config
}

// New creates a Manager, filling in defaults for Stats and Runtime so
// callers that only care about the pipeline outcome need not construct
// either by hand.
func New(cfg Config) *Manager {
	if cfg.Stats == nil {
		cfg.Stats = stats.New()
	}
	if cfg.Runtime == nil {
		cfg.Runtime = runtime.New(cfg.Store)
	}
	return &Manager{cfg: cfg}
}

// Result summarizes one completed (or partially completed, on cancellation)
// run.
type Result struct {
	ProjectID        string
	TotalAtoms       int
	FinalizedAtoms   int
	TermsIdentified  int
	RemainingIssues  int
	Cancelled        bool
}

// Run drives the full stage graph for one project: load, plan, persist
// atoms, identify terminology, translate, check entities, save, complete.
func (m *Manager) Run(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	st := m.cfg.Stats

	st.BeginStage(stats.StagePlanning, 0)
	srcProject, err := m.cfg.ProjectStore.LoadProject(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("workflow: loading project: %w", err)
	}

	resume := extractResumeState(srcProject.Extra)

	dbProject, err := m.resolveProject(ctx, srcProject, resume)
	if err != nil {
		return nil, fmt.Errorf("workflow: resolving project: %w", err)
	}

	pc := planner.Config{
		TranslationCharBudget: 0, // zero means planner.chunkStrategies falls back to chunker defaults
		ContextWindow:         m.cfg.Workflow.PreLineCounts,
	}

	if m.cfg.Runtime.Cancelled() {
		return &Result{ProjectID: dbProject.ID, Cancelled: true}, nil
	}

	st.BeginStage(stats.StagePreprocessing, len(srcProject.Files))
	docChunks, totalAtoms, totalPending, style, planMaxWorkers, err := m.preprocessFiles(ctx, dbProject, srcProject, resume, pc)
	if err != nil {
		return nil, fmt.Errorf("workflow: preprocessing: %w", err)
	}
	st.SetTotalLines(totalAtoms)

	if m.cfg.Runtime.Cancelled() {
		return &Result{ProjectID: dbProject.ID, TotalAtoms: totalAtoms, Cancelled: true}, nil
	}

	st.BeginStage(stats.StageTerminology, 0)
	terms, err := m.runTerminology(ctx, dbProject, docChunks)
	if err != nil {
		slog.Warn("terminology stage failed, continuing without terms", "error", err)
		terms = nil
	}

	if m.cfg.Runtime.Cancelled() {
		return &Result{ProjectID: dbProject.ID, TotalAtoms: totalAtoms, Cancelled: true}, nil
	}

	allChunks := flattenChunks(docChunks)

	st.BeginStage(stats.StageTranslating, len(allChunks))
	st.BeginStage(stats.StageBacktranslation, len(allChunks))
	finalized, err := m.runTranslation(ctx, allChunks, terms, dbProject, style, planMaxWorkers)
	if err != nil {
		return nil, fmt.Errorf("workflow: translation stage: %w", err)
	}
	if finalized == 0 && totalPending > 0 && !m.cfg.Runtime.Cancelled() {
		return nil, ErrNoProgress
	}
	st.AddCompletedLines(finalized)

	st.BeginStage(stats.StageEntityCheck, 0)
	remaining := m.runEntityCheck(ctx, dbProject)

	st.BeginStage(stats.StageSaving, 0)
	if err := m.saveProject(ctx, dbProject, srcProject, outputPath, inputPath); err != nil {
		return nil, fmt.Errorf("workflow: saving: %w", err)
	}

	st.BeginStage(stats.StageCompleted, 0)

	return &Result{
		ProjectID:       dbProject.ID,
		TotalAtoms:      totalAtoms,
		FinalizedAtoms:  finalized,
		TermsIdentified: len(terms),
		RemainingIssues: remaining,
	}, nil
}

func (m *Manager) runTerminology(ctx context.Context, dbProject models.Project, docChunks []docChunkSet) ([]models.Term, error) {
	agent := terminology.New(terminology.Config{
		LLM:        m.cfg.LLM,
		Store:      m.cfg.Store,
		Limiter:    m.newLimiter(),
		Stats:      m.cfg.Stats,
		NER:        m.cfg.NER,
		SourceLang: m.cfg.Workflow.SourceLanguage,
		Platform:   m.cfg.Platform,
	})

	var items []models.Item
	for _, dc := range docChunks {
		for _, c := range dc.chunks {
			for _, a := range c.Atoms {
				items = append(items, models.Item{SourceText: a.SourceText})
			}
		}
	}

	alreadyIdentified, _ := dbProject.Extra["termsIdentified"].(bool)
	terms, err := agent.Run(ctx, dbProject.ID, items, alreadyIdentified)
	if err != nil {
		return nil, err
	}
	if err := m.cfg.Store.UpdateProjectExtra(ctx, dbProject.ID, map[string]any{"termsIdentified": true}); err != nil {
		slog.Warn("failed to persist terminology-identified flag", "project_id", dbProject.ID, "error", err)
	}
	return terms, nil
}

func (m *Manager) runTranslation(ctx context.Context, chunks []models.Chunk, terms []models.Term, dbProject models.Project, style planner.StyleGuide, planMaxWorkers int) (int, error) {
	workers := workersFor(planMaxWorkers, len(chunks))

	agent := translation.New(translation.Config{
		LLM:               m.cfg.LLM,
		Store:             m.cfg.Store,
		Limiter:           m.newLimiter(),
		Stats:             m.cfg.Stats,
		Review:            m.cfg.Review,
		Runtime:           m.cfg.Runtime,
		Platform:          m.cfg.Platform,
		Workers:           workers,
		EnableHumanReview: m.cfg.Workflow.EnableHumanReview,
		ReviewThreshold:   m.cfg.Workflow.ReviewThreshold * 10, // config is 0..1, scores are 0..10
		Style: translation.StyleContext{
			TopicDomain:      dbProject.TopicDomain,
			TopicStyle:       dbProject.TopicStyle,
			TranslationGuide: dbProject.TranslationGuide,
			OverallStyle:     style.OverallStyle,
			Tone:             style.Tone,
		},
	})

	return agent.Run(ctx, chunks, terms)
}

// workersFor sizes the translation worker pool off the Planner's
// complexity-tiered ExecutionPlan.MaxWorkers (spec.md §4.6/§5: 5/10/15 by
// complexity), further capped at the number of chunks ("further capped at
// the number of chunks"). A zero planMaxWorkers (no pending documents, or a
// caller that never ran the Planner) falls back to the old fixed default.
func workersFor(planMaxWorkers, numChunks int) int {
	workers := planMaxWorkers
	if workers <= 0 {
		workers = 10
	}
	if numChunks > 0 && numChunks < workers {
		workers = numChunks
	}
	return workers
}

func (m *Manager) newLimiter() *ratelimiter.RateLimiter {
	return ratelimiter.New(ratelimiter.Config{
		RPM: m.cfg.Workflow.RPMLimit,
		TPM: m.cfg.Workflow.TPMLimit,
	})
}

func flattenChunks(docChunks []docChunkSet) []models.Chunk {
	var out []models.Chunk
	for _, dc := range docChunks {
		out = append(out, dc.chunks...)
	}
	return out
}
