package translation

import (
	"context"
	"sort"

	"github.com/doctranslate/doctranslate/pkg/consistency"
	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/review"
)

// runHumanReview implements Stage A (spec.md §4.8): gather every record
// scoring below the review threshold, or — if none do — the three
// lowest-scored records (test-mode fallback), hand them to the review
// coordinator, and apply whatever decisions come back.
func (a *Agent) runHumanReview(ctx context.Context, records []*lineRecord) {
	if !a.cfg.EnableHumanReview || a.cfg.Review == nil {
		return
	}

	candidates := reviewCandidates(records, a.cfg.ReviewThreshold)
	if len(candidates) == 0 {
		return
	}

	byIndex := make(map[int]*lineRecord, len(candidates))
	items := make([]review.ReviewItem, len(candidates))
	for i, r := range candidates {
		byIndex[r.GlobalIndex] = r
		items[i] = review.ReviewItem{
			GlobalIndex:     r.GlobalIndex,
			SourceText:      r.SourceText,
			TranslatedText:  r.Chosen,
			BackTranslation: r.BackTranslation,
			Score:           r.Score,
			ContextBefore:   r.ContextBefore,
			ContextAfter:    r.ContextAfter,
		}
	}

	decisions, err := a.cfg.Review.RequestDecision(ctx, review.Task{Items: items})
	if err != nil || decisions == nil {
		return
	}

	for _, d := range decisions {
		r, ok := byIndex[d.GlobalIndex]
		if !ok {
			continue
		}
		switch d.Kind {
		case review.DecisionAccept:
			r.ReviewApplied = true
			r.ReviewTrace = models.ActionHumanEdit
		case review.DecisionCustom:
			r.Chosen = d.CustomText
			r.ReviewApplied = true
			r.ReviewTrace = models.ActionHumanEdit
		case review.DecisionRetranslate:
			r.Chosen = a.translateSingleLine(ctx, r.SourceText)
			r.ReviewApplied = true
			r.ReviewTrace = models.ActionRefine
		}
		if r.ReviewApplied {
			// Checkpoint statusCode at 3 (HumanReviewed) the moment the
			// human step lands, even for a bare accept — advanced to 4
			// only at Stage C commit, after Stage B has had its chance.
			score := r.Score
			_ = a.cfg.Store.UpdateAtomTranslation(ctx, r.Atom.ID, r.Chosen, models.AtomHumanReviewed, &score, "")
		}
	}
}

// reviewCandidates picks every record below threshold, or the three
// lowest-scored records if none qualify.
func reviewCandidates(records []*lineRecord, threshold float64) []*lineRecord {
	var below []*lineRecord
	for _, r := range records {
		if r.Score < threshold {
			below = append(below, r)
		}
	}
	if len(below) > 0 {
		return below
	}

	sorted := append([]*lineRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })
	n := 3
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// runConsistency implements Stage B: enforce terminology consistency across
// every record's final translation.
func (a *Agent) runConsistency(records []*lineRecord, terms []models.Term) {
	if len(records) == 0 {
		return
	}

	lines := make([]consistency.Line, len(records))
	for i, r := range records {
		lines[i] = consistency.Line{GlobalIndex: r.GlobalIndex, SourceText: r.SourceText, Translated: r.Chosen}
	}

	results := consistency.Enforce(lines, terms)
	byIndex := make(map[int]*lineRecord, len(records))
	for _, r := range records {
		byIndex[r.GlobalIndex] = r
	}
	for _, res := range results {
		r, ok := byIndex[res.GlobalIndex]
		if !ok || !res.Changed {
			continue
		}
		r.ConsistencyBefore = res.Original
		r.Chosen = res.Fixed
		r.ConsistencyFixed = true
	}
}

// commit implements Stage C: for every record, write the trace chain
// (draft, evaluate, human_edit/refine if applicable, final if applicable)
// then finalize the atom's stored translation.
func (a *Agent) commit(ctx context.Context, records []*lineRecord) (int, error) {
	finalized := 0
	for _, r := range records {
		if err := a.commitOne(ctx, r); err != nil {
			continue
		}
		finalized++
	}
	return finalized, nil
}

func (a *Agent) commitOne(ctx context.Context, r *lineRecord) error {
	atomID := r.Atom.ID

	if _, err := a.cfg.Store.AppendTrace(ctx, models.Trace{
		AtomID:     atomID,
		AgentRole:  models.RoleTranslator,
		ActionType: models.ActionDraft,
		Content:    r.Draft,
	}); err != nil {
		return err
	}

	if _, err := a.cfg.Store.AppendTrace(ctx, models.Trace{
		AtomID:     atomID,
		AgentRole:  models.RoleQualityAssessor,
		ActionType: models.ActionEvaluate,
		Content:    r.BackTranslation,
		QualityReport: &models.QualityReport{
			Score:           r.Score,
			BackTranslation: r.BackTranslation,
		},
	}); err != nil {
		return err
	}

	if r.Step2Refined {
		if _, err := a.cfg.Store.AppendTrace(ctx, models.Trace{
			AtomID:     atomID,
			AgentRole:  models.RoleTranslator,
			ActionType: models.ActionRefine,
			Content:    r.Step2RefinedText,
		}); err != nil {
			return err
		}
	}

	if r.ReviewApplied {
		role := models.RoleHuman
		if r.ReviewTrace == models.ActionRefine {
			role = models.RoleTranslator
		}
		if _, err := a.cfg.Store.AppendTrace(ctx, models.Trace{
			AtomID:     atomID,
			AgentRole:  role,
			ActionType: r.ReviewTrace,
			Content:    r.Chosen,
		}); err != nil {
			return err
		}
	}

	if r.ConsistencyFixed {
		if _, err := a.cfg.Store.AppendTrace(ctx, models.Trace{
			AtomID:     atomID,
			AgentRole:  models.RoleConsistencyChecker,
			ActionType: models.ActionFinal,
			Content:    r.Chosen,
			Metadata:   map[string]any{"before": r.ConsistencyBefore},
		}); err != nil {
			return err
		}
	}

	score := r.Score
	return a.cfg.Store.UpdateAtomTranslation(ctx, atomID, r.Chosen, models.AtomFinalized, &score, buildSummary(r.SourceText, r.Chosen))
}

// summarySnippetLen bounds each side of the bilingual gist buildSummary
// produces, keeping processing_atoms.summary a glance-able digest rather
// than a second copy of the full text.
const summarySnippetLen = 80

// buildSummary renders the short bilingual digest persisted on the atom at
// commit, so a later chunk's context window can carry a condensed memory
// of earlier segments instead of their full source/translated text.
func buildSummary(source, translated string) string {
	return truncateRunes(source, summarySnippetLen) + " / " + truncateRunes(translated, summarySnippetLen)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
