package translation

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/doctranslate/doctranslate/pkg/llmclient"
	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/textarea"
)

// translateChunk runs Step 1: one batch translate call, mismatch fallback,
// then per-line repair of problem lines.
func (a *Agent) translateChunk(ctx context.Context, c models.Chunk, terms []models.Term, records []*lineRecord) {
	n := len(records)
	if n == 0 {
		return
	}

	var combined strings.Builder
	texts := make([]string, n)
	for i, r := range records {
		texts[i] = r.SourceText
		combined.WriteString(r.SourceText)
		combined.WriteString("\n")
	}
	filtered := filterTerms(terms, combined.String())

	systemPrompt := buildTranslateSystemPrompt(c.Strategy, filtered, a.cfg.Style, c.Atoms, n)

	var prompt strings.Builder
	if c.ContextBefore != nil {
		prompt.WriteString("Preceding context (do not translate, for reference only):\n")
		for _, ctxAtom := range c.ContextBefore {
			prompt.WriteString(ctxAtom.SourceText)
			prompt.WriteString("\n")
		}
		prompt.WriteString("---\n")
	}
	prompt.WriteString(textarea.Render(texts))

	estTokens := len(prompt.String()) / 4
	if _, err := a.cfg.Limiter.Acquire(ctx, estTokens, a.stopSignal()); err != nil {
		a.fullChunkFallback(ctx, records)
		return
	}

	a.cfg.Stats.BeginLLMCall()
	resp, err := a.cfg.LLM.Send(ctx, []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt.String()}}, systemPrompt, a.cfg.Platform)
	a.cfg.Stats.EndLLMCall()
	if err != nil || resp.Skipped {
		a.fullChunkFallback(ctx, records)
		return
	}
	a.cfg.Stats.AddTokens(resp.PromptTokens, resp.CompletionTokens)

	parsed := textarea.Extract(resp.Content)
	if len(parsed) != n {
		a.fullChunkFallback(ctx, records)
		return
	}

	for i, r := range records {
		produced := parsed[i]
		if isProblemLine(r.SourceText, produced) {
			r.Chosen = a.translateSingleLine(ctx, r.SourceText)
			continue
		}
		r.Chosen = produced
	}
}

// backTranslateAndScore runs Step 2's first two sub-steps: batch
// back-translation, then batch scoring.
func (a *Agent) backTranslateAndScore(ctx context.Context, terms []models.Term, records []*lineRecord) {
	n := len(records)
	if n == 0 {
		return
	}

	translated := make([]string, n)
	for i, r := range records {
		translated[i] = r.Chosen
	}

	inverse := renderInverseTermTable(terms)
	backPrompt := backTranslatePromptPrefix + inverse
	backResp, ok := a.send(ctx, textarea.Render(translated), backPrompt)
	if ok {
		parsed := textarea.Extract(backResp)
		for i, r := range records {
			if bt, found := parsed[i]; found {
				r.BackTranslation = bt
			}
		}
	}

	scoreResp, ok := a.send(ctx, textarea.Render(translated), scorePrompt)
	scores := map[int]float64{}
	if ok {
		scores = parseScores(scoreResp, n)
	}
	for i, r := range records {
		score, found := scores[i]
		if !found || score < 1.0 || score > 10.0 {
			score = 8.0
		}
		r.Score = score
		r.NeedsRefine = score < 7.0
	}
}

// refineNeeded runs Step 2's batch refine over only the lines scoring below
// 7.0, replacing their Chosen text with the model's correction.
func (a *Agent) refineNeeded(ctx context.Context, records []*lineRecord) {
	var toRefine []*lineRecord
	for _, r := range records {
		if r.NeedsRefine {
			toRefine = append(toRefine, r)
		}
	}
	if len(toRefine) == 0 {
		return
	}

	texts := make([]string, len(toRefine))
	for i, r := range toRefine {
		texts[i] = r.Chosen
	}

	resp, ok := a.send(ctx, textarea.Render(texts), refinePrompt)
	if !ok {
		return
	}
	parsed := textarea.Extract(resp)
	for i, r := range toRefine {
		replacement, found := parsed[i]
		if !found {
			continue
		}
		refined := stripRefineResidue(replacement)
		if refined == r.Chosen {
			continue
		}
		r.Step2Refined = true
		r.Step2RefinedText = refined
		r.Chosen = refined
	}
}

var refineResidueRe = regexp.MustCompile(`(原文|回译|修正后译文)\s*[:：]\s*`)

func stripRefineResidue(s string) string {
	if i := strings.LastIndex(s, "修正后译文"); i >= 0 {
		s = s[i:]
	}
	return strings.TrimSpace(refineResidueRe.ReplaceAllString(s, ""))
}

// send is the shared single-batch-call helper used by back-translation,
// scoring, and refine — all fixed-shape one-request batch calls with no
// per-line fallback of their own (transient failure here defaults per
// spec.md §7: empty back-translation, default score 8.0, zero refinements).
func (a *Agent) send(ctx context.Context, userContent, systemPrompt string) (string, bool) {
	estTokens := len(userContent) / 4
	if _, err := a.cfg.Limiter.Acquire(ctx, estTokens, a.stopSignal()); err != nil {
		return "", false
	}

	a.cfg.Stats.BeginLLMCall()
	resp, err := a.cfg.LLM.Send(ctx, []llmclient.Message{{Role: llmclient.RoleUser, Content: userContent}}, systemPrompt, a.cfg.Platform)
	a.cfg.Stats.EndLLMCall()
	if err != nil || resp.Skipped {
		return "", false
	}
	a.cfg.Stats.AddTokens(resp.PromptTokens, resp.CompletionTokens)
	return resp.Content, true
}

// scoreLineRe matches one "N. 评分：<X.X>" scoring line.
var scoreLineRe = regexp.MustCompile(`(?m)^\s*(\d+)[.、]\s*评分\s*[:：]\s*([0-9]+(?:\.[0-9]+)?)`)

func parseScores(raw string, n int) map[int]float64 {
	out := map[int]float64{}
	for _, m := range scoreLineRe.FindAllStringSubmatch(raw, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > n {
			continue
		}
		score, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		out[idx-1] = score
	}
	return out
}
