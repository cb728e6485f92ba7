package translation

import (
	"context"
	"strings"

	"github.com/doctranslate/doctranslate/pkg/llmclient"
)

// failedPlaceholder is the marker written when even single-line fallback
// fails, per spec.md §4.8 Fallback and Step 1's problem-line handling.
func failedPlaceholder(source string) string {
	return "[FAILED]" + source
}

// translateSingleLine issues one single-line LLM request and returns the
// translation, or failedPlaceholder(source) if the call fails, is skipped,
// or the rate limiter rejects it.
func (a *Agent) translateSingleLine(ctx context.Context, source string) string {
	estTokens := len(source) / 4
	if _, err := a.cfg.Limiter.Acquire(ctx, estTokens, a.stopSignal()); err != nil {
		return failedPlaceholder(source)
	}

	a.cfg.Stats.BeginLLMCall()
	resp, err := a.cfg.LLM.Send(ctx, []llmclient.Message{{Role: llmclient.RoleUser, Content: source}}, singleLinePrompt, a.cfg.Platform)
	a.cfg.Stats.EndLLMCall()
	if err != nil || resp.Skipped {
		return failedPlaceholder(source)
	}
	a.cfg.Stats.AddTokens(resp.PromptTokens, resp.CompletionTokens)

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return failedPlaceholder(source)
	}
	return text
}

// fullChunkFallback translates every record's source text one line at a
// time — triggered when Step 1's batch reply line count doesn't match the
// chunk size (spec.md §4.8 Step 1).
func (a *Agent) fullChunkFallback(ctx context.Context, records []*lineRecord) {
	for _, r := range records {
		r.Chosen = a.translateSingleLine(ctx, r.SourceText)
		r.FellBackPerLine = true
	}
}

// isProblemLine implements spec.md §4.8 Step 1's problem-line predicate:
// empty output, or a source longer than 100 chars whose output is under
// 30% of its length.
func isProblemLine(source, produced string) bool {
	if strings.TrimSpace(produced) == "" {
		return true
	}
	if len(source) > 100 && float64(len(produced)) < 0.3*float64(len(source)) {
		return true
	}
	return false
}

func (a *Agent) stopSignal() func() bool {
	return func() bool {
		return a.cfg.Runtime != nil && a.cfg.Runtime.Cancelled()
	}
}
