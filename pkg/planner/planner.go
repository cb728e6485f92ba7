// Package planner produces the task analysis, execution plan, resource
// plan, chunk strategy tags, and style guide for a project (spec.md §4.6).
// Every function here is pure and deterministic: Planner makes no LLM
// calls and no I/O, which is itself a testable property (spec.md §8).
package planner

import (
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"

	"github.com/doctranslate/doctranslate/pkg/chunker"
	"github.com/doctranslate/doctranslate/pkg/models"
)

// Complexity is the overall task complexity tier.
type Complexity string

// Complexity tiers.
const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// TaskAnalysis is the count/complexity summary over a project's untranslated items.
type TaskAnalysis struct {
	UntranslatedCount int
	MeanLength        float64
	Complexity        Complexity
	EstimatedSeconds  float64
}

// RetryPolicy controls re-attempt behaviour for a stage's LLM calls.
type RetryPolicy struct {
	MaxAttempts int
	BackoffSecs float64
}

// ExecutionPlan sizes the worker pool and stage list by complexity tier.
type ExecutionPlan struct {
	Mode        string
	BatchSize   int
	MaxWorkers  int
	Stages      []string
	RetryPolicy RetryPolicy
}

// APIBreakdown is the per-strategy call-count estimate.
type APIBreakdown struct {
	Strategy models.StrategyTag
	Calls    int
}

// ResourcePlan estimates tokens, API calls, and memory for the run.
type ResourcePlan struct {
	EstimatedTokens   int
	EstimatedAPICalls int
	EstimatedMemoryMB int
	Breakdown         []APIBreakdown
}

// StyleGuide is the inferred overall register of the source material.
type StyleGuide struct {
	OverallStyle string // formal | informal | literary
	Tone         string
	Preferences  []string
}

// Plan is the full Planner output for one run.
type Plan struct {
	Analysis TaskAnalysis
	Exec     ExecutionPlan
	Resource ResourcePlan
	Chunks   []models.Chunk
	Style    StyleGuide
}

// callsPerTranslationChunk is fixed by spec.md §4.6: 1 forward + 1 back + 1 refine.
const callsPerTranslationChunk = 3

// styleGuideSampleSize caps how many items the style heuristic inspects.
const styleGuideSampleSize = 50

var tikTokenEncoding = mustEncoding("cl100k_base")

func mustEncoding(name string) *tiktoken.Tiktoken {
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		// tiktoken-go ships its encodings' merge ranks embedded; GetEncoding
		// only fails for an unknown encoding name, which cl100k_base never is.
		panic(err)
	}
	return enc
}

// EstimateTokens counts tokens with the cl100k_base tiktoken encoding for
// the Planner's resource estimate. The RateLimiter's callers do not use it:
// they estimate a call's tokens as len(prompt)/4.
func EstimateTokens(text string) int {
	return len(tikTokenEncoding.Encode(text, nil, nil))
}

// Plan runs the full Planner pipeline over items, producing every output
// described in spec.md §4.6 in one pass.
func Plan(items []models.Item, cfg Config) Plan {
	analysis := analyzeTask(items)
	exec := buildExecutionPlan(analysis)
	chunks := chunkStrategies(items, cfg)
	resource := buildResourcePlan(analysis, chunks)
	style := buildStyleGuide(items)

	return Plan{
		Analysis: analysis,
		Exec:     exec,
		Resource: resource,
		Chunks:   chunks,
		Style:    style,
	}
}

// Config carries the chunking knobs the Planner needs to reuse Chunker
// exactly as TranslationAgent will (spec.md §4.6 point 4).
type Config struct {
	TranslationCharBudget int
	ContextWindow         int
}

func analyzeTask(items []models.Item) TaskAnalysis {
	var total int
	for _, it := range items {
		if it.TranslationStatus != "translated" {
			total += len(it.SourceText)
		}
	}
	count := 0
	for _, it := range items {
		if it.TranslationStatus != "translated" {
			count++
		}
	}

	var mean float64
	if count > 0 {
		mean = float64(total) / float64(count)
	}

	complexity := classifyComplexity(count, mean)
	return TaskAnalysis{
		UntranslatedCount: count,
		MeanLength:        mean,
		Complexity:        complexity,
		EstimatedSeconds:  estimateWallSeconds(count, complexity),
	}
}

func classifyComplexity(count int, meanLength float64) Complexity {
	switch {
	case count > 2000 || meanLength > 300:
		return ComplexityComplex
	case count > 500 || meanLength > 150:
		return ComplexityMedium
	default:
		return ComplexitySimple
	}
}

// estimateWallSeconds assumes a fixed per-item LLM round-trip cost, scaled
// by the worker count for that tier — a rough estimate surfaced to
// operators, not used for scheduling decisions.
func estimateWallSeconds(count int, complexity Complexity) float64 {
	workers := workersFor(complexity)
	if workers == 0 {
		return 0
	}
	const secsPerItem = 2.5
	return float64(count) * secsPerItem / float64(workers)
}

func workersFor(c Complexity) int {
	switch c {
	case ComplexityComplex:
		return 15
	case ComplexityMedium:
		return 10
	default:
		return 5
	}
}

func buildExecutionPlan(analysis TaskAnalysis) ExecutionPlan {
	workers := workersFor(analysis.Complexity)
	batchSize := 20
	switch analysis.Complexity {
	case ComplexityMedium:
		batchSize = 15
	case ComplexityComplex:
		batchSize = 10
	}

	return ExecutionPlan{
		Mode:       "parallel",
		BatchSize:  batchSize,
		MaxWorkers: workers,
		Stages:     []string{"planning", "preprocessing", "terminology", "translating", "backtranslation", "entity_check", "saving", "completed"},
		RetryPolicy: RetryPolicy{
			MaxAttempts: 1,
			BackoffSecs: 0,
		},
	}
}

func chunkStrategies(items []models.Item, cfg Config) []models.Chunk {
	var pending []models.Item
	for _, it := range items {
		if it.TranslationStatus != "translated" {
			pending = append(pending, it)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	texts := make([]chunker.TextItem, len(pending))
	for i, it := range pending {
		texts[i] = chunker.TextItem(it.SourceText)
	}

	budget := cfg.TranslationCharBudget
	if budget <= 0 {
		budget = chunker.DefaultTranslationCharBudget
	}
	window := cfg.ContextWindow
	if window <= 0 {
		window = chunker.DefaultContextWindow
	}

	packed, err := chunker.Pack(texts, chunker.Config{CharBudget: budget})
	if err != nil {
		return nil
	}

	chunks := make([]models.Chunk, len(packed))
	for i, c := range packed {
		atoms := make([]models.Atom, len(c.Indices))
		for j, idx := range c.Indices {
			atoms[j] = models.Atom{Position: idx, SourceText: string(texts[idx])}
		}

		var ctxAtoms []models.Atom
		for _, idx := range chunker.ContextWindow(packed, i, window) {
			ctxAtoms = append(ctxAtoms, models.Atom{Position: idx, SourceText: string(texts[idx])})
		}

		chunks[i] = models.Chunk{
			Index:         i,
			Atoms:         atoms,
			ContextBefore: ctxAtoms,
			Strategy:      classifyStrategy(atoms),
		}
	}
	return chunks
}

// classifyStrategy implements spec.md §4.6 point 4's heuristics.
func classifyStrategy(atoms []models.Atom) models.StrategyTag {
	var combined strings.Builder
	for _, a := range atoms {
		combined.WriteString(a.SourceText)
		combined.WriteByte(' ')
	}
	text := combined.String()

	density := terminologyDensity(text)
	if density > 0.3 || hasFormalCue(text) {
		return models.StrategyLiteral
	}
	if chinesePunctuationRatio(text) > 0.05 || hasComplexSentence(text) {
		return models.StrategyStylized
	}
	return models.StrategyFree
}

func terminologyDensity(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	var marked int
	for _, f := range fields {
		r := []rune(f)
		if len(r) == 0 {
			continue
		}
		if unicode.IsUpper(r[0]) || strings.ContainsAny(f, ".,;:") {
			marked++
		}
	}
	return float64(marked) / float64(len(fields))
}

var formalCueWords = []string{"hereby", "pursuant", "shall", "whereas", "aforementioned"}

func hasFormalCue(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range formalCueWords {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

func chinesePunctuationRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	var cjkPunct int
	for _, r := range runes {
		switch r {
		case '，', '。', '、', '；', '：', '“', '”', '！', '？':
			cjkPunct++
		}
	}
	return float64(cjkPunct) / float64(len(runes))
}

func hasComplexSentence(text string) bool {
	for _, sentence := range strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '。' }) {
		if len(sentence) > 200 && strings.Count(sentence, ",") > 3 {
			return true
		}
	}
	return false
}

func buildResourcePlan(analysis TaskAnalysis, chunks []models.Chunk) ResourcePlan {
	var totalTokens int
	breakdownByStrategy := map[models.StrategyTag]int{}

	for _, c := range chunks {
		for _, a := range c.Atoms {
			totalTokens += EstimateTokens(a.SourceText)
		}
		breakdownByStrategy[c.Strategy] += callsPerTranslationChunk
	}

	var breakdown []APIBreakdown
	for _, strat := range []models.StrategyTag{models.StrategyLiteral, models.StrategyFree, models.StrategyStylized} {
		if calls, ok := breakdownByStrategy[strat]; ok {
			breakdown = append(breakdown, APIBreakdown{Strategy: strat, Calls: calls})
		}
	}

	apiCalls := len(chunks) * callsPerTranslationChunk
	// Rough memory estimate: ~2KB of working state per untranslated item.
	memoryMB := (analysis.UntranslatedCount * 2) / 1024
	if memoryMB < 1 {
		memoryMB = 1
	}

	return ResourcePlan{
		EstimatedTokens:   totalTokens,
		EstimatedAPICalls: apiCalls,
		EstimatedMemoryMB: memoryMB,
		Breakdown:         breakdown,
	}
}

func buildStyleGuide(items []models.Item) StyleGuide {
	n := len(items)
	if n > styleGuideSampleSize {
		n = styleGuideSampleSize
	}
	sample := items[:n]

	var formalHits, informalHits, literaryHits int
	for _, it := range sample {
		lower := strings.ToLower(it.SourceText)
		if hasFormalCue(lower) {
			formalHits++
		}
		if strings.Contains(lower, "lol") || strings.Contains(lower, "gonna") || strings.Contains(lower, "!!") {
			informalHits++
		}
		if chinesePunctuationRatio(it.SourceText) > 0.05 {
			literaryHits++
		}
	}

	style := "neutral"
	tone := "balanced"
	var prefs []string

	switch {
	case formalHits >= informalHits && formalHits >= literaryHits && formalHits > 0:
		style = "formal"
		tone = "precise"
		prefs = append(prefs, "preserve formal register", "avoid contractions")
	case literaryHits > formalHits && literaryHits > informalHits:
		style = "literary"
		tone = "expressive"
		prefs = append(prefs, "preserve rhetorical devices", "favor natural target-language idiom")
	case informalHits > 0:
		style = "informal"
		tone = "conversational"
		prefs = append(prefs, "keep casual register", "contractions allowed")
	}

	return StyleGuide{OverallStyle: style, Tone: tone, Preferences: prefs}
}
