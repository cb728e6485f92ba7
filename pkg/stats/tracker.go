package stats

import (
	"sync"
	"time"
)

// Tracker is one instance per project run. Every mutation takes the mutex,
// updates fields, snapshots the struct, releases the mutex, then publishes
// the snapshot to every subscriber — mirroring the teacher's
// EventPublisher.persistAndNotify flow (marshal once, fan out).
type Tracker struct {
	mu sync.Mutex

	totalLines    int
	lines         int
	tokens        int
	completionTokens int
	totalRequests int
	activeLLMCalls int

	currentStage         string
	stageStartTime       time.Time
	stageProgressCurrent int
	stageProgressTotal   int

	startTime time.Time

	subsMu sync.RWMutex
	subs   []Subscriber
}

// New creates a Tracker with startTime set to now.
func New() *Tracker {
	return &Tracker{startTime: time.Now()}
}

// Subscribe registers a Subscriber for future TaskUpdate events.
func (t *Tracker) Subscribe(s Subscriber) {
	t.subsMu.Lock()
	defer t.subsMu.Unlock()
	t.subs = append(t.subs, s)
}

func (t *Tracker) publish(snap Snapshot) {
	t.subsMu.RLock()
	subs := make([]Subscriber, len(t.subs))
	copy(subs, t.subs)
	t.subsMu.RUnlock()
	for _, s := range subs {
		s.OnTaskUpdate(TaskUpdate{Snapshot: snap})
	}
}

// snapshotLocked builds a Snapshot from current fields. Caller must hold mu.
func (t *Tracker) snapshotLocked() Snapshot {
	lines := t.lines
	if preTranslationStages[t.currentStage] {
		lines = 0
	}

	var agentStage *AgentStage
	if t.currentStage != "" {
		agentStage = &AgentStage{
			Stage: t.currentStage,
			BatchInfo: BatchInfo{
				Current: t.stageProgressCurrent,
				Total:   t.stageProgressTotal,
			},
		}
	}

	return Snapshot{
		TotalLines:           t.totalLines,
		Lines:                lines,
		Tokens:               t.tokens,
		CompletionTokens:     t.completionTokens,
		TotalRequests:        t.totalRequests,
		ActiveLLMCalls:       t.activeLLMCalls,
		CurrentStage:         t.currentStage,
		StageStartTime:       t.stageStartTime,
		StageProgressCurrent: t.stageProgressCurrent,
		StageProgressTotal:   t.stageProgressTotal,
		StartTime:            t.startTime,
		Time:                 time.Since(t.startTime),
		AgentStage:           agentStage,
	}
}

// mutate runs fn under the mutex then publishes the resulting snapshot.
func (t *Tracker) mutate(fn func()) {
	t.mu.Lock()
	fn()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.publish(snap)
}

// SetTotalLines sets the total expected line count for the run.
func (t *Tracker) SetTotalLines(n int) {
	t.mutate(func() { t.totalLines = n })
}

// AddCompletedLines increments the completed-line counter.
func (t *Tracker) AddCompletedLines(n int) {
	t.mutate(func() { t.lines += n })
}

// AddTokens records prompt+completion tokens and completion tokens
// separately, plus one request, matching the "every LLM call... publishing
// another snapshot" accounting rule.
func (t *Tracker) AddTokens(promptTokens, completionTokens int) {
	t.mutate(func() {
		t.tokens += promptTokens + completionTokens
		t.completionTokens += completionTokens
		t.totalRequests++
	})
}

// BeginLLMCall increments activeLLMCalls and publishes immediately, pairing
// with EndLLMCall to bracket every LLM call.
func (t *Tracker) BeginLLMCall() {
	t.mutate(func() { t.activeLLMCalls++ })
}

// EndLLMCall decrements activeLLMCalls and publishes immediately.
func (t *Tracker) EndLLMCall() {
	t.mutate(func() {
		if t.activeLLMCalls > 0 {
			t.activeLLMCalls--
		}
	})
}

// BeginStage transitions to a new stage, resetting stage progress and
// publishing immediately (a stage-transition TaskUpdate).
func (t *Tracker) BeginStage(stage string, total int) {
	t.mutate(func() {
		t.currentStage = stage
		t.stageStartTime = time.Now()
		t.stageProgressCurrent = 0
		t.stageProgressTotal = total
	})
}

// AdvanceStageProgress sets the current progress counter within a stage.
func (t *Tracker) AdvanceStageProgress(current int) {
	t.mutate(func() { t.stageProgressCurrent = current })
}

// Snapshot returns the current state without mutating anything.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}
