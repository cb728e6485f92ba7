// Package stats provides the mutex-guarded, thread-safe run counters
// (tokens, lines, active calls, stage progress, timings) and publishes
// immutable TaskUpdate snapshots on every mutation.
package stats

import "time"

// Stage names, in the order the workflow graph runs them (spec.md §6).
const (
	StagePlanning       = "planning"
	StagePreprocessing  = "preprocessing"
	StageTerminology    = "terminology"
	StageTranslating    = "translating"
	StageBacktranslation = "backtranslation"
	StageEntityCheck    = "entity_check"
	StageSaving         = "saving"
	StageCompleted      = "completed"
)

// preTranslationStages run before translation proper and always publish
// lines=0 in their snapshots.
var preTranslationStages = map[string]bool{
	StagePlanning:      true,
	StagePreprocessing: true,
	StageTerminology:   true,
}

// BatchInfo describes progress within the current stage's batch loop.
type BatchInfo struct {
	Current int
	Total   int
}

// AgentStage is attached to snapshots published around stage transitions.
type AgentStage struct {
	Stage     string
	BatchInfo BatchInfo
}

// Snapshot is an immutable copy of the tracker's state at publish time.
// Consumers may read freely without synchronization.
type Snapshot struct {
	TotalLines    int
	Lines         int
	Tokens        int
	CompletionTokens int
	TotalRequests int
	ActiveLLMCalls int

	CurrentStage          string
	StageStartTime        time.Time
	StageProgressCurrent  int
	StageProgressTotal    int

	StartTime time.Time
	Time      time.Duration

	AgentStage *AgentStage
}

// TaskUpdate is the single progress-event kind published by StatsTracker.
type TaskUpdate struct {
	Snapshot Snapshot
}

// Subscriber receives TaskUpdate events. Implementations must not block —
// the tracker publishes synchronously, immediately after releasing its
// mutex, exactly like the teacher's EventPublisher.
type Subscriber interface {
	OnTaskUpdate(TaskUpdate)
}

// SubscriberFunc adapts a plain function to Subscriber.
type SubscriberFunc func(TaskUpdate)

// OnTaskUpdate implements Subscriber.
func (f SubscriberFunc) OnTaskUpdate(u TaskUpdate) { f(u) }
