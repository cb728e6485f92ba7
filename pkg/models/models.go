// Package models defines the core data types shared across the translation
// pipeline: projects, documents, atoms, traces, terms, knowledge entries,
// chunks, and the transient per-run workflow state.
package models

import "time"

// AtomStatus is the lifecycle status code carried on an Atom.
type AtomStatus int

// Atom status codes, monotonically non-decreasing except for explicit
// human-edit/refine overwrites (see Atom invariants).
const (
	AtomUntranslated AtomStatus = 0
	AtomDrafted      AtomStatus = 1
	AtomRefined      AtomStatus = 2
	AtomHumanReviewed AtomStatus = 3
	AtomFinalized    AtomStatus = 4
)

// AgentRole identifies which agent produced a Trace.
type AgentRole string

// Agent roles that can author a Trace.
const (
	RoleTranslator        AgentRole = "translator"
	RoleQualityAssessor    AgentRole = "quality_assessor"
	RoleConsistencyChecker AgentRole = "consistency_checker"
	RoleHuman              AgentRole = "human"
)

// ActionType identifies the kind of action recorded by a Trace.
type ActionType string

// Trace action types.
const (
	ActionDraft     ActionType = "draft"
	ActionRefine    ActionType = "refine"
	ActionEvaluate  ActionType = "evaluate"
	ActionFinal     ActionType = "final"
	ActionHumanEdit ActionType = "human_edit"
)

// ActivatingActions are the action types that, on insert, atomically clear
// the previous active trace for the atom and become the new active one.
// ActionEvaluate never activates — it only annotates.
var ActivatingActions = map[ActionType]bool{
	ActionDraft:     true,
	ActionRefine:    true,
	ActionFinal:     true,
	ActionHumanEdit: true,
}

// WordType tags a Term's lexical category.
type WordType string

// Term word types.
const (
	WordTypeEntity  WordType = "entity"
	WordTypeTerm    WordType = "term"
	WordTypeIdiom   WordType = "idiom"
	WordTypeConcept WordType = "concept"
	WordTypeKeyword WordType = "keyword"
	WordTypeAcronym WordType = "acronym"
)

// KBType tags a KnowledgeEntry's source category.
type KBType string

// Knowledge base entry types.
const (
	KBTypeTM          KBType = "tm"
	KBTypeGlossary    KBType = "glossary"
	KBTypeStyleGuide  KBType = "style_guide"
	KBTypeExternal    KBType = "external"
)

// Project is the top-level unit of work: a source/target language pair with
// its workflow config, topic info, translation guide, and prompt templates.
type Project struct {
	ID               string
	SourceLanguage   string
	TargetLanguage   string
	WorkflowConfig   map[string]any
	TopicDomain      string
	TopicStyle       string
	TranslationGuide string
	PromptTemplates  map[string]string
	CreatedAt        time.Time

	// Extra carries resumability state: dbWorkId/dbDocMap/dbAtomMap and any
	// other small metadata the engine needs to re-enter a partially-run
	// workflow without re-inserting rows. Keys restored from persisted JSON.
	Extra map[string]any
}

// DocumentStatus is the processing status of a Document.
type DocumentStatus string

// Document statuses.
const (
	DocumentPending   DocumentStatus = "pending"
	DocumentProcessed DocumentStatus = "processed"
)

// Document belongs to one Project; one per input file.
type Document struct {
	ID         string
	ProjectID  string
	FilePath   string
	AtomCount  int
	Status     DocumentStatus
}

// Examination is the quality record attached to an Atom after back
// translation and scoring.
type Examination struct {
	BackTranslation string
	Score           float64
	WarningLevel    string
	Issues          []string
}

// Atom is the minimum translatable unit.
type Atom struct {
	ID             string
	DocumentID     string
	Position       int
	SourceText     string
	ContentHash    string
	TranslatedText string
	// Summary is a short bilingual gist of the atom, set once at Stage C
	// commit so later chunks' context windows can carry a condensed memory
	// of earlier segments instead of their full text.
	Summary        string
	StatusCode     AtomStatus
	QualityScore   *float64
	Examination    *Examination
	ContextInfo    map[string]any
	Vector         []float32
}

// QualityReport is the structured payload stored with an evaluate Trace.
type QualityReport struct {
	Score           float64
	BackTranslation string
	Issues          []string
}

// Trace is an immutable event row describing one agent action on one atom.
type Trace struct {
	ID            string
	AtomID        string
	AgentRole     AgentRole
	ActionType    ActionType
	Content       string
	QualityReport *QualityReport
	Metadata      map[string]any
	PromptTokens  int
	CompletionTokens int
	IsActive      bool
	CreatedAt     time.Time
}

// TranslationCandidate is one candidate translation suggestion for a Term,
// carrying its source and confidence.
type TranslationCandidate struct {
	Text       string
	Source     string // e.g. "llm_verification", "human"
	Confidence float64
}

// Term is a terminology-store entry identified by (ProjectID, EntryKey).
type Term struct {
	ProjectID          string
	EntryKey           string
	EntryVal           string
	WordType           WordType
	Domain             string
	Variants           []string
	ExampleSentences   []string
	Candidates         []TranslationCandidate
	AtomRefs           []string
	Confidence         float64
	HumanConfirmed     bool
}

// KnowledgeEntry is an optional RAG-style knowledge base row.
type KnowledgeEntry struct {
	ID        string
	ProjectID string
	Content   string
	KBType    KBType
	Vector    []float32
	Tags      []string
}

// Item is an ordered translation unit as produced by ProjectStore — the
// minimal shape the engine needs before it becomes a persisted Atom.
type Item struct {
	SourceText      string
	TranslatedText  string
	TranslationStatus string
	TokenCount      int
	RowIndex        int
	Extra           map[string]any
}

// Chunk is a transient, in-memory batch of atoms packed for one LLM
// round-trip, plus its preceding context window.
type Chunk struct {
	Index         int
	Atoms         []Atom
	ContextBefore []Atom
	FilePath      string
	Strategy      StrategyTag
}

// StrategyTag is the per-chunk translation strategy chosen by the Planner.
type StrategyTag string

// Strategy tags.
const (
	StrategyLiteral  StrategyTag = "literal"
	StrategyFree     StrategyTag = "free"
	StrategyStylized StrategyTag = "stylized"
)
