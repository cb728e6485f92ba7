package config

import "time"

// WorkflowYAMLConfig is the root of doctranslate.yaml — the per-project
// workflow config blob referenced by models.Project, plus the process-wide
// queue/worker sizing knobs. Field names mirror spec.md §6's "Configuration
// recognized" enumeration verbatim.
type WorkflowYAMLConfig struct {
	UseMultiAgentMode    *bool         `yaml:"use_multi_agent_mode"`
	LinesLimitSwitch     *bool         `yaml:"lines_limit_switch"`
	TokensLimitSwitch    *bool         `yaml:"tokens_limit_switch"`
	LinesLimit           int           `yaml:"lines_limit"`
	TokensLimit          int           `yaml:"tokens_limit"`
	UserThreadCounts     int           `yaml:"user_thread_counts"`
	RequestTimeout       int           `yaml:"request_timeout"`
	RoundLimit           int           `yaml:"round_limit"`
	RPMLimit             int           `yaml:"rpm_limit"`
	TPMLimit             int           `yaml:"tpm_limit"`
	PreLineCounts        int           `yaml:"pre_line_counts"`
	SourceLanguage       string        `yaml:"source_language"`
	TargetLanguage       string        `yaml:"target_language"`
	OutputFilenameSuffix string        `yaml:"output_filename_suffix"`
	BilingualTextOrder   string        `yaml:"bilingual_text_order"`
	EnableHumanReview    *bool         `yaml:"enable_human_review"`
	ReviewThreshold      float64       `yaml:"review_threshold"`
	Queue                *QueueConfig  `yaml:"queue"`
}

// QueueConfig controls the worker pool driving WorkflowManager runs,
// mirrored from the teacher's config.QueueConfig sizing knobs.
type QueueConfig struct {
	WorkerCount             int           `yaml:"worker_count"`
	MaxConcurrentSessions   int           `yaml:"max_concurrent_sessions"`
	PollInterval            time.Duration `yaml:"poll_interval"`
	SessionTimeout          time.Duration `yaml:"session_timeout"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             3,
		MaxConcurrentSessions:   3,
		PollInterval:            1 * time.Second,
		SessionTimeout:          30 * time.Minute,
		GracefulShutdownTimeout: 30 * time.Minute,
	}
}

// Config is the fully resolved, validated configuration ready for use.
// Unexported configDir mirrors the teacher's Config.configDir field — kept
// for diagnostics, never re-read after Initialize returns.
type Config struct {
	configDir string

	UseMultiAgentMode    bool
	LinesLimitSwitch     bool
	TokensLimitSwitch    bool
	LinesLimit           int
	TokensLimit          int
	UserThreadCounts     int
	RequestTimeout       time.Duration
	RoundLimit           int
	RPMLimit             int
	TPMLimit             int
	PreLineCounts        int
	SourceLanguage       string
	TargetLanguage       string
	OutputFilenameSuffix string
	BilingualTextOrder   string
	EnableHumanReview    bool
	ReviewThreshold      float64

	Queue *QueueConfig
}
