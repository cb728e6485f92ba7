// Package config loads and validates doctranslate.yaml plus an environment
// overlay, following the teacher's pkg/config split between a raw YAML shape
// (WorkflowYAMLConfig), a built-in default pass, and a resolved Config ready
// for use.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point, mirroring config.Initialize(ctx, configDir) in
// the teacher.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.InfoContext(ctx, "loading configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.InfoContext(ctx, "configuration loaded",
		"source_language", cfg.SourceLanguage,
		"target_language", cfg.TargetLanguage,
		"multi_agent", cfg.UseMultiAgentMode)
	return cfg, nil
}

func load(configDir string) (*Config, error) {
	raw, err := loadYAML(configDir, "doctranslate.yaml")
	if err != nil {
		return nil, NewLoadError("doctranslate.yaml", err)
	}

	queue := DefaultQueueConfig()
	if raw.Queue != nil {
		if err := mergo.Merge(queue, raw.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	cfg := &Config{
		configDir: configDir,

		UseMultiAgentMode: boolOr(raw.UseMultiAgentMode, true),
		LinesLimitSwitch:  boolOr(raw.LinesLimitSwitch, false),
		TokensLimitSwitch: boolOr(raw.TokensLimitSwitch, true),
		LinesLimit:        raw.LinesLimit,
		TokensLimit:       raw.TokensLimit,
		UserThreadCounts:  raw.UserThreadCounts,
		RequestTimeout:    time.Duration(intOr(raw.RequestTimeout, DefaultRequestTimeoutSecs)) * time.Second,
		RoundLimit:        intOr(raw.RoundLimit, DefaultRoundLimit),
		RPMLimit:          intOr(raw.RPMLimit, DefaultRPMLimit),
		TPMLimit:          intOr(raw.TPMLimit, DefaultTPMLimit),
		PreLineCounts:     intOr(raw.PreLineCounts, DefaultPreLineCounts),

		SourceLanguage:       raw.SourceLanguage,
		TargetLanguage:       raw.TargetLanguage,
		OutputFilenameSuffix: stringOr(raw.OutputFilenameSuffix, DefaultOutputSuffix),
		BilingualTextOrder:   stringOr(raw.BilingualTextOrder, DefaultBilingualOrder),
		EnableHumanReview:    boolOr(raw.EnableHumanReview, false),
		ReviewThreshold:      floatOr(raw.ReviewThreshold, DefaultReviewThreshold),

		Queue: queue,
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	v := newValidator(cfg)
	return v.validateAll()
}

func loadYAML(configDir, filename string) (*WorkflowYAMLConfig, error) {
	path := filepath.Join(configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var cfg WorkflowYAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &cfg, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func floatOr(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
