// doctranslate runs the document-translation orchestration API server:
// loads workflow configuration, connects to PostgreSQL, and serves the
// operator HTTP/WebSocket surface (SPEC_FULL.md §13).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"

	"github.com/doctranslate/doctranslate/pkg/api"
	"github.com/doctranslate/doctranslate/pkg/config"
	"github.com/doctranslate/doctranslate/pkg/llmclient"
	"github.com/doctranslate/doctranslate/pkg/ner"
	"github.com/doctranslate/doctranslate/pkg/projectstore"
	"github.com/doctranslate/doctranslate/pkg/store"
	"github.com/doctranslate/doctranslate/pkg/telemetry"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workflowCfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbCfg, err := loadStoreConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}

	pgStore, err := store.NewPostgresStore(ctx, dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pgStore.Close()
	log.Println("connected to PostgreSQL and ran migrations")

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:      getEnv("OTEL_ENABLED", "false") == "true",
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "doctranslate"),
		SamplingRate: floatEnv("OTEL_SAMPLING_RATE", 1.0),
	}, nil)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	if shutdownable, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownable.Shutdown(shutdownCtx); err != nil {
				log.Printf("error shutting down tracer provider: %v", err)
			}
		}()
	}

	var st store.Store = pgStore
	st = telemetry.WrapStore(st, "doctranslate")

	llm, err := llmclient.NewFromProvider(getEnv("LLM_PROVIDER", ""), &llmclient.Mock{})
	if err != nil {
		log.Fatalf("failed to resolve LLM client: %v", err)
	}
	ps, err := projectstore.NewFromProvider(getEnv("PROJECTSTORE_PROVIDER", ""),
		&projectstore.Mock{Projects: map[string]projectstore.Project{}})
	if err != nil {
		log.Fatalf("failed to resolve project store: %v", err)
	}
	nerProvider, err := ner.NewFromProvider(getEnv("NER_PROVIDER", ""), &ner.Mock{})
	if err != nil {
		log.Fatalf("failed to resolve NER provider: %v", err)
	}

	platform := llmclient.PlatformConfig{
		Provider:    getEnv("LLM_PROVIDER", ""),
		Model:       getEnv("LLM_MODEL", ""),
		Temperature: floatEnv("LLM_TEMPERATURE", 0.3),
		MaxTokens:   intEnv("LLM_MAX_TOKENS", 4096),
		TimeoutSecs: intEnv("LLM_TIMEOUT_SECS", 120),
	}

	server := api.NewServer(st, ps, llm, nerProvider, platform, *workflowCfg)

	slog.InfoContext(ctx, "starting doctranslate", "port", httpPort, "config_dir", *configDir)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatalf("server failed: %v", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during server shutdown: %v", err)
	}
}

// loadStoreConfigFromEnv loads PostgreSQL connection settings from the
// environment, mirroring the teacher's database.LoadConfigFromEnv:
// production-ready pool defaults, DB_PASSWORD required, validated before
// use.
func loadStoreConfigFromEnv() (store.Config, error) {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return store.Config{}, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpen := intEnv("DB_MAX_OPEN_CONNS", 25)
	maxIdle := intEnv("DB_MAX_IDLE_CONNS", 10)

	lifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return store.Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	cfg := store.Config{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            port,
		User:            getEnv("DB_USER", "doctranslate"),
		Password:        os.Getenv("DB_PASSWORD"),
		Database:        getEnv("DB_NAME", "doctranslate"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    int32(maxOpen),
		MaxIdleConns:    int32(maxIdle),
		ConnMaxLifetime: lifetime,
		TermCacheSize:   intEnv("DB_TERM_CACHE_SIZE", 1000),
	}

	if cfg.Password == "" {
		return store.Config{}, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		return store.Config{}, fmt.Errorf("DB_MAX_IDLE_CONNS (%d) cannot exceed DB_MAX_OPEN_CONNS (%d)",
			cfg.MaxIdleConns, cfg.MaxOpenConns)
	}
	if cfg.MaxOpenConns < 1 {
		return store.Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1")
	}

	return cfg, nil
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatEnv(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
