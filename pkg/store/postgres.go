package store

import (
	stdsql "database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"context"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver under database/sql
	"github.com/philippgille/chromem-go"

	"github.com/doctranslate/doctranslate/pkg/models"
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds PostgreSQL connection settings, mirroring the teacher's
// database.Config shape.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int32
	MaxIdleConns    int32
	ConnMaxLifetime time.Duration

	// TermCacheSize bounds the in-process LRU fronting GetTerm lookups.
	TermCacheSize int
}

// PostgresStore implements Store over jackc/pgx/v5, with a chromem-go
// in-memory vector index for knowledge search kept warm alongside the
// relational tables (grounded on kadirpekel-hector's chromem.go wiring) and
// a bounded LRU cache in front of term lookups.
type PostgresStore struct {
	pool *pgxpool.Pool

	termCache *lru.Cache[string, models.Term]
	vectorDB  *chromem.DB
}

// NewPostgresStore opens a connection pool, runs embedded migrations, and
// returns a ready-to-use Store.
func NewPostgresStore(ctx context.Context, cfg Config) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(cfg, dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cacheSize := cfg.TermCacheSize
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, models.Term](cacheSize)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create term cache: %w", err)
	}

	return &PostgresStore{
		pool:      pool,
		termCache: cache,
		vectorDB:  chromem.NewDB(),
	}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// runMigrations applies embedded migrations using golang-migrate, exactly as
// the teacher's database.runMigrations does — except we own the whole
// schema (no ent generator to layer custom indexes on top of afterward), so
// the GIN index for domain_lexicon search ships inside the migration itself.
func runMigrations(cfg Config, dsn string) error {
	hasMigrations, err := hasEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("failed to check embedded migrations: %w", err)
	}
	if !hasMigrations {
		return fmt.Errorf("no embedded migration files found")
	}

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, cfg.Database, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return sourceDriver.Close()
}

func hasEmbeddedMigrations() (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return false, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && len(e.Name()) > 4 && e.Name()[len(e.Name())-4:] == ".sql" {
			return true, nil
		}
	}
	return false, nil
}
