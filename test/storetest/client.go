// Package storetest provides a test PostgresStore backed by a testcontainer,
// mirroring the teacher's test/database.NewTestClient helper.
package storetest

import (
	"context"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/doctranslate/doctranslate/pkg/store"
)

// NewTestStore creates a PostgresStore for tests. In CI (when
// CI_DATABASE_URL is set) it connects to an external PostgreSQL service
// container; otherwise it spins up a testcontainer. The container and pool
// are cleaned up automatically when the test ends.
func NewTestStore(t *testing.T) *store.PostgresStore {
	t.Helper()
	ctx := context.Background()

	if ciURL := os.Getenv("CI_DATABASE_URL"); ciURL != "" {
		cfg := parseConnString(t, ciURL)
		s, err := store.NewPostgresStore(ctx, cfg)
		require.NoError(t, err)
		t.Cleanup(s.Close)
		return s
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	s, err := store.NewPostgresStore(ctx, store.Config{
		Host:          host,
		Port:          port.Int(),
		User:          "test",
		Password:      "test",
		Database:      "test",
		SSLMode:       "disable",
		MaxOpenConns:  5,
		TermCacheSize: 64,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func parseConnString(t *testing.T, connStr string) store.Config {
	t.Helper()
	u, err := url.Parse(connStr)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	password, _ := u.User.Password()
	return store.Config{
		Host:          host,
		Port:          port,
		User:          u.User.Username(),
		Password:      password,
		Database:      strings.TrimPrefix(u.Path, "/"),
		SSLMode:       "disable",
		MaxOpenConns:  5,
		TermCacheSize: 64,
	}
}
