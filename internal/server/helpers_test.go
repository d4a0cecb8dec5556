package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"acmsync/internal/config"
)

// postgresDSNEnv names a PostgreSQL URL; when set the store suite also runs
// against PostgreSQL in a throwaway schema.
const postgresDSNEnv = "ACMD_TEST_POSTGRES_DSN"

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenDSN(context.Background(), config.DBDriverSQLite, filepath.Join(t.TempDir(), "checkouts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newPostgresStore(t *testing.T, base string) *Store {
	t.Helper()
	schema := fmt.Sprintf("test_%s", uuid.New().String()[0:8])

	conn, err := sql.Open("postgres", base)
	require.NoError(t, err)
	_, err = conn.Exec("CREATE SCHEMA IF NOT EXISTS " + schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = conn.Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE")
		_ = conn.Close()
	})

	u, err := url.Parse(base)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	store, err := OpenDSN(context.Background(), config.DBDriverPostgres, u.String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// forEachDriver runs fn against SQLite and, when configured, PostgreSQL.
func forEachDriver(t *testing.T, fn func(t *testing.T, newStore func(t *testing.T) *Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newSQLiteStore)
	})
	if dsn := os.Getenv(postgresDSNEnv); dsn != "" {
		t.Run("postgres", func(t *testing.T) {
			fn(t, func(t *testing.T) *Store { return newPostgresStore(t, dsn) })
		})
	}
}
