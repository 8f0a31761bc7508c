// Package testdb provisions a migrated Postgres schema for adapter
// integration tests. Tests that call Open are skipped unless
// VIGIL_TEST_DATABASE_URL holds a postgres:// URL.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// EnvURL names the variable holding the test database URL.
const EnvURL = "VIGIL_TEST_DATABASE_URL"

// Open creates a schema unique to t, applies every migration to it, and
// returns a pool whose search_path points at that schema. The schema is
// dropped when t finishes.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	base := os.Getenv(EnvURL)
	if base == "" {
		t.Skipf("%s not set", EnvURL)
	}

	admin, err := sql.Open("pgx", base)
	require.NoError(t, err)
	t.Cleanup(func() { admin.Close() })

	schema := "vigil_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.ExecContext(context.Background(), "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
	})

	dsn := withSearchPath(t, base, schema)
	applyMigrations(t, dsn)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.PingContext(context.Background()))
	return db
}

func withSearchPath(t *testing.T, base, schema string) string {
	t.Helper()

	u, err := url.Parse(base)
	require.NoError(t, err, "%s must be a URL", EnvURL)

	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}

func applyMigrations(t *testing.T, dsn string) {
	t.Helper()

	source, err := iofs.New(os.DirFS(migrationsDir(t)), ".")
	require.NoError(t, err)

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	require.NoError(t, err)
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}
}

func migrationsDir(t *testing.T) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "cmd", "migrate", "migrations")
}
