package database

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startTestDB runs a disposable Postgres container with the run-report schema
// applied. The container and connection are released when the test ends.
func startTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("datasets"),
		tcpostgres.WithUsername("compiler"),
		tcpostgres.WithPassword("compiler"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := New(connStr)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(migrationsDir()), "failed to run migrations")
	return db
}

// migrationsDir returns the repository's migrations directory
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "db", "migrations")
}

// truncateRuns empties the run tables between subtests
func truncateRuns(t *testing.T, db *DB) {
	t.Helper()
	_, err := db.conn.Exec(`TRUNCATE TABLE symbol_failures, compile_runs CASCADE`)
	require.NoError(t, err, "failed to truncate run tables")
}
