package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/database"
	"github.com/operationseasyfi/ai-voice-agent/internal/testutil/containers"
)

// TestDB is a migrated PostgreSQL database in a container
type TestDB struct {
	Pool *pgxpool.Pool
	URL  string
}

// NewTestDB starts PostgreSQL, applies the schema migrations and returns a
// pool. Tests calling it are skipped with -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := containers.NewPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	require.NoError(t, database.Migrate(container.ConnectionString))

	pool, err := pgxpool.New(ctx, container.ConnectionString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &TestDB{Pool: pool, URL: container.ConnectionString}
}

// Truncate empties the given tables between subtests
func (db *TestDB) Truncate(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		_, err := db.Pool.Exec(context.Background(), "TRUNCATE TABLE "+table+" CASCADE")
		require.NoError(t, err)
	}
}
