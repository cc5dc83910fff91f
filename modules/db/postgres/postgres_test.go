package postgres

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMigration_WritesTimestampedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pool := &PostgresConnectionPool{
		writerURL:     connURL(&PoolConfig{Host: "localhost", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}),
		migrationsDir: dir,
	}
	require.NoError(t, pool.GenerateMigration("add_phone"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_add_phone.sql"), entries[0].Name())

	body, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- migrate:up")
}

func TestMigrate_WithoutEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	pool := &PostgresConnectionPool{}
	assert.ErrorIs(t, pool.MigrateUp(), ErrNoMigrations)
	assert.ErrorIs(t, pool.MigrateDown(), ErrNoMigrations)
}

func TestConnURL(t *testing.T) {
	t.Parallel()

	u := connURL(&PoolConfig{Host: "db", Port: 6432, User: "jack", Password: "secret", Database: "crud", SSLMode: "require", PoolMaxConns: 10})
	assert.Equal(t, "postgres://jack:secret@db:6432/crud?pool_max_conns=10&sslmode=require", u.String())
}
