package postgres

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/cexbot?sslmode=disable",
		DSN(ClientConfig{User: "u", Password: "p", Host: "db", Database: "cexbot"}))
	assert.Equal(t, "postgres://u:p@db:6543/cexbot?sslmode=require",
		DSN(ClientConfig{User: "u", Password: "p", Host: "db", Port: 6543, Database: "cexbot", SSLMode: "require"}))
	assert.Equal(t, "postgres://explicit", DSN(ClientConfig{DSN: "  postgres://explicit ", Host: "ignored"}))
}

func TestDSNEscapesPassword(t *testing.T) {
	dsn := DSN(ClientConfig{User: "bot", Password: "p@ss/word", Host: "db", Database: "cexbot"})
	assert.NotContains(t, dsn, "p@ss/word")
	assert.Contains(t, dsn, "@db:5432/cexbot")
}

func TestMigrationNamesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_b.sql":  {Data: []byte("SELECT 2")},
		"migrations/001_a.sql":  {Data: []byte("SELECT 1")},
		"migrations/README.txt": {Data: []byte("not sql")},
	}
	names, err := migrationNames(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, names)
}

func TestPendingMigrations(t *testing.T) {
	names := []string{"001_a.sql", "002_b.sql", "003_c.sql"}
	assert.Equal(t, []string{"002_b.sql", "003_c.sql"},
		pendingMigrations(names, map[string]bool{"001_a.sql": true}))
	assert.Empty(t, pendingMigrations(names, map[string]bool{
		"001_a.sql": true, "002_b.sql": true, "003_c.sql": true,
	}))
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := migrationNames(migrationsFS)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	data, err := migrationsFS.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	for _, table := range []string{"sessions", "executions", "execution_legs"} {
		assert.True(t, strings.Contains(string(data), "CREATE TABLE IF NOT EXISTS "+table+" "),
			"missing table %s", table)
	}
}
