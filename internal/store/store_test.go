package store

import (
	"embed"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/sql/*.sql
var testSchemas embed.FS

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, path)

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestExecEmbedded(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, ExecEmbedded(db, testSchemas, "testdata/sql"))
	// Idempotent
	require.NoError(t, ExecEmbedded(db, testSchemas, "testdata/sql"))

	_, err = db.Exec(`INSERT INTO widgets (name) VALUES (?)`, "a")
	require.NoError(t, err)

	// 002 depends on 001 having run first.
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM widget_tags`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestExecEmbedded_MissingDir(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	err = ExecEmbedded(db, testSchemas, "nope")
	assert.ErrorContains(t, err, "read schema directory")
}

func TestNullString(t *testing.T) {
	assert.Nil(t, NullString(""))
	require.NotNil(t, NullString("x"))
	assert.Equal(t, "x", *NullString("x"))
}
