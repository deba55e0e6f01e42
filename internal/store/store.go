// Package store opens the local SQLite databases ipfa keeps under ~/.ipfa
// and applies embedded schema files to them.
//
// Schema files are embedded by each consumer from its own sql/ directory and
// executed in alphabetical order (hence the numeric prefixes like 001_).
// Each file uses IF NOT EXISTS clauses so Init is idempotent.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	// Register sqlite driver
	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the SQLite database at path.
//
// WAL mode lets a chat session read history while another process appends.
// The 5-second busy timeout prevents "database is locked" errors without
// waiting forever on a stuck connection.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	for _, p := range []struct{ stmt, what string }{
		{`PRAGMA journal_mode=WAL`, "setting WAL mode"},
		{`PRAGMA busy_timeout=5000`, "setting busy timeout"},
		{`PRAGMA synchronous=NORMAL`, "setting synchronous mode"},
	} {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p.what, err)
		}
	}
	return db, nil
}

// ExecEmbedded executes all .sql files from an embedded filesystem in
// alphabetical order. The dir parameter names the directory within fsys.
func ExecEmbedded(db *sql.DB, fsys embed.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read schema directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := dir + "/" + entry.Name()
		data, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// NullString maps the empty string to SQL NULL.
func NullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
