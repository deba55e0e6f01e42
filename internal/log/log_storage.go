// log_storage.go implements SQLite-based persistent audit logging.
//
// The project column holds a hash of the IP Fabric URL so entries from
// several instances can be told apart without storing the URL itself.
//
// Errors during logging are reported to stderr and otherwise ignored: a
// query should succeed even if we can't record it in the audit log.

package log

import (
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jpl-au/ipfa/internal/config"
	"github.com/jpl-au/ipfa/internal/store"
	"golang.org/x/crypto/blake2b"
)

//go:embed sql/*.sql
var schemas embed.FS

// Logger writes audit log entries to a SQLite database.
type Logger struct {
	db      *sql.DB
	project string
}

func openLogger(path string) (*Logger, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.ExecEmbedded(db, schemas, "sql"); err != nil {
		db.Close()
		return nil, err
	}
	return &Logger{db: db}, nil
}

func (l *Logger) log(e Entry) {
	var detail *string
	if len(e.Detail) > 0 {
		if b, err := json.Marshal(e.Detail); err == nil {
			s := string(b)
			detail = &s
		}
	}

	success := 0
	if e.Success {
		success = 1
	}

	_, err := l.db.Exec(`
		INSERT INTO log (start, end, project, source, author, action, tbl, snapshot,
		                 resolved_snapshot, row_count, success, error, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Start, e.End, l.project, e.Source, store.NullString(e.Author), e.Action,
		store.NullString(e.Table), store.NullString(e.Snapshot),
		store.NullString(e.ResolvedSnapshot), e.Rows,
		success, store.NullString(e.Error), detail,
	)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ipfa: audit log write failed: %v\n", err)
	}
}

// Record is a stored log entry as returned by [Recent].
type Record struct {
	ID               int64          `json:"id"`
	Time             time.Time      `json:"time"`
	Duration         int64          `json:"duration_seconds"`
	Source           string         `json:"source"`
	Author           string         `json:"author,omitempty"`
	Action           string         `json:"action"`
	Table            string         `json:"table,omitempty"`
	Snapshot         string         `json:"snapshot,omitempty"`
	ResolvedSnapshot string         `json:"resolved_snapshot,omitempty"`
	Rows             int            `json:"rows"`
	Success          bool           `json:"success"`
	Error            string         `json:"error,omitempty"`
	Detail           map[string]any `json:"detail,omitempty"`
}

// Filter narrows [Recent] results.
type Filter struct {
	Source string // exact source, e.g. "mcp:ipf_query_table"
	Failed bool      // only failed operations
	Since  time.Time // zero means no lower bound
	Limit  int       // 0 means 50
}

// Recent returns the newest log entries, newest first. It opens its own
// connection for the duration of the call, so it works without Open.
func Recent(f Filter) ([]Record, error) {
	p := dbPath()
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, err
	}
	l, err := openLogger(p)
	if err != nil {
		return nil, err
	}
	defer l.db.Close()
	return l.recent(f)
}

func (l *Logger) recent(f Filter) ([]Record, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	q := `SELECT id, start, end, source, author, action, tbl, snapshot,
	             resolved_snapshot, row_count, success, error, detail
	      FROM log WHERE 1=1`
	var args []any
	if f.Source != "" {
		q += ` AND source = ?`
		args = append(args, f.Source)
	}
	if f.Failed {
		q += ` AND success = 0`
	}
	if !f.Since.IsZero() {
		q += ` AND start >= ?`
		args = append(args, f.Since.Unix())
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := l.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		var start, end int64
		var author, table, snap, resolved, msg, detail sql.NullString
		var success int
		if err := rows.Scan(&r.ID, &start, &end, &r.Source, &author, &r.Action, &table, &snap,
			&resolved, &r.Rows, &success, &msg, &detail); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		r.Time = time.Unix(start, 0).UTC()
		r.Duration = end - start
		r.Author = author.String
		r.Table = table.String
		r.Snapshot = snap.String
		r.ResolvedSnapshot = resolved.String
		r.Success = success == 1
		r.Error = msg.String
		if detail.Valid {
			_ = json.Unmarshal([]byte(detail.String), &r.Detail)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// dbPathFunc is the function that returns the database path.
// Tests can override this to use a temp directory.
var dbPathFunc = defaultDBPath

func defaultDBPath() string {
	return filepath.Join(config.Dir(), "log", "ipfa-log.db")
}

func dbPath() string {
	return dbPathFunc()
}

// DBPath returns the path to the log database.
func DBPath() string {
	return dbPath()
}

// hash creates an instance identifier from the IP Fabric URL.
func hash(s string) string {
	h, err := blake2b.New(8, nil) // 64-bit = 16 hex chars
	if err != nil {
		panic("blake2b.New failed: " + err.Error())
	}
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
