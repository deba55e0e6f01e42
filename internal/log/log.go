// Package log provides centralised audit logging for ipfa operations.
// Logs are stored in ~/.ipfa/log/ipfa-log.db and track CLI commands, MCP
// tool invocations and chat tool calls across IP Fabric instances.
//
// This is the audit trail of what was asked of IP Fabric. Process diagnostics
// (retries, timings, stack traces) go to the zap logger instead.
//
// # Fluent API
//
//	log.Event("table:query", "query").
//		Author(cmd.Author()).
//		Table("inventory.devices").
//		Snapshot(snap).
//		Rows(len(rows)).
//		Write(err)
//
//	log.Event("mcp:ipf_compare_table", "compare").
//		Author("mcp").
//		Table(t.Name).
//		Detail("baseline", pair.Baseline).
//		Write(err)
//
// The source parameter follows the format "{extension}:{command}" for CLI
// commands, "mcp:{tool}" for MCP tools and "chat:{tool}" for tools the chat
// model called.
package log

import (
	"sync"
	"time"
)

var (
	global *Logger
	mu     sync.Mutex
)

// Entry represents a single log entry.
type Entry struct {
	Source   string // e.g., "table:query", "mcp:ipf_get_devices"
	Author   string // who performed the action
	Action   string // verb: query, compare, list, set, chat
	Table    string // input: catalog table name
	Snapshot string // input: snapshot id or alias requested

	// Output fields, populated after the operation succeeds
	ResolvedSnapshot string // output: concrete snapshot id when an alias was given
	Rows             int    // output: records returned or changes found

	Start int64 // unix timestamp when Event() called
	End   int64 // unix timestamp when Write() called

	Success bool           // whether operation succeeded
	Error   string         // error message if failed
	Detail  map[string]any // additional operation-specific data
}

// Builder constructs a log entry using a fluent API.
// Create with [Event], chain methods to set fields, then call [Builder.Write].
type Builder struct {
	entry Entry
}

// Event creates a new log entry builder for an operation.
func Event(source, action string) *Builder {
	return &Builder{
		entry: Entry{
			Source: source,
			Action: action,
			Start:  time.Now().Unix(),
		},
	}
}

// Author sets who performed the operation ("mcp" for MCP tools, "chat"
// for the chat agent).
func (b *Builder) Author(author string) *Builder {
	b.entry.Author = author
	return b
}

// Table sets the catalog table the operation read.
func (b *Builder) Table(name string) *Builder {
	b.entry.Table = name
	return b
}

// Snapshot sets the snapshot the caller asked for.
func (b *Builder) Snapshot(id string) *Builder {
	b.entry.Snapshot = id
	return b
}

// Resolved sets the concrete snapshot id an alias resolved to.
func (b *Builder) Resolved(id string) *Builder {
	b.entry.ResolvedSnapshot = id
	return b
}

// Rows sets the number of records returned or changes reported.
func (b *Builder) Rows(n int) *Builder {
	b.entry.Rows = n
	return b
}

// Detail adds a key-value pair to the log entry's detail map.
// Can be called multiple times to add multiple details.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// Write writes the log entry to the database, deriving success/failure from err.
func (b *Builder) Write(err error) {
	b.entry.End = time.Now().Unix()
	b.entry.Success = err == nil
	if err != nil {
		b.entry.Error = err.Error()
	}
	Log(b.entry)
}

// Open initialises the global logger. Safe to call multiple times.
// Errors are returned but callers may choose to ignore them (best-effort logging).
func Open() error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return nil
	}

	l, err := openLogger(dbPath())
	if err != nil {
		return err
	}
	global = l
	return nil
}

// SetProject sets the instance identifier for subsequent log entries.
// The url is the IP Fabric base URL; only its hash is stored.
func SetProject(url string) {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.project = hash(url)
	}
}

// Log writes an entry. Safe to call if logger not initialised (no-op).
func Log(e Entry) {
	mu.Lock()
	l := global
	mu.Unlock()

	if l == nil {
		return
	}
	l.log(e)
}

// Close closes the global logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.db.Close()
		global = nil
	}
}
