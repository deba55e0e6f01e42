// Package history persists chat conversations in SQLite so a session can be
// listed, reviewed and resumed later.
//
// The database lives at ~/.ipfa/history.db. Messages are stored exactly as
// exchanged with the model, including tool calls and tool results, so a
// resumed conversation replays the same context.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jpl-au/ipfa/internal/config"
	"github.com/jpl-au/ipfa/internal/store"
)

//go:embed sql/*.sql
var schemas embed.FS

var (
	// ErrNotFound is returned when a conversation does not exist.
	ErrNotFound = errors.New("conversation not found")
	// ErrAmbiguous is returned when an id prefix matches several conversations.
	ErrAmbiguous = errors.New("ambiguous conversation id")
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Conversation is one chat session.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Snapshot  string    `json:"snapshot,omitempty"` // active snapshot when the session ended
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  int       `json:"messages"`
}

// Message is one stored chat message. ToolCalls holds the assistant's tool
// call requests as the model sent them.
type Message struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	ToolCalls  json.RawMessage `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Store is the conversation database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultPath returns ~/.ipfa/history.db.
func DefaultPath() string {
	return filepath.Join(config.Dir(), "history.db")
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.ExecEmbedded(db, schemas, "sql"); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateConversation starts a new conversation.
func (s *Store) CreateConversation(ctx context.Context, title, snapshot, model string) (Conversation, error) {
	now := s.now()
	c := Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Snapshot:  snapshot,
		Model:     model,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, snapshot, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Snapshot, c.Model, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

// Append adds m to conversation id and bumps its updated time.
func (s *Store) Append(ctx context.Context, id string, m Message) error {
	now := s.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	var calls *string
	if len(m.ToolCalls) > 0 && string(m.ToolCalls) != "null" {
		c := string(m.ToolCalls)
		calls = &c
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, now.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, tool_calls, tool_call_id, name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, m.Role, m.Content, calls, store.NullString(m.ToolCallID), store.NullString(m.Name), m.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return tx.Commit()
}

// Messages returns the messages of conversation id in the order appended.
func (s *Store) Messages(ctx context.Context, id string) ([]Message, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, tool_calls, tool_call_id, name, created_at
		FROM messages WHERE conversation_id = ? ORDER BY id`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		var calls, callID, name sql.NullString
		var created int64
		if err := rows.Scan(&m.Role, &m.Content, &calls, &callID, &name, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if calls.Valid {
			m.ToolCalls = json.RawMessage(calls.String)
		}
		m.ToolCallID = callID.String
		m.Name = name.String
		m.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

const conversationColumns = `
	SELECT c.id, c.title, c.snapshot, c.model, c.created_at, c.updated_at,
	       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
	FROM conversations c`

func scanConversation(sc interface{ Scan(...any) error }) (Conversation, error) {
	var c Conversation
	var created, updated int64
	if err := sc.Scan(&c.ID, &c.Title, &c.Snapshot, &c.Model, &created, &updated, &c.Messages); err != nil {
		return Conversation{}, err
	}
	c.CreatedAt = time.UnixMilli(created).UTC()
	c.UpdatedAt = time.UnixMilli(updated).UTC()
	return c, nil
}

// Get returns conversation id. A unique prefix of the id is accepted.
func (s *Store) Get(ctx context.Context, id string) (Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Conversation{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx, conversationColumns+` WHERE c.id = ? OR c.id LIKE ? ESCAPE '\' LIMIT 2`,
		id, escapeLike(id)+"%")
	if err != nil {
		return Conversation{}, fmt.Errorf("read conversation: %w", err)
	}
	defer rows.Close()

	var found []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return Conversation{}, fmt.Errorf("scan conversation: %w", err)
		}
		if c.ID == id {
			return c, nil
		}
		found = append(found, c)
	}
	if err := rows.Err(); err != nil {
		return Conversation{}, err
	}
	switch len(found) {
	case 0:
		return Conversation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return found[0], nil
	default:
		return Conversation{}, fmt.Errorf("%w: %s matches several conversations", ErrAmbiguous, id)
	}
}

// Conversations returns up to limit conversations, most recently updated
// first. A limit of 0 returns all.
func (s *Store) Conversations(ctx context.Context, limit int) ([]Conversation, error) {
	q := conversationColumns + ` ORDER BY c.updated_at DESC, c.rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Latest returns the most recently updated conversation.
func (s *Store) Latest(ctx context.Context) (Conversation, error) {
	cs, err := s.Conversations(ctx, 1)
	if err != nil {
		return Conversation{}, err
	}
	if len(cs) == 0 {
		return Conversation{}, fmt.Errorf("%w: no conversations yet", ErrNotFound)
	}
	return cs[0], nil
}

// Update sets the title and snapshot of conversation id. Empty values are
// left unchanged.
func (s *Store) Update(ctx context.Context, id, title, snapshot string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET title = CASE WHEN ? = '' THEN title ELSE ? END,
		    snapshot = CASE WHEN ? = '' THEN snapshot ELSE ? END
		WHERE id = ?`, title, title, snapshot, snapshot, id)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Delete removes conversation id (or a unique prefix of it) and its
// messages. Returns the full id deleted.
func (s *Store) Delete(ctx context.Context, id string) (string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("delete conversation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, c.ID); err != nil {
		return "", fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, c.ID); err != nil {
		return "", fmt.Errorf("delete conversation: %w", err)
	}
	return c.ID, tx.Commit()
}

// Prune deletes conversations not updated since before, with their
// messages. Returns the number of conversations deleted.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cutoff := before.UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM messages WHERE conversation_id IN
		    (SELECT id FROM conversations WHERE updated_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("prune messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune conversations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

// Title derives a conversation title from the first user message.
func Title(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const max = 60
	if r := []rune(s); len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
