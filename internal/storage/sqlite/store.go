// Package sqlite is the default durable store for memories and history.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
	"github.com/tjfontaine/hybrid-agent/internal/storage"
)

// Store is a SQLite implementation of ports.Store.
type Store struct {
	db *sqlx.DB
}

var _ ports.Store = (*Store)(nil)

// New opens (creating if needed) the database at dsn and applies the schema.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			vector BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			name TEXT,
			tool_call_id TEXT,
			function_calls TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// SaveMemory inserts a memory. IDs come from AUTOINCREMENT, so they are
// never reused even after rows are removed by hand.
func (s *Store) SaveMemory(ctx context.Context, content string, vector []float32) (domain.MemoryItem, error) {
	item := domain.MemoryItem{
		Content:   content,
		Vector:    vector,
		Timestamp: time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (content, vector, created_at) VALUES (?, ?, ?)`,
		content, storage.EncodeVector(vector), item.Timestamp)
	if err != nil {
		return domain.MemoryItem{}, fmt.Errorf("failed to insert memory: %w", err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return domain.MemoryItem{}, fmt.Errorf("failed to read memory id: %w", err)
	}
	return item, nil
}

type memoryRow struct {
	ID        int64     `db:"id"`
	Content   string    `db:"content"`
	Vector    []byte    `db:"vector"`
	CreatedAt time.Time `db:"created_at"`
}

// AllMemories returns every memory in insertion order.
func (s *Store) AllMemories(ctx context.Context) ([]domain.MemoryItem, error) {
	var rows []memoryRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, content, vector, created_at FROM memories ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}

	items := make([]domain.MemoryItem, 0, len(rows))
	for _, r := range rows {
		vec, err := storage.DecodeVector(r.Vector)
		if err != nil {
			return nil, fmt.Errorf("memory %d: %w", r.ID, err)
		}
		items = append(items, domain.MemoryItem{
			ID:        r.ID,
			Content:   r.Content,
			Vector:    vec,
			Timestamp: r.CreatedAt,
		})
	}
	return items, nil
}

// AppendMessage records a conversation turn.
func (s *Store) AppendMessage(ctx context.Context, msg domain.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var calls *string
	if len(msg.FunctionCalls) > 0 {
		data, err := json.Marshal(msg.FunctionCalls)
		if err != nil {
			return fmt.Errorf("failed to marshal function calls: %w", err)
		}
		v := string(data)
		calls = &v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (role, content, name, tool_call_id, function_calls, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(msg.Role), msg.Content, msg.Name, msg.ToolCallID, calls, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

type messageRow struct {
	Role          string    `db:"role"`
	Content       string    `db:"content"`
	Name          *string   `db:"name"`
	ToolCallID    *string   `db:"tool_call_id"`
	FunctionCalls *string   `db:"function_calls"`
	CreatedAt     time.Time `db:"created_at"`
}

// RecentMessages returns the newest n turns in chronological order.
func (s *Store) RecentMessages(ctx context.Context, n int) ([]domain.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT role, content, name, tool_call_id, function_calls, created_at
		 FROM (SELECT * FROM messages ORDER BY id DESC LIMIT ?)
		 ORDER BY id ASC`, n); err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	msgs := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		msg := domain.Message{
			Role:      domain.Role(r.Role),
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		}
		if r.Name != nil {
			msg.Name = *r.Name
		}
		if r.ToolCallID != nil {
			msg.ToolCallID = *r.ToolCallID
		}
		if r.FunctionCalls != nil && *r.FunctionCalls != "" {
			if err := json.Unmarshal([]byte(*r.FunctionCalls), &msg.FunctionCalls); err != nil {
				return nil, fmt.Errorf("failed to unmarshal function calls: %w", err)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
