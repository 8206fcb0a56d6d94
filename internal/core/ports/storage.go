package ports

import (
	"context"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

// MemoryRepository persists memory records.
type MemoryRepository interface {
	// SaveMemory stores a new record. The repository assigns a monotonic id
	// that is never reused, and the creation timestamp.
	SaveMemory(ctx context.Context, content string, vector []float32) (domain.MemoryItem, error)

	// AllMemories returns every stored record in id order.
	AllMemories(ctx context.Context) ([]domain.MemoryItem, error)
}

// HistoryStore persists conversation turns. It is append-only.
type HistoryStore interface {
	AppendMessage(ctx context.Context, msg domain.Message) error

	// RecentMessages returns at most n of the newest messages in
	// chronological order.
	RecentMessages(ctx context.Context, n int) ([]domain.Message, error)
}

// Store is the persistence collaborator.
// Implementations: SQLite (default), in-memory, Redis.
type Store interface {
	MemoryRepository
	HistoryStore
	Close() error
}
