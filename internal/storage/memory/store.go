// Package memory is an in-process store for tests and ephemeral runs.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

// Store keeps memories and history in slices guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	memories []domain.MemoryItem
	messages []domain.Message
}

var _ ports.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) SaveMemory(ctx context.Context, content string, vector []float32) (domain.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	item := domain.MemoryItem{
		ID:        s.nextID,
		Content:   content,
		Vector:    slices.Clone(vector),
		Timestamp: time.Now().UTC(),
	}
	s.memories = append(s.memories, item)
	return item, nil
}

func (s *Store) AllMemories(ctx context.Context) ([]domain.MemoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.memories), nil
}

func (s *Store) AppendMessage(ctx context.Context, msg domain.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, n int) ([]domain.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := max(len(s.messages)-n, 0)
	return slices.Clone(s.messages[start:]), nil
}

func (s *Store) Close() error {
	return nil
}
