// Package redis stores memories and history in Redis lists.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

// DefaultPrefix namespaces every key the store touches.
const DefaultPrefix = "agent:"

// Store implements ports.Store using Redis.
type Store struct {
	client     *backend.Client
	prefix     string
	maxHistory int64
}

var _ ports.Store = (*Store)(nil)

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithMaxHistory caps the history list; older turns are trimmed on append.
// Zero keeps everything.
func WithMaxHistory(n int) Option {
	return func(s *Store) {
		s.maxHistory = int64(n)
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) memorySeqKey() string { return s.prefix + "memories:seq" }
func (s *Store) memoriesKey() string  { return s.prefix + "memories" }
func (s *Store) historyKey() string   { return s.prefix + "history" }

// SaveMemory assigns an id with INCR and appends the record. The counter
// only grows, so ids are never reused.
func (s *Store) SaveMemory(ctx context.Context, content string, vector []float32) (domain.MemoryItem, error) {
	id, err := s.client.Incr(ctx, s.memorySeqKey()).Result()
	if err != nil {
		return domain.MemoryItem{}, fmt.Errorf("failed to allocate memory id: %w", err)
	}

	item := domain.MemoryItem{
		ID:        id,
		Content:   content,
		Vector:    vector,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(item)
	if err != nil {
		return domain.MemoryItem{}, fmt.Errorf("failed to marshal memory: %w", err)
	}

	if err := s.client.RPush(ctx, s.memoriesKey(), data).Err(); err != nil {
		return domain.MemoryItem{}, fmt.Errorf("failed to save memory: %w", err)
	}
	return item, nil
}

// AllMemories returns every memory in insertion order.
func (s *Store) AllMemories(ctx context.Context) ([]domain.MemoryItem, error) {
	vals, err := s.client.LRange(ctx, s.memoriesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}

	items := make([]domain.MemoryItem, 0, len(vals))
	for _, v := range vals {
		var item domain.MemoryItem
		if err := json.Unmarshal([]byte(v), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal memory: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// AppendMessage records a conversation turn.
func (s *Store) AppendMessage(ctx context.Context, msg domain.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.historyKey(), data)
	if s.maxHistory > 0 {
		pipe.LTrim(ctx, s.historyKey(), -s.maxHistory, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// RecentMessages returns the newest n turns in chronological order.
func (s *Store) RecentMessages(ctx context.Context, n int) ([]domain.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	vals, err := s.client.LRange(ctx, s.historyKey(), -int64(n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	msgs := make([]domain.Message, 0, len(vals))
	for _, v := range vals {
		var msg domain.Message
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
