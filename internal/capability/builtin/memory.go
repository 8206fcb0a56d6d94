package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

// MemoryStore is the part of the memory service the memory capabilities use.
type MemoryStore interface {
	SaveMemory(ctx context.Context, content string) (domain.MemoryItem, bool)
	SearchMemories(ctx context.Context, query string, limit int, threshold float64) []domain.ScoredMemory
}

// Remember stores a fact for later recall.
type Remember struct {
	store MemoryStore
}

func NewRemember(store MemoryStore) *Remember {
	return &Remember{store: store}
}

func (r *Remember) Name() string { return "remember" }
func (r *Remember) Description() string {
	return "Stores a short fact about the user or the conversation in long-term memory."
}
func (r *Remember) IsUnsafe() bool { return false }
func (r *Remember) Parameters() any {
	return schema("content", "The fact to remember, as a complete sentence.")
}

func (r *Remember) Execute(ctx context.Context, args json.RawMessage) string {
	content, msg, ok := stringArg(args, "content")
	if !ok {
		return msg
	}
	item, saved := r.store.SaveMemory(ctx, content)
	if !saved {
		return "Error: memory could not be saved."
	}
	return fmt.Sprintf("Remembered (id %d).", item.ID)
}

// Recall searches long-term memory.
type Recall struct {
	store     MemoryStore
	limit     int
	threshold float64
}

func NewRecall(store MemoryStore, limit int, threshold float64) *Recall {
	return &Recall{store: store, limit: limit, threshold: threshold}
}

func (r *Recall) Name() string { return "recall" }
func (r *Recall) Description() string {
	return "Searches long-term memory for facts related to a query."
}
func (r *Recall) IsUnsafe() bool { return false }
func (r *Recall) Parameters() any {
	return schema("query", "What to look for in memory.")
}

func (r *Recall) Execute(ctx context.Context, args json.RawMessage) string {
	query, msg, ok := stringArg(args, "query")
	if !ok {
		return msg
	}
	results := r.store.SearchMemories(ctx, query, r.limit, r.threshold)
	if len(results) == 0 {
		return "No matching memories."
	}

	lines := make([]string, len(results))
	for i, m := range results {
		lines[i] = fmt.Sprintf("- %s (score %.2f)", m.Item.Content, m.Score)
	}
	return strings.Join(lines, "\n")
}
