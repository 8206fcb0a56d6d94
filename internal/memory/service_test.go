package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	storemem "github.com/tjfontaine/hybrid-agent/internal/storage/memory"
)

// mapEmbedder returns fixed vectors per text.
type mapEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mapEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vectors[text], nil
}

type failingRepo struct{}

func (failingRepo) SaveMemory(context.Context, string, []float32) (domain.MemoryItem, error) {
	return domain.MemoryItem{}, errors.New("disk full")
}

func (failingRepo) AllMemories(context.Context) ([]domain.MemoryItem, error) {
	return nil, errors.New("disk full")
}

func TestNewService_MissingDependencies(t *testing.T) {
	if _, err := NewService(nil, storemem.New()); !errors.Is(err, domain.ErrMissingDependency) {
		t.Errorf("NewService(nil embedder) error = %v", err)
	}
	if _, err := NewService(&mapEmbedder{}, nil); !errors.Is(err, domain.ErrMissingDependency) {
		t.Errorf("NewService(nil repo) error = %v", err)
	}
}

func TestService_SaveAndSearch(t *testing.T) {
	emb := &mapEmbedder{vectors: map[string][]float32{
		"my favorite color is blue": {0.9, 0.1, 0},
		"I live in Lisbon":          {0, 0.2, 0.9},
		"blue is calming":           {0.7, 0.3, 0.1},
		"what color do I like":      {1, 0.15, 0},
	}}
	svc, err := NewService(emb, storemem.New())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, c := range []string{"my favorite color is blue", "I live in Lisbon", "blue is calming"} {
		if _, ok := svc.SaveMemory(ctx, c); !ok {
			t.Fatalf("SaveMemory(%q) skipped", c)
		}
	}

	results := svc.SearchMemories(ctx, "what color do I like", DefaultLimit, DefaultThreshold)
	if len(results) != 2 {
		t.Fatalf("SearchMemories() len = %d, want 2: %+v", len(results), results)
	}
	if results[0].Item.Content != "my favorite color is blue" {
		t.Errorf("top result = %q", results[0].Item.Content)
	}
	for i, r := range results {
		if r.Score < DefaultThreshold {
			t.Errorf("result %d scored %v below threshold", i, r.Score)
		}
		if i > 0 && r.Score > results[i-1].Score {
			t.Errorf("results not sorted by descending score")
		}
	}

	if got := svc.SearchMemories(ctx, "what color do I like", 1, DefaultThreshold); len(got) != 1 {
		t.Errorf("SearchMemories(limit=1) len = %d", len(got))
	}
	if got := svc.SearchMemories(ctx, "what color do I like", 3, 0.9999); len(got) != 0 {
		t.Errorf("SearchMemories(high threshold) = %+v, want none", got)
	}
}

func TestService_TiesKeepStorageOrder(t *testing.T) {
	emb := &mapEmbedder{vectors: map[string][]float32{
		"first":  {1, 0},
		"second": {2, 0},
		"third":  {3, 0},
		"q":      {1, 0},
	}}
	svc, _ := NewService(emb, storemem.New())
	ctx := context.Background()
	for _, c := range []string{"first", "second", "third"} {
		svc.SaveMemory(ctx, c)
	}

	got := svc.SearchMemories(ctx, "q", 3, 0.5)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Item.Content != want {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Item.Content, want)
		}
	}
}

func TestService_SilentFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("empty embedding skips save", func(t *testing.T) {
		repo := storemem.New()
		svc, _ := NewService(&mapEmbedder{vectors: map[string][]float32{}}, repo)
		if _, ok := svc.SaveMemory(ctx, "unknown text"); ok {
			t.Error("SaveMemory() stored an item without a vector")
		}
		if all, _ := repo.AllMemories(ctx); len(all) != 0 {
			t.Errorf("repo has %d items, want 0", len(all))
		}
	})

	t.Run("blank content skips save", func(t *testing.T) {
		svc, _ := NewService(&mapEmbedder{}, storemem.New())
		if _, ok := svc.SaveMemory(ctx, "  "); ok {
			t.Error("SaveMemory(blank) stored an item")
		}
	})

	t.Run("embedder error", func(t *testing.T) {
		svc, _ := NewService(&mapEmbedder{err: errors.New("quota")}, storemem.New())
		if _, ok := svc.SaveMemory(ctx, "x"); ok {
			t.Error("SaveMemory() ok despite embedder error")
		}
		if got := svc.SearchMemories(ctx, "x", 3, 0.6); got == nil || len(got) != 0 {
			t.Errorf("SearchMemories() = %v, want empty non-nil", got)
		}
	})

	t.Run("repository error", func(t *testing.T) {
		svc, _ := NewService(&mapEmbedder{vectors: map[string][]float32{"x": {1}}}, failingRepo{})
		if _, ok := svc.SaveMemory(ctx, "x"); ok {
			t.Error("SaveMemory() ok despite repo error")
		}
		if got := svc.SearchMemories(ctx, "x", 3, 0.6); len(got) != 0 {
			t.Errorf("SearchMemories() = %v, want empty", got)
		}
	})
}
