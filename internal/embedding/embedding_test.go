package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/tjfontaine/hybrid-agent/internal/api/gemini"
	"github.com/tjfontaine/hybrid-agent/internal/api/ollama"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

func TestEmbedders(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/models/text-embedding-004:embedContent":
			w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
		case "/api/embeddings":
			w.Write([]byte(`{"embedding":[0.4,0.5]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		e       ports.Embedder
		wantLen int
	}{
		{"gemini", NewGemini(gemini.NewClient("k", gemini.WithBaseURL(srv.URL), gemini.WithHTTPClient(srv.Client())), ""), 3},
		{"ollama", NewOllama(ollama.NewClient(ollama.WithBaseURL(srv.URL), ollama.WithHTTPClient(srv.Client())), ""), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := calls.Load()

			blank, err := tt.e.GetEmbedding(context.Background(), "   ")
			if err != nil || len(blank) != 0 {
				t.Errorf("GetEmbedding(blank) = %v, %v, want empty and nil", blank, err)
			}
			if calls.Load() != before {
				t.Error("blank text must not reach the provider")
			}

			vec, err := tt.e.GetEmbedding(context.Background(), "my favorite color is blue")
			if err != nil {
				t.Fatalf("GetEmbedding() error = %v", err)
			}
			if len(vec) != tt.wantLen {
				t.Errorf("GetEmbedding() len = %d, want %d", len(vec), tt.wantLen)
			}
		})
	}
}
