package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_StreamGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream || !req.Raw {
			t.Errorf("request = %+v, want raw stream", req)
		}
		for _, tok := range []string{"It", " is", " noon"} {
			fmt.Fprintf(w, `{"response":%q,"done":false}`+"\n", tok)
		}
		fmt.Fprintln(w, `{"response":"","done":true,"done_reason":"stop"}`)
		fmt.Fprintln(w, `{"response":"ignored after done","done":false}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	ch, err := c.StreamGenerate(context.Background(), &GenerateRequest{Model: "m", Prompt: "p", Raw: true})
	if err != nil {
		t.Fatalf("StreamGenerate() error = %v", err)
	}

	var text string
	var sawDone bool
	for res := range ch {
		if res.Err != nil {
			t.Fatalf("stream error = %v", res.Err)
		}
		text += res.Chunk.Response
		sawDone = sawDone || res.Chunk.Done
	}
	if text != "It is noon" {
		t.Errorf("text = %q, want %q", text, "It is noon")
	}
	if !sawDone {
		t.Error("done chunk not relayed")
	}
}

func TestClient_StreamGenerateErrorLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"a","done":false}`)
		fmt.Fprintln(w, `{"error":"out of memory"}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	ch, err := c.StreamGenerate(context.Background(), &GenerateRequest{Model: "m"})
	if err != nil {
		t.Fatalf("StreamGenerate() error = %v", err)
	}

	var lastErr error
	for res := range ch {
		if res.Err != nil {
			lastErr = res.Err
		}
	}
	if lastErr == nil || lastErr.Error() != "out of memory" {
		t.Errorf("stream error = %v, want out of memory", lastErr)
	}
}

func TestClient_Pull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"status":"pulling manifest"}`)
		fmt.Fprintln(w, `{"status":"downloading","digest":"sha256:1","total":100,"completed":50}`)
		fmt.Fprintln(w, `{"status":"downloading","digest":"sha256:1","total":100,"completed":100}`)
		fmt.Fprintln(w, `{"status":"success"}`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	var fractions []float64
	err := c.Pull(context.Background(), "m", func(p PullProgress) {
		fractions = append(fractions, p.Fraction())
	})
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	want := []float64{-1, 0.5, 1, -1}
	if len(fractions) != len(want) {
		t.Fatalf("progress calls = %v, want %v", fractions, want)
	}
	for i := range want {
		if fractions[i] != want[i] {
			t.Errorf("fraction[%d] = %v, want %v", i, fractions[i], want[i])
		}
	}
}

func TestClient_ShowNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'm' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err := c.Show(context.Background(), "m"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Show() error = %v, want ErrModelNotFound", err)
	}
	if err := c.Delete(context.Background(), "m"); err != nil {
		t.Errorf("Delete() of missing model error = %v, want nil", err)
	}
}

func TestClient_Embeddings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"embedding":[1,2,3]}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	vec, err := c.Embeddings(context.Background(), "nomic-embed-text", "hello")
	if err != nil {
		t.Fatalf("Embeddings() error = %v", err)
	}
	if len(vec) != 3 || vec[2] != 3 {
		t.Errorf("Embeddings() = %v", vec)
	}
}
