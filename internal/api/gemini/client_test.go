package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_GenerateContent(t *testing.T) {
	var gotKey, gotPath string
	var gotBody GenerateContentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hi"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	resp, err := c.GenerateContent(context.Background(), "gemini-2.0-flash-lite", &GenerateContentRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: "hello"}}}},
	})
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	if gotKey != "k" {
		t.Errorf("x-goog-api-key = %q, want k", gotKey)
	}
	if gotPath != "/models/gemini-2.0-flash-lite:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "hello" {
		t.Errorf("request body = %+v", gotBody)
	}
	if resp.Candidates[0].Content.Parts[0].Text != "hi" {
		t.Errorf("response = %+v", resp)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "api error keeps raw body",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"bad"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("error = %v, want *APIError", err)
				}
				if apiErr.Body != `{"error":{"code":400,"message":"bad"}}` {
					t.Errorf("Body = %q", apiErr.Body)
				}
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `{"candidates":`,
			check: func(t *testing.T, err error) {
				var decErr *DecodeError
				if !errors.As(err, &decErr) {
					t.Fatalf("error = %v, want *DecodeError", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient("k", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
			_, err := c.ListModels(context.Background())
			tt.check(t, err)
		})
	}
}

func TestClient_MissingKey(t *testing.T) {
	c := NewClient("")
	if _, err := c.EmbedContent(context.Background(), "text-embedding-004", "x"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("EmbedContent() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestClient_EmbedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req EmbedContentRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "models/text-embedding-004" {
			t.Errorf("model = %q", req.Model)
		}
		w.Write([]byte(`{"embedding":{"values":[0.5,-0.25]}}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	vec, err := c.EmbedContent(context.Background(), "text-embedding-004", "hello")
	if err != nil {
		t.Fatalf("EmbedContent() error = %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != -0.25 {
		t.Errorf("EmbedContent() = %v", vec)
	}
}
