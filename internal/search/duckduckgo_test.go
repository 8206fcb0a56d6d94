package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestParseResults(t *testing.T) {
	f, err := os.Open("testdata/results.html")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	results, err := ParseResults(f, 5)
	if err != nil {
		t.Fatalf("ParseResults() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("ParseResults() len = %d, want 3: %+v", len(results), results)
	}

	tests := []struct {
		idx     int
		title   string
		link    string
		snippet string
	}{
		{0, "The Go Programming Language", "https://go.dev/", "Go is an open source programming language that makes it simple to build software."},
		{1, "Go Packages", "https://pkg.go.dev/", "Discover packages."},
		{2, "Go (programming language) - Wikipedia", "https://en.wikipedia.org/wiki/Go_(programming_language)", ""},
	}
	for _, tt := range tests {
		got := results[tt.idx]
		if got.Title != tt.title {
			t.Errorf("results[%d].Title = %q, want %q", tt.idx, got.Title, tt.title)
		}
		if got.Link != tt.link {
			t.Errorf("results[%d].Link = %q, want %q", tt.idx, got.Link, tt.link)
		}
		if got.Snippet != tt.snippet {
			t.Errorf("results[%d].Snippet = %q, want %q", tt.idx, got.Snippet, tt.snippet)
		}
	}
}

func TestParseResults_Max(t *testing.T) {
	f, err := os.Open("testdata/results.html")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	results, err := ParseResults(f, 1)
	if err != nil {
		t.Fatalf("ParseResults() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("ParseResults(max=1) len = %d, want 1", len(results))
	}
}

func TestDuckDuckGo_Search(t *testing.T) {
	page, err := os.ReadFile("testdata/results.html")
	if err != nil {
		t.Fatal(err)
	}

	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write(page)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL+"/html/"), WithHTTPClient(srv.Client()))
	results, err := d.Search(context.Background(), "go & rust", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery != "go & rust" {
		t.Errorf("query = %q, want %q", gotQuery, "go & rust")
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if len(results) != 3 {
		t.Errorf("Search() len = %d, want 3", len(results))
	}
}

func TestDuckDuckGo_SearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	if _, err := d.Search(context.Background(), "go", 5); err == nil {
		t.Error("Search() error = nil, want status error")
	}
}
