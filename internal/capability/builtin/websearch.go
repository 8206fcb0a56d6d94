package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

// MaxSearchResults bounds the results returned to the model.
const MaxSearchResults = 5

// WebSearch performs keyword searches on the public web.
type WebSearch struct {
	searcher ports.Searcher
}

func NewWebSearch(searcher ports.Searcher) *WebSearch {
	return &WebSearch{searcher: searcher}
}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Description() string {
	return "Search the web for information using a query. Returns a list of results with titles and links."
}

// IsUnsafe is true: the query leaves the machine.
func (w *WebSearch) IsUnsafe() bool { return true }

func (w *WebSearch) Parameters() any {
	return schema("query", "The search query (e.g., 'current time in Tokyo', 'latest news on AI').")
}

func (w *WebSearch) Execute(ctx context.Context, args json.RawMessage) string {
	query, msg, ok := stringArg(args, "query")
	if !ok {
		return msg
	}

	results, err := w.searcher.Search(ctx, query, MaxSearchResults)
	if err != nil {
		return fmt.Sprintf("Error searching web: %v", err)
	}
	if len(results) == 0 {
		return "No results found."
	}

	entries := make([]string, 0, len(results))
	for _, r := range results {
		entries = append(entries, fmt.Sprintf("- [%s](%s)\n  Snippet: %s", r.Title, r.Link, r.Snippet))
	}
	return strings.Join(entries, "\n\n")
}
