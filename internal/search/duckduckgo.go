// Package search implements keyword web search against DuckDuckGo's HTML
// endpoint.
package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

const (
	// DefaultEndpoint is the JavaScript-free results page.
	DefaultEndpoint = "https://html.duckduckgo.com/html/"

	// DefaultUserAgent mimics a desktop browser; the endpoint rejects obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxBodyBytes = 4 << 20
)

// DuckDuckGo searches the web by scraping result pages.
type DuckDuckGo struct {
	endpoint  string
	userAgent string
	client    *http.Client
	logger    *slog.Logger
}

// Option configures a DuckDuckGo searcher.
type Option func(*DuckDuckGo)

// WithEndpoint overrides the results page URL.
func WithEndpoint(endpoint string) Option {
	return func(d *DuckDuckGo) { d.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *DuckDuckGo) { d.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *DuckDuckGo) { d.logger = l }
}

// NewDuckDuckGo creates a searcher.
func NewDuckDuckGo(opts ...Option) *DuckDuckGo {
	d := &DuckDuckGo{
		endpoint:  DefaultEndpoint,
		userAgent: DefaultUserAgent,
		client:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search returns up to max results for query, best-ranked first.
func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]domain.SearchResult, error) {
	u, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	results, err := ParseResults(io.LimitReader(resp.Body, maxBodyBytes), max)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("web search completed",
		slog.Int("query_length", len(query)),
		slog.Int("results", len(results)))
	return results, nil
}

// ParseResults extracts ranked results from a DuckDuckGo HTML page. Results
// whose link points back into DuckDuckGo itself are skipped unless they are
// redirect links carrying the target in the uddg parameter.
func ParseResults(r io.Reader, max int) ([]domain.SearchResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var results []domain.SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if max > 0 && len(results) >= max {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if res, ok := parseResult(n); ok {
				results = append(results, res)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func parseResult(n *html.Node) (domain.SearchResult, bool) {
	title := find(n, "a", "result__a")
	if title == nil {
		return domain.SearchResult{}, false
	}
	link := resolveLink(attr(title, "href"))
	if link == "" {
		return domain.SearchResult{}, false
	}

	res := domain.SearchResult{
		Title: textOf(title),
		Link:  link,
	}
	if snippet := find(n, "", "result__snippet"); snippet != nil {
		res.Snippet = textOf(snippet)
	}
	return res, true
}

func resolveLink(href string) string {
	if href == "" {
		return ""
	}
	if !strings.HasPrefix(href, "//duckduckgo") && !strings.HasPrefix(href, "/l/") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("uddg")
}

// find returns the first descendant element with the given tag (any tag when
// empty) carrying class.
func find(n *html.Node, tag, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (tag == "" || c.Data == tag) && hasClass(c, class) {
			return c
		}
		if found := find(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(nd *html.Node) {
		if nd.Type == html.TextNode {
			sb.WriteString(nd.Data)
		}
		for c := nd.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
