package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRoute("local", "short_prompt")
	m.IncBlocked()
	m.ObserveDispatch("web_search", "ok", time.Second)
	m.ObserveMemory("save", "ok")
	m.ObserveToolRounds(1)
	m.ObserveResponse("cloud", time.Second)
	if m.Registry() != nil {
		t.Error("Registry() on nil should be nil")
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveRoute("local", "short_prompt")
	m.ObserveRoute("local", "short_prompt")
	m.ObserveRoute("cloud", "default")
	m.IncBlocked()
	m.ObserveDispatch("web_search", "error", 10*time.Millisecond)
	m.ObserveMemory("search", "ok")

	out := scrape(t, m)
	for _, want := range []string{
		`agent_routes_total{backend="local",reason="short_prompt"} 2`,
		`agent_routes_total{backend="cloud",reason="default"} 1`,
		`agent_prompts_blocked_total 1`,
		`agent_capability_dispatches_total{capability="web_search",outcome="error"} 1`,
		`agent_memory_operations_total{op="search",outcome="ok"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
