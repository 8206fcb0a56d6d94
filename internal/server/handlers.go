package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
	"github.com/tjfontaine/hybrid-agent/internal/metrics"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Agent answers prompts as a fragment stream.
type Agent interface {
	StreamResponse(ctx context.Context, systemPrompt, userPrompt string) <-chan domain.Fragment
}

// MemoryService stores and searches memories.
type MemoryService interface {
	SaveMemory(ctx context.Context, content string) (domain.MemoryItem, bool)
	SearchMemories(ctx context.Context, query string, limit int, threshold float64) []domain.ScoredMemory
}

// CapabilityLister lists registered capabilities.
type CapabilityLister interface {
	List() []ports.Capability
}

// Handlers holds the collaborators behind the HTTP routes. Agent is
// required; a nil optional collaborator makes its routes answer 501.
type Handlers struct {
	Agent        Agent
	Memory       MemoryService
	Catalogs     map[string]ports.ModelCatalog // keyed by backend name
	Capabilities CapabilityLister
	Provisioner  ports.Provisioner
	Metrics      *metrics.Metrics

	SystemPrompt     string
	DefaultLimit     int
	DefaultThreshold float64
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	AddError(r.Context(), err)
	var body errorBody
	body.Error.Message = err.Error()
	writeJSON(w, status, body)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

var errNotConfigured = errors.New("not configured")

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StreamRequest is the body of POST /v1/agent/stream.
type StreamRequest struct {
	Prompt string `json:"prompt"`
	// System overrides the configured system prompt.
	System string `json:"system,omitempty"`
}

// StreamAgent relays the agent's fragments as server-sent events, ending
// with a [DONE] event.
func (h *Handlers) StreamAgent(w http.ResponseWriter, r *http.Request) {
	var req StreamRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("prompt is required"))
		return
	}
	system := req.System
	if system == "" {
		system = h.SystemPrompt
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	n := 0
	for frag := range h.Agent.StreamResponse(r.Context(), system, req.Prompt) {
		if err := sse.Send(frag); err != nil {
			AddError(r.Context(), err)
			return
		}
		n++
	}
	AddLogField(r.Context(), "fragments", fmt.Sprint(n))
	if r.Context().Err() == nil {
		sse.Done()
	}
}

// SaveMemoryRequest is the body of POST /v1/memories.
type SaveMemoryRequest struct {
	Content string `json:"content"`
}

// SaveMemoryResponse reports whether the memory was stored. Saves of
// content that cannot be embedded are skipped, not rejected.
type SaveMemoryResponse struct {
	Saved  bool               `json:"saved"`
	Memory *domain.MemoryItem `json:"memory,omitempty"`
}

func (h *Handlers) SaveMemory(w http.ResponseWriter, r *http.Request) {
	if h.Memory == nil {
		writeError(w, r, http.StatusNotImplemented, fmt.Errorf("memory: %w", errNotConfigured))
		return
	}
	var req SaveMemoryRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("content is required"))
		return
	}

	item, ok := h.Memory.SaveMemory(r.Context(), req.Content)
	if !ok {
		writeJSON(w, http.StatusOK, SaveMemoryResponse{Saved: false})
		return
	}
	item.Vector = nil
	writeJSON(w, http.StatusCreated, SaveMemoryResponse{Saved: true, Memory: &item})
}

// SearchMemoriesRequest is the body of POST /v1/memories/search. Zero limit
// and threshold use the configured defaults.
type SearchMemoriesRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

type SearchMemoriesResponse struct {
	Results []domain.ScoredMemory `json:"results"`
}

func (h *Handlers) SearchMemories(w http.ResponseWriter, r *http.Request) {
	if h.Memory == nil {
		writeError(w, r, http.StatusNotImplemented, fmt.Errorf("memory: %w", errNotConfigured))
		return
	}
	var req SearchMemoriesRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Limit <= 0 {
		req.Limit = h.DefaultLimit
	}
	if req.Threshold == 0 {
		req.Threshold = h.DefaultThreshold
	}

	results := h.Memory.SearchMemories(r.Context(), req.Query, req.Limit, req.Threshold)
	out := make([]domain.ScoredMemory, len(results))
	for i, m := range results {
		m.Item.Vector = nil
		out[i] = m
	}
	writeJSON(w, http.StatusOK, SearchMemoriesResponse{Results: out})
}

// BackendModels is one backend's entry in GET /v1/models.
type BackendModels struct {
	Current   string   `json:"current"`
	Available []string `json:"available"`
}

func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.Catalogs))
	for name := range h.Catalogs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]BackendModels, len(names))
	var mu sync.Mutex
	var g errgroup.Group
	for _, name := range names {
		catalog := h.Catalogs[name]
		g.Go(func() error {
			available := catalog.ListAvailableModels(r.Context())
			if available == nil {
				available = []string{}
			}
			mu.Lock()
			out[name] = BackendModels{Current: catalog.CurrentModel(), Available: available}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	writeJSON(w, http.StatusOK, out)
}

// SetModelRequest is the body of PUT /v1/models/current.
type SetModelRequest struct {
	Backend string `json:"backend"`
	Model   string `json:"model"`
}

func (h *Handlers) SetModel(w http.ResponseWriter, r *http.Request) {
	var req SetModelRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("model is required"))
		return
	}
	catalog, ok := h.Catalogs[req.Backend]
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("unknown backend %q", req.Backend))
		return
	}

	catalog.SetModel(req.Model)
	AddLogField(r.Context(), "model", req.Model)
	writeJSON(w, http.StatusOK, BackendModels{Current: catalog.CurrentModel()})
}

// CapabilityInfo describes one capability in GET /v1/capabilities.
type CapabilityInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters,omitempty"`
	Unsafe      bool   `json:"unsafe"`
}

func (h *Handlers) ListCapabilities(w http.ResponseWriter, r *http.Request) {
	out := []CapabilityInfo{}
	if h.Capabilities != nil {
		for _, c := range h.Capabilities.List() {
			out = append(out, CapabilityInfo{
				Name:        c.Name(),
				Description: c.Description(),
				Parameters:  c.Parameters(),
				Unsafe:      c.IsUnsafe(),
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"capabilities": out})
}

// ProgressEvent is one server-sent event of POST /v1/local/reprovision.
type ProgressEvent struct {
	Status   string  `json:"status,omitempty"`
	Fraction float64 `json:"fraction"`
	Error    string  `json:"error,omitempty"`
}

// Reprovision re-fetches the local model and streams progress events.
func (h *Handlers) Reprovision(w http.ResponseWriter, r *http.Request) {
	if h.Provisioner == nil {
		writeError(w, r, http.StatusNotImplemented, fmt.Errorf("provisioner: %w", errNotConfigured))
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	err = h.Provisioner.Reprovision(r.Context(), func(status string, fraction float64) {
		_ = sse.Send(ProgressEvent{Status: status, Fraction: fraction})
	})
	if err != nil {
		AddError(r.Context(), err)
		_ = sse.Send(ProgressEvent{Error: err.Error()})
		return
	}
	sse.Done()
}
