// Package runtime wires the agent's components from configuration and
// manages their lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/hybrid-agent/internal/capability"
	"github.com/tjfontaine/hybrid-agent/internal/config"
	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
	"github.com/tjfontaine/hybrid-agent/internal/memory"
	"github.com/tjfontaine/hybrid-agent/internal/metrics"
	"github.com/tjfontaine/hybrid-agent/internal/orchestrator"
	"github.com/tjfontaine/hybrid-agent/internal/policy"
	"github.com/tjfontaine/hybrid-agent/internal/safety"
	"github.com/tjfontaine/hybrid-agent/internal/server"
	"github.com/tjfontaine/hybrid-agent/internal/skill"
	"github.com/tjfontaine/hybrid-agent/internal/telemetry"
	"github.com/tjfontaine/hybrid-agent/internal/tokens"
)

// Agent is the assembled runtime: storage, backends, memory, capabilities,
// the orchestrator and the HTTP server.
type Agent struct {
	cfg *config.Config

	// Dependencies (injected via options or built from config)
	store      ports.Store
	ownsStore  bool
	local      ports.Backend
	cloud      ports.Backend
	embedder   ports.Embedder
	consent    ports.ConsentPolicy
	httpClient *http.Client
	logger     *slog.Logger

	// Internal state
	memory       *memory.Service
	registry     *capability.Registry
	skills       *skill.Watcher
	orchestrator *orchestrator.Orchestrator
	metrics      *metrics.Metrics
	server       *server.Server
	shutdownOtel func(context.Context) error

	// Lifecycle management
	mu       sync.Mutex
	cancel   context.CancelFunc
	listener net.Listener
	wg       sync.WaitGroup
	stopped  bool
}

// New builds an agent from cfg. Collaborators not supplied through options
// are created from their config sections.
func New(cfg *config.Config, opts ...Option) (*Agent, error) {
	if cfg == nil {
		return nil, domain.ErrMissing("config")
	}
	a := &Agent{
		cfg:       cfg,
		ownsStore: true,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	shutdownOtel, err := telemetry.InitTracer(telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Writer:      os.Stderr,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.shutdownOtel = shutdownOtel
	a.metrics = metrics.New()

	if a.store == nil {
		if a.store, err = openStore(cfg.Storage); err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	if err := a.build(); err != nil {
		a.closeStore()
		return nil, err
	}
	return a, nil
}

func (a *Agent) build() error {
	cfg := a.cfg

	gate, err := safety.New(
		safety.WithPatterns(cfg.Safety.ExtraPatterns...),
		safety.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("safety gate: %w", err)
	}

	a.registry = capability.NewRegistry(a.logger)

	client := a.httpClient
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if a.local == nil {
		a.local = newLocalBackend(cfg.Local, client, a.logger)
	}
	if a.cloud == nil {
		a.cloud = newCloudBackend(cfg.Cloud, a.registry, client, a.logger)
	}
	if a.embedder == nil {
		if a.embedder, err = newEmbedder(cfg, client); err != nil {
			return err
		}
	}

	a.memory, err = memory.NewService(a.embedder, a.store,
		memory.WithLogger(a.logger),
		memory.WithMetrics(a.metrics),
	)
	if err != nil {
		return fmt.Errorf("memory service: %w", err)
	}

	a.registerBuiltins()

	a.skills = skill.NewWatcher(cfg.Capabilities.SkillsDir, a.registry, a.logger,
		skill.WithTimeout(cfg.Capabilities.SkillTimeout))
	if n, err := a.skills.Sync(); err != nil {
		a.logger.Warn("failed to load skills",
			slog.String("dir", cfg.Capabilities.SkillsDir),
			slog.String("error", err.Error()))
	} else {
		a.logger.Info("skills loaded", slog.Int("count", n))
	}

	var budget *tokens.Budget
	if cfg.History.MaxTokens > 0 {
		budget = tokens.NewBudget(cfg.History.MaxTokens, nil)
	}

	a.orchestrator, err = orchestrator.New(
		gate,
		policy.NewLengthKeywordPolicy(cfg.Routing.MaxLocalLength, cfg.Routing.LocalKeywords),
		a.registry,
		a.local,
		a.cloud,
		orchestrator.WithLogger(a.logger),
		orchestrator.WithMetrics(a.metrics),
		orchestrator.WithMemory(a.memory, cfg.Memory.Limit, cfg.Memory.Threshold),
		orchestrator.WithHistory(a.store, cfg.History.Window),
		orchestrator.WithBudget(budget),
		orchestrator.WithConsentPolicy(a.consent),
		orchestrator.WithMaxToolRounds(cfg.Orchestrator.MaxToolRounds),
	)
	if err != nil {
		return err
	}

	a.server = server.New(server.Config{
		Addr:           cfg.Server.Addr(),
		RequestTimeout: cfg.Server.RequestTimeout,
	}, &server.Handlers{
		Agent:            a.orchestrator,
		Memory:           a.memory,
		Catalogs:         a.Catalogs(),
		Capabilities:     a.registry,
		Provisioner:      a.Provisioner(),
		Metrics:          a.metrics,
		SystemPrompt:     cfg.Orchestrator.SystemPrompt,
		DefaultLimit:     cfg.Memory.Limit,
		DefaultThreshold: cfg.Memory.Threshold,
	}, a.logger)

	return nil
}

// Start listens on the configured address and serves in the background. It
// also starts the skills watcher and warms the local model.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil || a.stopped {
		return errors.New("agent already started")
	}

	ln, err := net.Listen("tcp", a.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	a.listener = ln

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Serve(ln); err != nil {
			a.logger.Error("server failed", slog.String("error", err.Error()))
		}
	}()

	if a.cfg.Capabilities.WatchSkills {
		if err := a.skills.Watch(ctx); err != nil {
			a.logger.Warn("skills watch disabled", slog.String("error", err.Error()))
		}
	}

	if p := a.Provisioner(); p != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := p.Initialize(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("local model not ready", slog.String("error", err.Error()))
			}
		}()
	}

	a.logger.Info("agent started",
		slog.String("addr", ln.Addr().String()),
		slog.String("storage", a.cfg.Storage.Type),
		slog.Int("capabilities", len(a.registry.List())))
	return nil
}

// Addr returns the listen address after Start, or nil.
func (a *Agent) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Shutdown stops the server and background work, then releases storage and
// the tracer.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return nil
	}
	a.stopped = true
	a.logger.Info("shutting down agent")

	var errs []error
	if a.cancel != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.cancel()
		a.wg.Wait()
	}

	if err := a.closeStore(); err != nil {
		a.logger.Error("failed to close storage", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.shutdownOtel(ctx); err != nil {
		a.logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("agent shutdown complete")
	return errors.Join(errs...)
}

func (a *Agent) closeStore() error {
	if a.store == nil || !a.ownsStore {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// StreamResponse answers one prompt. An empty systemPrompt uses the
// configured one.
func (a *Agent) StreamResponse(ctx context.Context, systemPrompt, userPrompt string) <-chan domain.Fragment {
	if systemPrompt == "" {
		systemPrompt = a.cfg.Orchestrator.SystemPrompt
	}
	return a.orchestrator.StreamResponse(ctx, systemPrompt, userPrompt)
}

// Route returns where a prompt would be sent.
func (a *Agent) Route(prompt string) policy.Decision {
	return a.orchestrator.Route(prompt)
}

// Memory returns the memory service.
func (a *Agent) Memory() *memory.Service { return a.memory }

// Capabilities returns the capability registry.
func (a *Agent) Capabilities() *capability.Registry { return a.registry }

// Handler returns the HTTP handler without starting a listener.
func (a *Agent) Handler() http.Handler { return a.server.Router }

// Catalogs returns the backends that can list and switch models, keyed by
// "local" and "cloud".
func (a *Agent) Catalogs() map[string]ports.ModelCatalog {
	out := make(map[string]ports.ModelCatalog, 2)
	if c, ok := a.local.(ports.ModelCatalog); ok {
		out["local"] = c
	}
	if c, ok := a.cloud.(ports.ModelCatalog); ok {
		out["cloud"] = c
	}
	return out
}

// Provisioner returns the local backend's provisioner, or nil when the
// local backend cannot be provisioned.
func (a *Agent) Provisioner() ports.Provisioner {
	p, _ := a.local.(ports.Provisioner)
	return p
}
