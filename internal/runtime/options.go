package runtime

import (
	"log/slog"
	"net/http"

	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
)

// Option is a functional option for configuring an Agent.
type Option func(*Agent) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) error {
		a.logger = logger
		return nil
	}
}

// WithStore uses a caller-owned store instead of the one named by
// storage.type. The agent does not close it on Shutdown.
func WithStore(store ports.Store) Option {
	return func(a *Agent) error {
		a.store = store
		a.ownsStore = false
		return nil
	}
}

// WithBackends replaces the Ollama and Gemini backends. Backends that also
// implement ports.ModelCatalog or ports.Provisioner are exposed as such.
func WithBackends(local, cloud ports.Backend) Option {
	return func(a *Agent) error {
		a.local = local
		a.cloud = cloud
		return nil
	}
}

// WithEmbedder replaces the embedder named by embedding.provider.
func WithEmbedder(embedder ports.Embedder) Option {
	return func(a *Agent) error {
		a.embedder = embedder
		return nil
	}
}

// WithConsentPolicy decides whether unsafe capabilities may run. The
// default allows every call.
func WithConsentPolicy(policy ports.ConsentPolicy) Option {
	return func(a *Agent) error {
		a.consent = policy
		return nil
	}
}

// WithHTTPClient sets the client used for Gemini, Ollama and web search
// requests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Agent) error {
		a.httpClient = client
		return nil
	}
}
