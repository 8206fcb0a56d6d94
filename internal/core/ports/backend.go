// Package ports defines the interfaces between the orchestrator and its
// collaborators: inference backends, capabilities, persistence, embeddings
// and the text-extraction and search environment.
package ports

import (
	"context"

	"github.com/tjfontaine/hybrid-agent/internal/core/domain"
)

// Backend is a model-serving provider.
type Backend interface {
	// Name returns the backend identifier ("local", "cloud").
	Name() string

	// Stream produces the response to req as a finite stream of fragments.
	// The channel MUST be closed by the backend when done. Every send selects
	// on ctx.Done() so an abandoned consumer stops the producer.
	// Failures are delivered as text fragments, never as a panic or a
	// dangling channel.
	Stream(ctx context.Context, req *domain.Request) <-chan domain.Fragment
}

// Generator returns a whole reply instead of a stream.
type Generator interface {
	GenerateOnce(ctx context.Context, req *domain.Request) domain.Fragment
}

// ModelCatalog lists the models a backend can serve.
type ModelCatalog interface {
	ListAvailableModels(ctx context.Context) []string
	CurrentModel() string
	SetModel(model string)
}

// ProgressFunc receives provisioning progress; fraction is in [0, 1].
type ProgressFunc func(status string, fraction float64)

// Provisioner manages a backend's locally held model resources.
type Provisioner interface {
	// Initialize loads the model on first use. Concurrent calls are serialized
	// and subsequent calls return immediately.
	Initialize(ctx context.Context) error

	// Reprovision releases the model, deletes its artifacts, fetches them
	// again and reloads, all under the same guard as Initialize.
	Reprovision(ctx context.Context, progress ProgressFunc) error
}
