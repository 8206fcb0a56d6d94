package runtime

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/hybrid-agent/internal/api/gemini"
	"github.com/tjfontaine/hybrid-agent/internal/api/ollama"
	"github.com/tjfontaine/hybrid-agent/internal/backend/cloud"
	"github.com/tjfontaine/hybrid-agent/internal/backend/local"
	"github.com/tjfontaine/hybrid-agent/internal/capability/builtin"
	"github.com/tjfontaine/hybrid-agent/internal/config"
	"github.com/tjfontaine/hybrid-agent/internal/core/ports"
	"github.com/tjfontaine/hybrid-agent/internal/embedding"
	"github.com/tjfontaine/hybrid-agent/internal/extract"
	"github.com/tjfontaine/hybrid-agent/internal/pkg/safehttp"
	"github.com/tjfontaine/hybrid-agent/internal/search"
	"github.com/tjfontaine/hybrid-agent/internal/storage/memory"
	"github.com/tjfontaine/hybrid-agent/internal/storage/redis"
	"github.com/tjfontaine/hybrid-agent/internal/storage/sqlite"
)

func openStore(cfg config.StorageConfig) (ports.Store, error) {
	switch cfg.Type {
	case "sqlite":
		store, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return memory.New(), nil
	case "redis":
		return redis.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithMaxHistory(cfg.Redis.MaxHistory),
		), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func newLocalBackend(cfg config.LocalConfig, client *http.Client, logger *slog.Logger) *local.Backend {
	opts := []local.Option{
		local.WithBaseURL(cfg.Endpoint),
		local.WithModel(cfg.Model),
		local.WithMaxTokens(cfg.MaxTokens),
		local.WithLogger(logger),
	}
	if client != nil {
		opts = append(opts, local.WithHTTPClient(client))
	}
	return local.New(opts...)
}

func newCloudBackend(cfg config.CloudConfig, decls cloud.Declarations, client *http.Client, logger *slog.Logger) *cloud.Backend {
	opts := []cloud.Option{
		cloud.WithBaseURL(cfg.BaseURL),
		cloud.WithModel(cfg.Model),
		cloud.WithDeclarations(decls),
		cloud.WithWordDelay(cfg.WordDelay),
		cloud.WithMaxOutputTokens(cfg.MaxOutputTokens),
		cloud.WithLogger(logger),
	}
	if client != nil {
		opts = append(opts, cloud.WithHTTPClient(client))
	}
	return cloud.New(cfg.APIKey, opts...)
}

func newEmbedder(cfg *config.Config, client *http.Client) (ports.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "gemini":
		var opts []gemini.ClientOption
		if cfg.Cloud.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Cloud.BaseURL))
		}
		if client != nil {
			opts = append(opts, gemini.WithHTTPClient(client))
		}
		return embedding.NewGemini(gemini.NewClient(cfg.Embedding.APIKey, opts...), cfg.Embedding.Model), nil
	case "ollama":
		var opts []ollama.ClientOption
		if cfg.Local.Endpoint != "" {
			opts = append(opts, ollama.WithBaseURL(cfg.Local.Endpoint))
		}
		if client != nil {
			opts = append(opts, ollama.WithHTTPClient(client))
		}
		return embedding.NewOllama(ollama.NewClient(opts...), cfg.Embedding.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// registerBuiltins adds the extraction, search and memory capabilities.
// An extractor whose command is unset is left out.
func (a *Agent) registerBuiltins() {
	caps := a.cfg.Capabilities

	if ocr, err := extract.NewCommand(caps.OCRCommand, caps.ExtractTimeout, a.logger); err == nil {
		a.registry.Register(builtin.NewReadTextFromImage(ocr))
	} else {
		a.logger.Warn("image text extraction disabled", slog.String("error", err.Error()))
	}
	if stt, err := extract.NewCommand(caps.TranscribeCommand, caps.ExtractTimeout, a.logger); err == nil {
		a.registry.Register(builtin.NewTranscribeAudioFile(stt))
	} else {
		a.logger.Warn("audio transcription disabled", slog.String("error", err.Error()))
	}

	if caps.WebSearch {
		opts := []search.Option{search.WithLogger(a.logger)}
		if caps.SearchEndpoint != "" {
			opts = append(opts, search.WithEndpoint(caps.SearchEndpoint))
		}
		client := a.httpClient
		if client == nil {
			client = safehttp.NewClient(0)
		}
		opts = append(opts, search.WithHTTPClient(client))
		a.registry.Register(builtin.NewWebSearch(search.NewDuckDuckGo(opts...)))
	}

	a.registry.Register(builtin.NewRemember(a.memory))
	a.registry.Register(builtin.NewRecall(a.memory, a.cfg.Memory.Limit, a.cfg.Memory.Threshold))
}
