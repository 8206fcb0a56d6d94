// Package config loads the agent configuration from an optional YAML file
// and AGENT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every configuration environment variable. Nested keys
// are separated by "__", e.g. AGENT_CLOUD__API_KEY.
const EnvPrefix = "AGENT_"

// DefaultPath is read when no path is given and the file exists.
const DefaultPath = "config.yaml"

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
	Storage      StorageConfig      `koanf:"storage"`
	Routing      RoutingConfig      `koanf:"routing"`
	Safety       SafetyConfig       `koanf:"safety"`
	Local        LocalConfig        `koanf:"local"`
	Cloud        CloudConfig        `koanf:"cloud"`
	Embedding    EmbeddingConfig    `koanf:"embedding"`
	Memory       MemoryConfig       `koanf:"memory"`
	History      HistoryConfig      `koanf:"history"`
	Capabilities CapabilitiesConfig `koanf:"capabilities"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	RequestTimeout  time.Duration `koanf:"request_timeout"` // non-streaming routes
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, redis
	SQLite SQLiteConfig `koanf:"sqlite"`
	Redis  RedisConfig  `koanf:"redis"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type RedisConfig struct {
	Address    string `koanf:"address"`
	Password   string `koanf:"password"`
	DB         int    `koanf:"db"`
	Prefix     string `koanf:"prefix"`
	MaxHistory int    `koanf:"max_history"`
}

type RoutingConfig struct {
	MaxLocalLength int      `koanf:"max_local_length"`
	LocalKeywords  []string `koanf:"local_keywords"`
}

type SafetyConfig struct {
	ExtraPatterns []string `koanf:"extra_patterns"`
}

type LocalConfig struct {
	Endpoint  string `koanf:"endpoint"`
	Model     string `koanf:"model"`
	MaxTokens int    `koanf:"max_tokens"`
}

type CloudConfig struct {
	APIKey          string        `koanf:"api_key"`
	BaseURL         string        `koanf:"base_url"`
	Model           string        `koanf:"model"`
	WordDelay       time.Duration `koanf:"word_delay"`
	MaxOutputTokens int           `koanf:"max_output_tokens"`
}

type EmbeddingConfig struct {
	Provider string `koanf:"provider"` // gemini, ollama
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
}

type MemoryConfig struct {
	Limit     int     `koanf:"limit"`
	Threshold float64 `koanf:"threshold"`
}

type HistoryConfig struct {
	Window    int `koanf:"window"`
	MaxTokens int `koanf:"max_tokens"` // 0 disables trimming
}

type CapabilitiesConfig struct {
	SkillsDir         string        `koanf:"skills_dir"`
	WatchSkills       bool          `koanf:"watch_skills"`
	SkillTimeout      time.Duration `koanf:"skill_timeout"`
	OCRCommand        []string      `koanf:"ocr_command"`
	TranscribeCommand []string      `koanf:"transcribe_command"`
	ExtractTimeout    time.Duration `koanf:"extract_timeout"`
	WebSearch         bool          `koanf:"web_search"`
	SearchEndpoint    string        `koanf:"search_endpoint"`
}

type OrchestratorConfig struct {
	SystemPrompt  string `koanf:"system_prompt"`
	MaxToolRounds int    `koanf:"max_tool_rounds"`
}

var defaults = map[string]any{
	"server.host":                     "127.0.0.1",
	"server.port":                     8080,
	"server.request_timeout":          "60s",
	"server.shutdown_timeout":         "10s",
	"logging.level":                   "info",
	"logging.format":                  "text",
	"telemetry.service_name":          "hybrid-agent",
	"storage.type":                    "sqlite",
	"storage.sqlite.path":             "agent.db",
	"storage.redis.address":           "127.0.0.1:6379",
	"storage.redis.prefix":            "agent:",
	"routing.max_local_length":        50,
	"routing.local_keywords":          []string{"time"},
	"local.endpoint":                  "http://127.0.0.1:11434",
	"local.model":                     "phi3:mini",
	"local.max_tokens":                2048,
	"cloud.model":                     "gemini-2.0-flash-lite",
	"embedding.provider":              "gemini",
	"memory.limit":                    3,
	"memory.threshold":                0.6,
	"history.window":                  20,
	"capabilities.skills_dir":         "skills",
	"capabilities.watch_skills":       true,
	"capabilities.skill_timeout":      "15s",
	"capabilities.ocr_command":        []string{"tesseract", "{file}", "stdout"},
	"capabilities.transcribe_command": []string{"whisper-cli", "-nt", "-f", "{file}"},
	"capabilities.extract_timeout":    "60s",
	"capabilities.web_search":         true,
	"orchestrator.system_prompt":      "You are a helpful personal assistant. Use the available tools when they help answer the user.",
	"orchestrator.max_tool_rounds":    5,
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (DefaultPath when empty; a missing file is fine), then
// AGENT_ environment variables, then fills defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, value); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Cloud.APIKey = substituteEnvVars(cfg.Cloud.APIKey)
	cfg.Embedding.APIKey = substituteEnvVars(cfg.Embedding.APIKey)
	cfg.Storage.Redis.Password = substituteEnvVars(cfg.Storage.Redis.Password)

	// Legacy variable from earlier releases.
	if cfg.Cloud.APIKey == "" {
		cfg.Cloud.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.Cloud.APIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can serve.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "sqlite", "memory", "redis":
	default:
		return fmt.Errorf("storage.type %q: want sqlite, memory or redis", c.Storage.Type)
	}
	switch c.Embedding.Provider {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("embedding.provider %q: want gemini or ollama", c.Embedding.Provider)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q: want json or text", c.Logging.Format)
	}
	if c.Memory.Threshold < -1 || c.Memory.Threshold > 1 {
		return fmt.Errorf("memory.threshold %v: want a value in [-1, 1]", c.Memory.Threshold)
	}
	if c.Orchestrator.MaxToolRounds < 0 {
		return fmt.Errorf("orchestrator.max_tool_rounds %d: must not be negative", c.Orchestrator.MaxToolRounds)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
