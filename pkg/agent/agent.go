// Package agent provides the public API for embedding the hybrid agent.
// This is the stable API for external consumers.
package agent

import (
	"github.com/tjfontaine/hybrid-agent/internal/config"
	"github.com/tjfontaine/hybrid-agent/internal/runtime"
)

// Agent is the assembled runtime.
// See internal/runtime.Agent for full documentation.
type Agent = runtime.Agent

// Config is the full agent configuration.
type Config = config.Config

// Option is a functional option for configuring an Agent.
type Option = runtime.Option

// New creates an Agent from cfg.
// Example:
//
//	cfg, err := agent.LoadConfig("config.yaml")
//	if err != nil {
//	    return err
//	}
//	a, err := agent.New(cfg, agent.WithLogger(logger))
var New = runtime.New

// LoadConfig reads a YAML file (config.yaml when path is empty) and
// AGENT_ environment variables.
var LoadConfig = config.Load

// Configuration options
var (
	WithLogger        = runtime.WithLogger
	WithStore         = runtime.WithStore
	WithBackends      = runtime.WithBackends
	WithEmbedder      = runtime.WithEmbedder
	WithConsentPolicy = runtime.WithConsentPolicy
	WithHTTPClient    = runtime.WithHTTPClient
)
