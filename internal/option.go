package internal

import "github.com/varga/lapse/internal/engine"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	engine engine.Engine
	mcp    bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithEngine overrides the acquisition engine (tests inject fakes here).
func WithEngine(eng engine.Engine) Option {
	return func(a *application) {
		a.engine = eng
	}
}

// WithMCP switches the application into MCP stdio-server mode instead of
// serving HTTP.
func WithMCP(enabled bool) Option {
	return func(a *application) {
		a.mcp = enabled
	}
}
