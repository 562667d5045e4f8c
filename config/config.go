// Package config loads rpcmesh configuration from YAML with environment
// variable overrides.
package config

import (
	"github.com/hupe1980/rpcmesh/engine"
	"github.com/hupe1980/rpcmesh/logging"
)

// Config is the top-level configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	// Methods maps method names to static results served by a scaffold
	// at the end of the stack.
	Methods map[string]any `yaml:"methods"`
}

// EngineConfig mirrors engine.Config.
type EngineConfig struct {
	RequireEnd bool `yaml:"require_end"`
	MaxSteps   int  `yaml:"max_steps"`
	MaxDepth   int  `yaml:"max_depth"`
}

// LoggingConfig selects level and output format of the logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// RateLimitConfig configures per-method token buckets.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// MetricsConfig toggles Prometheus request metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			RequireEnd: engine.DefaultConfig.RequireEnd,
			MaxSteps:   engine.DefaultConfig.MaxSteps,
			MaxDepth:   engine.DefaultConfig.MaxDepth,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			RPS:   50,
			Burst: 100,
		},
	}
}

// EngineOptions converts the engine section to engine.Config.
func (c *Config) EngineOptions() engine.Config {
	return engine.Config{
		RequireEnd: c.Engine.RequireEnd,
		MaxSteps:   c.Engine.MaxSteps,
		MaxDepth:   c.Engine.MaxDepth,
	}
}

// Logger builds a logger from the logging section. The level must have
// passed validation.
func (c *Config) Logger() *logging.RPCLogger {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.NewSlogLogger(level, c.Logging.Format, c.Logging.AddSource).WithComponent("rpcmesh")
}
