package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/rpcmesh/logging"
)

// Validate checks the configuration for valid values. Returns an error with
// a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Engine.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("engine.max_steps must be >= 0, got %d", c.Engine.MaxSteps))
	}
	if c.Engine.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("engine.max_depth must be >= 0, got %d", c.Engine.MaxDepth))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	switch c.Logging.Format {
	case "json", "text":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"json\" or \"text\", got %q", c.Logging.Format))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			errs = append(errs, fmt.Errorf("rate_limit.rps must be > 0 when enabled, got %v", c.RateLimit.RPS))
		}
		if c.RateLimit.Burst <= 0 {
			errs = append(errs, fmt.Errorf("rate_limit.burst must be > 0 when enabled, got %d", c.RateLimit.Burst))
		}
	}

	for name := range c.Methods {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("methods: method name must not be empty"))
		}
	}

	return errors.Join(errs...)
}
