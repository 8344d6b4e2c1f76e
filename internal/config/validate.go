package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Auth secret
	if len(c.Auth.Secret) < 32 {
		errs = append(errs, "AUTH_SECRET must be at least 32 characters")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Embedder
	if c.Embedder.Dimension < 1 {
		errs = append(errs, fmt.Sprintf("EMBEDDER_DIMENSION must be positive, got %d", c.Embedder.Dimension))
	}
	if c.Embedder.URL == "" {
		errs = append(errs, "EMBEDDER_URL is required")
	}

	// Score cutoffs must stay within the similarity range
	if c.Memory.SearchMinScore < 0 || c.Memory.SearchMinScore > 1 {
		errs = append(errs, fmt.Sprintf("MEMORY_SEARCH_MIN_SCORE must be in [0,1], got %g", c.Memory.SearchMinScore))
	}
	if c.Memory.ContextMinScore < 0 || c.Memory.ContextMinScore > 1 {
		errs = append(errs, fmt.Sprintf("MEMORY_CONTEXT_MIN_SCORE must be in [0,1], got %g", c.Memory.ContextMinScore))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
