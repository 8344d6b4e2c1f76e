package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "mnemo",
			Password: "secret", Name: "mnemo", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Embedder: EmbedderConfig{
			URL: "http://127.0.0.1:8765", Dimension: 1024, Timeout: 30 * time.Second,
		},
		Memory: MemoryConfig{
			SearchLimit: 5, SearchMinScore: 0.3,
			ContextLimit: 10, ContextMinScore: 0.25,
			SnippetLength: 200, RecentMessages: 20, RecentTTLSec: 3600,
		},
		Auth: AuthConfig{
			Secret:      "auth-secret-that-is-at-least-32-chars!!!",
			TokenExpiry: 720 * time.Hour,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_AuthSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Secret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AUTH_SECRET") {
		t.Fatalf("expected AUTH_SECRET error, got: %v", err)
	}
}

func TestValidate_MissingDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_BadEmbedderDimension(t *testing.T) {
	cfg := validConfig()
	cfg.Embedder.Dimension = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "EMBEDDER_DIMENSION") {
		t.Fatalf("expected EMBEDDER_DIMENSION error, got: %v", err)
	}
}

func TestValidate_MinScoreOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Memory.ContextMinScore = 1.5
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MEMORY_CONTEXT_MIN_SCORE") {
		t.Fatalf("expected MEMORY_CONTEXT_MIN_SCORE error, got: %v", err)
	}
}

func TestValidate_BadServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected SERVER_PORT error, got: %v", err)
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Secret = ""
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "AUTH_SECRET") || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected both errors reported, got: %v", err)
	}
}
