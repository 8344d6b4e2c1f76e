package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Embedder EmbedderConfig
	Memory   MemoryConfig
	Auth     AuthConfig
	Log      LogConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Host string
	Port int
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig configures the optional event bus. An empty URL disables it.
type NATSConfig struct {
	URL string
}

// EmbedderConfig points at the embedding server (e5-server or compatible).
type EmbedderConfig struct {
	URL       string
	Dimension int
	Timeout   time.Duration
}

// MemoryConfig tunes search defaults and the recent-conversation window.
type MemoryConfig struct {
	SearchLimit     int
	SearchMinScore  float64
	ContextLimit    int
	ContextMinScore float64
	SnippetLength   int
	RecentMessages  int
	RecentTTLSec    int
}

type AuthConfig struct {
	Secret      string
	TokenExpiry time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		Embedder: EmbedderConfig{
			URL:       k.String("embedder.url"),
			Dimension: k.Int("embedder.dimension"),
		},
		Memory: MemoryConfig{
			SearchLimit:     k.Int("memory.search.limit"),
			SearchMinScore:  k.Float64("memory.search.min.score"),
			ContextLimit:    k.Int("memory.context.limit"),
			ContextMinScore: k.Float64("memory.context.min.score"),
			SnippetLength:   k.Int("memory.snippet.length"),
			RecentMessages:  k.Int("memory.recent.messages"),
			RecentTTLSec:    k.Int("memory.recent.ttl.sec"),
		},
		Auth: AuthConfig{
			Secret: k.String("auth.secret"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	if origins := k.String("cors.allowed.origins"); origins != "" {
		cfg.CORS.AllowedOrigins = strings.Split(origins, ",")
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "mnemo"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "mnemo"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Embedder.URL == "" {
		cfg.Embedder.URL = "http://127.0.0.1:8765"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 1024
	}
	if cfg.Memory.SearchLimit == 0 {
		cfg.Memory.SearchLimit = 5
	}
	if cfg.Memory.SearchMinScore == 0 {
		cfg.Memory.SearchMinScore = 0.3
	}
	if cfg.Memory.ContextLimit == 0 {
		cfg.Memory.ContextLimit = 10
	}
	if cfg.Memory.ContextMinScore == 0 {
		cfg.Memory.ContextMinScore = 0.25
	}
	if cfg.Memory.SnippetLength == 0 {
		cfg.Memory.SnippetLength = 200
	}
	if cfg.Memory.RecentMessages == 0 {
		cfg.Memory.RecentMessages = 20
	}
	if cfg.Memory.RecentTTLSec == 0 {
		cfg.Memory.RecentTTLSec = 3600
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	embedTimeoutStr := k.String("embedder.timeout")
	if embedTimeoutStr == "" {
		embedTimeoutStr = "30s"
	}
	cfg.Embedder.Timeout, err = time.ParseDuration(embedTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing embedder timeout: %w", err)
	}

	tokenExpiryStr := k.String("auth.token.expiry")
	if tokenExpiryStr == "" {
		tokenExpiryStr = "720h"
	}
	cfg.Auth.TokenExpiry, err = time.ParseDuration(tokenExpiryStr)
	if err != nil {
		return nil, fmt.Errorf("parsing auth token expiry: %w", err)
	}

	return cfg, nil
}
