package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mnemo-ai/mnemo/internal/api"
	"github.com/mnemo-ai/mnemo/internal/auth"
	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/database"
	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/events"
	"github.com/mnemo-ai/mnemo/internal/files"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/middleware"
	"github.com/mnemo-ai/mnemo/internal/recall"
	iredis "github.com/mnemo-ai/mnemo/internal/redis"
	"github.com/mnemo-ai/mnemo/internal/server"
	"github.com/mnemo-ai/mnemo/internal/stats"
	"github.com/mnemo-ai/mnemo/internal/turn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis (recent-conversation window + rate limiting)
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Event bus (optional)
	var eventsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		eventsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		publisher = events.NewPublisher(eventsClient.JetStream())
	}

	// Embedding provider
	embedder := embedding.NewE5Client(cfg.Embedder)
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := embedder.Health(healthCtx); err != nil {
		slog.Warn("embedding provider not ready, continuing degraded", "error", err)
	}
	cancel()

	// Memory engine
	memoryRepo := memory.NewPostgresRepository(pool)
	memorySvc := memory.NewService(memoryRepo, embedder, publisher)
	memoryHandler := memory.NewHandler(memorySvc)

	// Conversation trail
	convRepo := conversation.NewPostgresRepository(pool)
	recorder := conversation.NewRecorder(convRepo, embedder)
	convHandler := conversation.NewHandler(recorder)
	recentCache := conversation.NewRecentCache(redisClient)

	// Files
	fileRepo := files.NewPostgresRepository(pool)
	fileSvc := files.NewService(fileRepo, embedder)
	fileHandler := files.NewHandler(fileSvc)

	// Unified context search
	aggregator := recall.NewAggregator(embedder,
		recall.NewMemorySource(memoryRepo),
		recall.NewRequestSource(convRepo),
		recall.NewResponseSource(convRepo),
		recall.NewFileChunkSource(fileRepo),
	)
	recallHandler := recall.NewHandler(aggregator)

	// Turn hooks
	hooks := turn.NewHooks(recorder, aggregator, memorySvc, recentCache, publisher, turn.Options{
		ContextLimit:    cfg.Memory.ContextLimit,
		ContextMinScore: cfg.Memory.ContextMinScore,
		SnippetLength:   cfg.Memory.SnippetLength,
		RecentMessages:  cfg.Memory.RecentMessages,
		RecentTTLSec:    cfg.Memory.RecentTTLSec,
	})
	turnHandler := turn.NewHandler(hooks)

	// Stats read model
	statsReader := stats.NewReader(pool)
	statsHandler := func(w http.ResponseWriter, r *http.Request) {
		s, err := statsReader.Read(r.Context())
		if err != nil {
			slog.Error("reading stats", "error", err)
			api.HandleError(w, err)
			return
		}
		api.JSON(w, http.StatusOK, s)
	}

	// Auth
	manager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.TokenExpiry)

	// Search endpoints share an owner-keyed rate limit
	searchLimiter := middleware.NewRateLimiter(redisClient, "ratelimit:search", 60, 60)

	embedderCheck := func() error {
		hctx, hcancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer hcancel()
		return embedder.Health(hctx)
	}

	router := api.NewRouter(pool, eventsClient, embedderCheck, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		SearchRateLimiter: searchLimiter.Middleware(func(r *http.Request) string {
			if owner := auth.OwnerFromContext(r.Context()); owner != "" {
				return owner
			}
			return middleware.ClientIP(r)
		}),
	}, api.HandlerSet{
		StoreMemory:    memoryHandler.Store,
		SearchMemories: memoryHandler.Search,
		GetMemory:      memoryHandler.Get,
		UpdateMemory:   memoryHandler.Update,
		ForgetMemory:   memoryHandler.Forget,
		ForgetByQuery:  memoryHandler.ForgetByQuery,
		ForgetAll:      memoryHandler.ForgetAll,
		CountMemories:  memoryHandler.Count,

		SearchContext: recallHandler.SearchContext,

		BeforeTurn: turnHandler.Before,
		AfterTurn:  turnHandler.After,

		GetRequest:    convHandler.GetRequest,
		DeleteRequest: convHandler.DeleteRequest,

		IngestFile:       fileHandler.Ingest,
		ListFiles:        fileHandler.List,
		GetFile:          fileHandler.Get,
		DeleteFile:       fileHandler.Delete,
		SearchFileChunks: fileHandler.SearchChunks,

		GetStats: statsHandler,

		AuthMiddleware: auth.Middleware(manager),
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
