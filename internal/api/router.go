package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mnemo-ai/mnemo/internal/database"
	"github.com/mnemo-ai/mnemo/internal/events"
	mw "github.com/mnemo-ai/mnemo/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid
// import cycles.
type HandlerSet struct {
	// Memory handlers
	StoreMemory    http.HandlerFunc
	SearchMemories http.HandlerFunc
	GetMemory      http.HandlerFunc
	UpdateMemory   http.HandlerFunc
	ForgetMemory   http.HandlerFunc
	ForgetByQuery  http.HandlerFunc
	ForgetAll      http.HandlerFunc
	CountMemories  http.HandlerFunc

	// Unified context search
	SearchContext http.HandlerFunc

	// Turn hooks
	BeforeTurn http.HandlerFunc
	AfterTurn  http.HandlerFunc

	// Conversation trail
	GetRequest    http.HandlerFunc
	DeleteRequest http.HandlerFunc

	// Files
	IngestFile       http.HandlerFunc
	ListFiles        http.HandlerFunc
	GetFile          http.HandlerFunc
	DeleteFile       http.HandlerFunc
	SearchFileChunks http.HandlerFunc

	// Aggregate stats
	GetStats http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	SearchRateLimiter  func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, eventsClient *events.Client, embedderCheck func() error, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe, always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe: storage, event bus, embedding provider
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"events":   "healthy",
			"embedder": "healthy",
		}
		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if eventsClient != nil && !eventsClient.Healthy() {
			health["events"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if eventsClient == nil {
			health["events"] = "not configured"
		}

		if embedderCheck != nil {
			if err := embedderCheck(); err != nil {
				// Degraded, not down: the engine records without vectors
				// while the provider is away.
				health["embedder"] = "unhealthy"
				health["status"] = "degraded"
			}
		} else {
			health["embedder"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1, all routes owner-scoped via the auth middleware
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Route("/memories", func(r chi.Router) {
				r.Post("/", h.StoreMemory)
				r.Post("/search", h.SearchMemories)
				r.Post("/forget", h.ForgetByQuery)
				r.Get("/count", h.CountMemories)
				r.Delete("/", h.ForgetAll)
				r.Get("/{memoryID}", h.GetMemory)
				r.Put("/{memoryID}", h.UpdateMemory)
				r.Delete("/{memoryID}", h.ForgetMemory)
			})

			r.Route("/context", func(r chi.Router) {
				if cfg.SearchRateLimiter != nil {
					r.Use(cfg.SearchRateLimiter)
				}
				r.Post("/search", h.SearchContext)
			})

			r.Route("/turns", func(r chi.Router) {
				r.Post("/before", h.BeforeTurn)
				r.Post("/after", h.AfterTurn)
			})

			r.Route("/requests", func(r chi.Router) {
				r.Get("/{requestID}", h.GetRequest)
				r.Delete("/{requestID}", h.DeleteRequest)
			})

			r.Route("/files", func(r chi.Router) {
				r.Post("/", h.IngestFile)
				r.Get("/", h.ListFiles)
				r.Post("/search", h.SearchFileChunks)
				r.Get("/{fileID}", h.GetFile)
				r.Delete("/{fileID}", h.DeleteFile)
			})

			r.Get("/stats", h.GetStats)
		})
	})

	return r
}
