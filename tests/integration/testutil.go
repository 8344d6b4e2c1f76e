//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mnemo-ai/mnemo/internal/api"
	"github.com/mnemo-ai/mnemo/internal/auth"
	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/database"
	"github.com/mnemo-ai/mnemo/internal/embedding/mock"
	"github.com/mnemo-ai/mnemo/internal/files"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/recall"
	"github.com/mnemo-ai/mnemo/internal/stats"
	"github.com/mnemo-ai/mnemo/internal/turn"
)

// embeddingDim matches the vector column width in the migrations.
const embeddingDim = 1024

type TestEnv struct {
	Pool       *pgxpool.Pool
	Embedder   *mock.Embedder
	MemorySvc  *memory.Service
	Recorder   *conversation.Recorder
	FileSvc    *files.Service
	Aggregator *recall.Aggregator
	Stats      *stats.Reader
	Server     *httptest.Server
	Auth       *auth.Manager
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:0.8.1-pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "mnemo_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/mnemo_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := database.RunMigrations(dsn, migrationsPath()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	embedder := mock.New(embeddingDim)

	memoryRepo := memory.NewPostgresRepository(pool)
	memorySvc := memory.NewService(memoryRepo, embedder, nil)
	memoryHandler := memory.NewHandler(memorySvc)

	convRepo := conversation.NewPostgresRepository(pool)
	recorder := conversation.NewRecorder(convRepo, embedder)
	convHandler := conversation.NewHandler(recorder)

	fileRepo := files.NewPostgresRepository(pool)
	fileSvc := files.NewService(fileRepo, embedder)
	fileHandler := files.NewHandler(fileSvc)

	aggregator := recall.NewAggregator(embedder,
		recall.NewMemorySource(memoryRepo),
		recall.NewRequestSource(convRepo),
		recall.NewResponseSource(convRepo),
		recall.NewFileChunkSource(fileRepo),
	)
	recallHandler := recall.NewHandler(aggregator)

	hooks := turn.NewHooks(recorder, aggregator, memorySvc, nil, nil, turn.Options{
		ContextLimit:    10,
		ContextMinScore: 0.25,
		SnippetLength:   200,
	})
	turnHandler := turn.NewHandler(hooks)

	statsReader := stats.NewReader(pool)
	statsHandler := func(w http.ResponseWriter, r *http.Request) {
		s, err := statsReader.Read(r.Context())
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.JSON(w, http.StatusOK, s)
	}

	manager := auth.NewManager("test-token-secret-32-chars-long!", 15*time.Minute)

	router := api.NewRouter(pool, nil, nil, api.RouterConfig{}, api.HandlerSet{
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

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:       pool,
		Embedder:   embedder,
		MemorySvc:  memorySvc,
		Recorder:   recorder,
		FileSvc:    fileSvc,
		Aggregator: aggregator,
		Stats:      statsReader,
		Server:     server,
		Auth:       manager,
	}
	return testEnv
}

// Token issues a bearer token for the given owner.
func (e *TestEnv) Token(t *testing.T, owner string) string {
	t.Helper()
	token, err := e.Auth.Issue(owner)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	return token.AccessToken
}

// DoRequest sends a JSON request against the test server.
func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sending request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ParseResponse decodes the response body as a generic JSON object.
func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return result
}

var ownerSeq atomic.Int64

// uniqueOwner returns a fresh owner id so tests never share state.
func uniqueOwner(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, ownerSeq.Add(1))
}

func migrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
