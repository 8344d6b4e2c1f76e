package turn

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/embedding/mock"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/recall"
)

type convRepo struct {
	mu        sync.Mutex
	requests  []*conversation.Request
	responses []*conversation.Response
	reasoning []*conversation.Reasoning
}

func (r *convRepo) CreateRequest(_ context.Context, req *conversation.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return nil
}

func (r *convRepo) GetRequest(context.Context, uuid.UUID, string) (*conversation.Request, error) {
	return nil, nil
}

func (r *convRepo) DeleteRequest(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}

func (r *convRepo) CreateResponse(_ context.Context, res *conversation.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, res)
	return nil
}

func (r *convRepo) CreateReasoning(_ context.Context, rsn *conversation.Reasoning) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasoning = append(r.reasoning, rsn)
	return nil
}

func (r *convRepo) SearchRequests(context.Context, string, []float32, int, float64) ([]conversation.TextMatch, error) {
	return nil, nil
}

func (r *convRepo) SearchResponses(context.Context, string, []float32, int, float64) ([]conversation.TextMatch, error) {
	return nil, nil
}

type memRepo struct {
	mu      sync.Mutex
	records []*memory.Record
}

func (r *memRepo) Create(_ context.Context, rec *memory.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *memRepo) GetByID(context.Context, uuid.UUID, string) (*memory.Record, error) {
	return nil, nil
}

func (r *memRepo) Update(context.Context, *memory.Record) (bool, error) { return false, nil }

func (r *memRepo) Delete(context.Context, uuid.UUID, string) (bool, error) { return false, nil }

func (r *memRepo) DeleteByOwner(context.Context, string) (int64, error) { return 0, nil }

func (r *memRepo) SearchSimilar(context.Context, string, []float32, int, float64, memory.Category) ([]memory.SearchResult, error) {
	return nil, nil
}

func (r *memRepo) Count(context.Context, string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.records)), nil
}

type stubSource struct {
	hits []recall.Hit
	err  error
}

func (s *stubSource) Name() string { return recall.SourceMemory }

func (s *stubSource) Search(context.Context, string, []float32, int, float64) ([]recall.Hit, error) {
	return s.hits, s.err
}

func newTestHooks(t *testing.T, src recall.Source, withRedis bool) (*Hooks, *convRepo, *memRepo) {
	t.Helper()
	conv := &convRepo{}
	mem := &memRepo{}
	embedder := mock.New(8)

	var recent *conversation.RecentCache
	if withRedis {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		recent = conversation.NewRecentCache(client)
	}

	hooks := NewHooks(
		conversation.NewRecorder(conv, embedder),
		recall.NewAggregator(embedder, src),
		memory.NewService(mem, embedder, nil),
		recent,
		nil,
		Options{ContextLimit: 10, ContextMinScore: 0.25, SnippetLength: 200, RecentMessages: 20, RecentTTLSec: 3600},
	)
	return hooks, conv, mem
}

func TestBeforeTurn_RecordsAndBuildsContext(t *testing.T) {
	src := &stubSource{hits: []recall.Hit{
		{Source: recall.SourceMemory, Content: "likes dark mode", Score: 0.9},
	}}
	hooks, conv, _ := newTestHooks(t, src, false)

	result, err := hooks.BeforeTurn(context.Background(), "u1", "s1", "what theme do I use?")
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, conv.requests, 1)
	assert.Equal(t, result.RequestID, conv.requests[0].ID)
	assert.Equal(t, "what theme do I use?", conv.requests[0].Message)

	require.Len(t, result.Hits, 1)
	assert.Contains(t, result.ContextBlock, "<memory-context>")
	assert.Contains(t, result.ContextBlock, "[memory] likes dark mode")
}

func TestBeforeTurn_RecallFailureNotFatal(t *testing.T) {
	hooks, conv, _ := newTestHooks(t, &stubSource{err: assert.AnError}, false)

	result, err := hooks.BeforeTurn(context.Background(), "u1", "s1", "hello there friend")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.ContextBlock)
	assert.Len(t, conv.requests, 1, "the request is recorded even when recall fails")
}

func TestAfterTurn_RecordsAndCaptures(t *testing.T) {
	hooks, conv, mem := newTestHooks(t, &stubSource{}, false)
	reqID := uuid.New()

	msgs := []Message{
		{Role: "user", Content: "I always drink coffee in the morning"},
		{Role: "assistant", Content: "Understood, a morning coffee person.", Thinking: "the user shared a habit"},
	}
	result, err := hooks.AfterTurn(context.Background(), "u1", "s1", reqID, msgs, "test-model")
	require.NoError(t, err)

	require.Len(t, conv.responses, 1)
	assert.Equal(t, reqID, conv.responses[0].RequestID)
	require.Len(t, conv.reasoning, 1)
	assert.Equal(t, "the user shared a habit", conv.reasoning[0].Content)

	assert.Equal(t, 1, result.Captured)
	require.Len(t, mem.records, 1)
	rec := mem.records[0]
	assert.Equal(t, "I always drink coffee in the morning", rec.Content)
	assert.Equal(t, memory.CategoryPreference, rec.Category)
	assert.Equal(t, "auto_capture", rec.SourceType)
	assert.Equal(t, reqID.String(), rec.SourceID)
}

func TestAfterTurn_CapturesBothTexts(t *testing.T) {
	hooks, _, mem := newTestHooks(t, &stubSource{}, false)

	msgs := []Message{
		{Role: "user", Content: "I prefer tabs over spaces in all my projects"},
		{Role: "assistant", Content: "Remember that your linter is configured for tabs"},
	}
	result, err := hooks.AfterTurn(context.Background(), "u1", "s1", uuid.New(), msgs, "")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Captured)
	assert.Len(t, mem.records, 2)
}

func TestAfterTurn_NoCaptureNoRecords(t *testing.T) {
	hooks, conv, mem := newTestHooks(t, &stubSource{}, false)

	msgs := []Message{
		{Role: "user", Content: "What's my name?"},
		{Role: "assistant", Content: "You have not told me your name yet."},
	}
	result, err := hooks.AfterTurn(context.Background(), "u1", "s1", uuid.New(), msgs, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Captured)
	assert.Empty(t, mem.records)
	assert.Len(t, conv.responses, 1)
	assert.Empty(t, conv.reasoning, "no thinking segment, no reasoning row")
}

func TestAfterTurn_AppendsRecentWindow(t *testing.T) {
	hooks, _, _ := newTestHooks(t, &stubSource{}, true)

	msgs := []Message{
		{Role: "user", Content: "hello over there"},
		{Role: "assistant", Content: "hello to you too"},
	}
	_, err := hooks.AfterTurn(context.Background(), "u1", "s1", uuid.New(), msgs, "")
	require.NoError(t, err)

	entries, err := hooks.recent.Recent(context.Background(), "u1", "s1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "assistant", entries[1].Role)
}

func TestExtract_LastOfEachRole(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer", Thinking: "early thought"},
		{Role: "user", Content: "second question"},
		{Role: "assistant", Content: "second answer", Thinking: "late thought"},
	}
	user, assistant, thinking := extract(msgs)
	assert.Equal(t, "second question", user)
	assert.Equal(t, "second answer", assistant)
	assert.Equal(t, "late thought", thinking)
}
