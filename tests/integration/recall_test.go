//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/files"
	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/internal/recall"
)

// Seeds one record per source kind and checks the merged search sees
// them all, scoped to the owner.
func TestRecall_SearchAllSources(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	owner := uniqueOwner("recall")

	const text = "the deployment pipeline runs on self-hosted runners"

	_, err := env.MemorySvc.Store(ctx, owner, memory.StoreInput{
		Content: text, Category: memory.CategoryFact,
		Importance: 0.7, Confidence: 1.0,
	})
	require.NoError(t, err)

	req, err := env.Recorder.RecordRequest(ctx, owner, conversation.RequestInput{
		SessionID: "sess-r",
		Message:   text,
	})
	require.NoError(t, err)

	_, err = env.Recorder.RecordResponse(ctx, req.ID, conversation.ResponseInput{
		Response: "Yes, and the runners autoscale.",
		Summary:  text,
	})
	require.NoError(t, err)

	_, err = env.FileSvc.Ingest(ctx, owner, files.IngestInput{
		FileName: "runbook.md",
		Text:     text,
	})
	require.NoError(t, err)

	hits, err := env.Aggregator.SearchAll(ctx, owner, text, 10, 0.2)
	require.NoError(t, err)
	require.Len(t, hits, 4, "one hit per source for identical text")

	seen := map[string]bool{}
	for _, h := range hits {
		seen[h.Source] = true
		assert.InDelta(t, 1.0, h.Score, 0.01)
	}
	assert.True(t, seen[recall.SourceMemory])
	assert.True(t, seen[recall.SourceRequest])
	assert.True(t, seen[recall.SourceResponse])
	assert.True(t, seen[recall.SourceFileChunk])

	// A different owner sees nothing.
	hits, err = env.Aggregator.SearchAll(ctx, uniqueOwner("recall-other"), text, 10, 0.2)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRecall_HTTPContextSearch(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	owner := uniqueOwner("recall-http")
	token := env.Token(t, owner)

	_, err := env.MemorySvc.Store(ctx, owner, memory.StoreInput{
		Content: "I take my standup at 9:30", Category: memory.CategoryPreference,
		Importance: 0.6, Confidence: 1.0,
	})
	require.NoError(t, err)

	resp := DoRequest(t, env, "POST", "/api/v1/context/search", map[string]any{
		"query": "I take my standup at 9:30",
		"limit": 5,
	}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := ParseResponse(t, resp)
	hits := result["data"].([]any)
	require.Len(t, hits, 1)
	assert.Equal(t, "memory", hits[0].(map[string]any)["source"])
}

func TestRecall_FileChunkSearch(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	owner := uniqueOwner("chunks")

	file, err := env.FileSvc.Ingest(ctx, owner, files.IngestInput{
		FileName: "notes.md",
		Text: "# Backups\n\nNightly backups land in the cold bucket.\n\n" +
			"# Restores\n\nRestores need a ticket and two approvals.",
	})
	require.NoError(t, err)
	require.Greater(t, file.ChunkCount, 0)

	matches, err := env.FileSvc.SearchChunks(ctx, owner, "Nightly backups land in the cold bucket.", 5, 0.2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "notes.md", matches[0].FileName)

	// Deleting the file takes its chunks out of search.
	deleted, err := env.FileSvc.Delete(ctx, owner, file.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	matches, err = env.FileSvc.SearchChunks(ctx, owner, "Nightly backups land in the cold bucket.", 5, 0.2)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
