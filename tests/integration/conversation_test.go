//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/conversation"
)

func TestConversation_RecordAndDelete(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	owner := uniqueOwner("conv")
	token := env.Token(t, owner)

	req, err := env.Recorder.RecordRequest(ctx, owner, conversation.RequestInput{
		SessionID: "sess-1",
		Message:   "how do I rotate my API keys?",
	})
	require.NoError(t, err)
	require.NotEmpty(t, req.Embedding, "request text must be embedded on the way in")

	resp, err := env.Recorder.RecordResponse(ctx, req.ID, conversation.ResponseInput{
		Response:  "Open the settings page and click rotate under API keys.",
		Summary:   "Explained API key rotation via the settings page.",
		ModelUsed: "test-model",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SummaryEmbedding, "summary is the preferred search surface")

	rsn, err := env.Recorder.RecordReasoning(ctx, req.ID, conversation.ReasoningInput{
		Content:   "The user is asking about key rotation, point at settings.",
		ModelUsed: "test-model",
	})
	require.NoError(t, err)
	require.NotNil(t, rsn)

	// A second request for the same owner must survive the cascade below.
	other, err := env.Recorder.RecordRequest(ctx, owner, conversation.RequestInput{
		SessionID: "sess-1",
		Message:   "thanks, that worked",
	})
	require.NoError(t, err)

	// Delete over HTTP; responses and reasoning go with the request.
	httpResp := DoRequest(t, env, "DELETE", "/api/v1/requests/"+req.ID.String(), nil, token)
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	httpResp = DoRequest(t, env, "GET", "/api/v1/requests/"+req.ID.String(), nil, token)
	assert.Equal(t, http.StatusNotFound, httpResp.StatusCode)

	httpResp = DoRequest(t, env, "GET", "/api/v1/requests/"+other.ID.String(), nil, token)
	assert.Equal(t, http.StatusOK, httpResp.StatusCode, "unrelated requests are untouched")
}

func TestConversation_DeleteIsOwnerScoped(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()
	owner := uniqueOwner("conv-own")
	intruder := env.Token(t, uniqueOwner("conv-intruder"))

	req, err := env.Recorder.RecordRequest(ctx, owner, conversation.RequestInput{
		SessionID: "sess-2",
		Message:   "remember where I parked",
	})
	require.NoError(t, err)

	httpResp := DoRequest(t, env, "DELETE", "/api/v1/requests/"+req.ID.String(), nil, intruder)
	assert.Equal(t, http.StatusNotFound, httpResp.StatusCode)

	// Still there for the real owner.
	httpResp = DoRequest(t, env, "GET", "/api/v1/requests/"+req.ID.String(), nil, env.Token(t, owner))
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)
}
