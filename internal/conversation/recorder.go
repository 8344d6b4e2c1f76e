package conversation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/embedding"
)

// Recorder persists the request/response/reasoning trail of a turn.
// Callers may pass embeddings they already computed; when absent the
// recorder embeds as a passage itself, but a failed embedding never
// blocks the insert: the row is stored without a vector and simply
// stays out of similarity ranking.
type Recorder struct {
	repo     Repository
	embedder embedding.Embedder
}

func NewRecorder(repo Repository, embedder embedding.Embedder) *Recorder {
	return &Recorder{repo: repo, embedder: embedder}
}

// RequestInput carries the caller-supplied fields of a new request row.
type RequestInput struct {
	SessionID      string
	Message        string
	Embedding      []float32
	HasAttachments bool
	ExternalRefs   map[string]string
}

func (r *Recorder) RecordRequest(ctx context.Context, ownerID string, in RequestInput) (*Request, error) {
	req := &Request{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		SessionID:      in.SessionID,
		Message:        in.Message,
		Embedding:      in.Embedding,
		HasAttachments: in.HasAttachments,
		ExternalRefs:   in.ExternalRefs,
	}
	if req.Embedding == nil {
		req.Embedding = r.embedPassage(ctx, in.Message, "request")
	}
	if err := r.repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ResponseInput carries the caller-supplied fields of a new response row.
type ResponseInput struct {
	Response         string
	Embedding        []float32
	Summary          string
	SummaryEmbedding []float32
	Feedback         *int16
	ModelUsed        string
	InputTokens      int
	OutputTokens     int
}

func (r *Recorder) RecordResponse(ctx context.Context, requestID uuid.UUID, in ResponseInput) (*Response, error) {
	res := &Response{
		ID:               uuid.New(),
		RequestID:        requestID,
		Response:         in.Response,
		Embedding:        in.Embedding,
		Summary:          in.Summary,
		SummaryEmbedding: in.SummaryEmbedding,
		Feedback:         in.Feedback,
		ModelUsed:        in.ModelUsed,
		InputTokens:      in.InputTokens,
		OutputTokens:     in.OutputTokens,
	}
	if res.Embedding == nil {
		res.Embedding = r.embedPassage(ctx, in.Response, "response")
	}
	if res.Summary != "" && res.SummaryEmbedding == nil {
		res.SummaryEmbedding = r.embedPassage(ctx, in.Summary, "summary")
	}
	if err := r.repo.CreateResponse(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ReasoningInput carries the caller-supplied fields of a reasoning row.
type ReasoningInput struct {
	Content   string
	Embedding []float32
	ModelUsed string
	Tokens    int
}

func (r *Recorder) RecordReasoning(ctx context.Context, requestID uuid.UUID, in ReasoningInput) (*Reasoning, error) {
	rsn := &Reasoning{
		ID:        uuid.New(),
		RequestID: requestID,
		Content:   in.Content,
		Embedding: in.Embedding,
		ModelUsed: in.ModelUsed,
		Tokens:    in.Tokens,
	}
	if rsn.Embedding == nil {
		rsn.Embedding = r.embedPassage(ctx, in.Content, "reasoning")
	}
	if err := r.repo.CreateReasoning(ctx, rsn); err != nil {
		return nil, err
	}
	return rsn, nil
}

// DeleteRequest removes a request and, through the storage cascade, its
// response and reasoning rows.
func (r *Recorder) DeleteRequest(ctx context.Context, ownerID string, id uuid.UUID) (bool, error) {
	return r.repo.DeleteRequest(ctx, id, ownerID)
}

func (r *Recorder) embedPassage(ctx context.Context, text, what string) []float32 {
	vec, err := r.embedder.Embed(ctx, text, embedding.KindPassage)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			slog.Warn("recording without embedding", "what", what, "error", err)
			return nil
		}
		slog.Warn("embedding failed", "what", what, "error", err)
		return nil
	}
	return vec
}
