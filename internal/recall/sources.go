package recall

import (
	"context"

	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/files"
	"github.com/mnemo-ai/mnemo/internal/memory"
)

// Source kind tags, surfaced verbatim in the injected context block.
const (
	SourceMemory    = "memory"
	SourceRequest   = "request"
	SourceResponse  = "response"
	SourceFileChunk = "file_chunk"
)

// MemorySource ranks long-lived memory records.
type MemorySource struct {
	repo memory.Repository
}

func NewMemorySource(repo memory.Repository) *MemorySource { return &MemorySource{repo: repo} }

func (s *MemorySource) Name() string { return SourceMemory }

func (s *MemorySource) Search(ctx context.Context, ownerID string, vec []float32, limit int, minScore float64) ([]Hit, error) {
	results, err := s.repo.SearchSimilar(ctx, ownerID, vec, limit, minScore, "")
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			Source:    SourceMemory,
			Content:   r.Record.Content,
			Score:     r.Similarity,
			CreatedAt: r.Record.CreatedAt,
		}
	}
	return hits, nil
}

// RequestSource ranks past user messages.
type RequestSource struct {
	repo conversation.Repository
}

func NewRequestSource(repo conversation.Repository) *RequestSource {
	return &RequestSource{repo: repo}
}

func (s *RequestSource) Name() string { return SourceRequest }

func (s *RequestSource) Search(ctx context.Context, ownerID string, vec []float32, limit int, minScore float64) ([]Hit, error) {
	matches, err := s.repo.SearchRequests(ctx, ownerID, vec, limit, minScore)
	if err != nil {
		return nil, err
	}
	return matchHits(SourceRequest, matches), nil
}

// ResponseSource ranks past assistant replies, preferring the stored
// summary and its embedding over the full text when both exist.
type ResponseSource struct {
	repo conversation.Repository
}

func NewResponseSource(repo conversation.Repository) *ResponseSource {
	return &ResponseSource{repo: repo}
}

func (s *ResponseSource) Name() string { return SourceResponse }

func (s *ResponseSource) Search(ctx context.Context, ownerID string, vec []float32, limit int, minScore float64) ([]Hit, error) {
	matches, err := s.repo.SearchResponses(ctx, ownerID, vec, limit, minScore)
	if err != nil {
		return nil, err
	}
	return matchHits(SourceResponse, matches), nil
}

// FileChunkSource ranks chunks of ingested documents.
type FileChunkSource struct {
	repo files.Repository
}

func NewFileChunkSource(repo files.Repository) *FileChunkSource {
	return &FileChunkSource{repo: repo}
}

func (s *FileChunkSource) Name() string { return SourceFileChunk }

func (s *FileChunkSource) Search(ctx context.Context, ownerID string, vec []float32, limit int, minScore float64) ([]Hit, error) {
	matches, err := s.repo.SearchChunks(ctx, ownerID, vec, limit, minScore)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{
			Source:    SourceFileChunk,
			Content:   m.Content,
			Score:     m.Similarity,
			CreatedAt: m.CreatedAt,
		}
	}
	return hits, nil
}

func matchHits(source string, matches []conversation.TextMatch) []Hit {
	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{
			Source:    source,
			Content:   m.Content,
			Score:     m.Similarity,
			CreatedAt: m.CreatedAt,
		}
	}
	return hits
}
