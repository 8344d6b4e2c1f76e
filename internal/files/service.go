package files

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/embedding"
)

const chunkSearchLimit = 50

// Service ingests documents and searches their chunks. Embeddings are
// best effort: a chunk stored without a vector stays out of similarity
// ranking but keeps its place in the file.
type Service struct {
	repo     Repository
	embedder embedding.BatchEmbedder
}

func NewService(repo Repository, embedder embedding.BatchEmbedder) *Service {
	return &Service{repo: repo, embedder: embedder}
}

// IngestInput carries the caller-supplied fields of a new file.
type IngestInput struct {
	FileName    string
	StoragePath string
	MimeType    string
	SizeBytes   int64
	RequestID   *uuid.UUID
	Text        string
}

// Ingest chunks the extracted text, embeds the chunks as passages in one
// batch, and stores the file with its ordered chunks.
func (s *Service) Ingest(ctx context.Context, ownerID string, in IngestInput) (*File, error) {
	pieces := ChunkText(in.Text, 0, 0)

	f := &File{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		RequestID:     in.RequestID,
		FileName:      in.FileName,
		StoragePath:   in.StoragePath,
		ExtractedText: in.Text,
		ChunkCount:    len(pieces),
		SizeBytes:     in.SizeBytes,
		MimeType:      in.MimeType,
	}

	var vectors [][]float32
	if len(pieces) > 0 {
		var err error
		vectors, err = s.embedder.EmbedBatch(ctx, pieces, embedding.KindPassage)
		if err != nil {
			slog.Warn("ingesting file without chunk embeddings",
				"file", in.FileName, "chunks", len(pieces), "error", err)
			vectors = nil
		}
	}
	if len(vectors) > 0 {
		// First chunk stands in for the whole document.
		f.Embedding = vectors[0]
	}

	if err := s.repo.CreateFile(ctx, f); err != nil {
		return nil, err
	}

	chunks := make([]Chunk, len(pieces))
	for i, text := range pieces {
		chunks[i] = Chunk{
			ID:      uuid.New(),
			FileID:  f.ID,
			Index:   i,
			Content: text,
		}
		if i < len(vectors) {
			chunks[i].Embedding = vectors[i]
		}
	}
	if err := s.repo.CreateChunks(ctx, chunks); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*File, error) {
	return s.repo.GetFile(ctx, id, ownerID)
}

func (s *Service) List(ctx context.Context, ownerID string, limit int) ([]File, error) {
	if limit <= 0 {
		limit = chunkSearchLimit
	}
	return s.repo.ListFiles(ctx, ownerID, limit)
}

// Delete removes the file; its chunks go with it through the cascade.
func (s *Service) Delete(ctx context.Context, ownerID string, id uuid.UUID) (bool, error) {
	return s.repo.DeleteFile(ctx, id, ownerID)
}

// SearchChunks embeds the query and ranks chunks across the owner's files.
func (s *Service) SearchChunks(ctx context.Context, ownerID, query string, limit int, minScore float64) ([]ChunkMatch, error) {
	vec, err := s.embedder.Embed(ctx, query, embedding.KindQuery)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = chunkSearchLimit
	}
	return s.repo.SearchChunks(ctx, ownerID, vec, limit, minScore)
}
