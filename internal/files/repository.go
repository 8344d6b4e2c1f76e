package files

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mnemo-ai/mnemo/internal/database"
)

// Repository defines file and chunk persistence.
type Repository interface {
	CreateFile(ctx context.Context, f *File) error
	CreateChunks(ctx context.Context, chunks []Chunk) error
	GetFile(ctx context.Context, id uuid.UUID, ownerID string) (*File, error)
	ListFiles(ctx context.Context, ownerID string, limit int) ([]File, error)
	DeleteFile(ctx context.Context, id uuid.UUID, ownerID string) (bool, error)
	SearchChunks(ctx context.Context, ownerID string, embedding []float32, limit int, minScore float64) ([]ChunkMatch, error)
}

// PostgresRepository implements Repository using pgx + pgvector. Chunks
// have no owner column of their own; every chunk query joins files for
// owner scoping, and chunk deletion rides the files cascade.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateFile(ctx context.Context, f *File) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO files (id, owner_id, request_id, file_name, storage_path,
		                    extracted_text, embedding, chunk_count, size_bytes, mime_type)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, NULLIF($10, ''))`,
		f.ID, f.OwnerID, f.RequestID, f.FileName, f.StoragePath,
		f.ExtractedText, vectorOrNil(f.Embedding), f.ChunkCount, f.SizeBytes, f.MimeType,
	)
	if err != nil {
		return database.Unavailable("inserting file", err)
	}
	return nil
}

// CreateChunks inserts all chunks of a file in one batch round trip.
func (r *PostgresRepository) CreateChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range chunks {
		c := &chunks[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		batch.Queue(
			`INSERT INTO file_chunks (id, file_id, chunk_index, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)`,
			c.ID, c.FileID, c.Index, c.Content, vectorOrNil(c.Embedding),
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return database.Unavailable("inserting file chunks", err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetFile(ctx context.Context, id uuid.UUID, ownerID string) (*File, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, request_id, file_name, storage_path,
		        COALESCE(extracted_text, ''), chunk_count, size_bytes,
		        COALESCE(mime_type, ''), created_at
		 FROM files
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)

	var f File
	err := row.Scan(&f.ID, &f.OwnerID, &f.RequestID, &f.FileName, &f.StoragePath,
		&f.ExtractedText, &f.ChunkCount, &f.SizeBytes, &f.MimeType, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, database.Unavailable("getting file", err)
	}
	return &f, nil
}

func (r *PostgresRepository) ListFiles(ctx context.Context, ownerID string, limit int) ([]File, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, request_id, file_name, storage_path,
		        chunk_count, size_bytes, COALESCE(mime_type, ''), created_at
		 FROM files
		 WHERE owner_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, database.Unavailable("listing files", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.RequestID, &f.FileName, &f.StoragePath,
			&f.ChunkCount, &f.SizeBytes, &f.MimeType, &f.CreatedAt); err != nil {
			return nil, database.Unavailable("listing files", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Unavailable("listing files", err)
	}
	return out, nil
}

func (r *PostgresRepository) DeleteFile(ctx context.Context, id uuid.UUID, ownerID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM files WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, database.Unavailable("deleting file", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) SearchChunks(ctx context.Context, ownerID string, embedding []float32, limit int, minScore float64) ([]ChunkMatch, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.file_id, f.file_name, c.content,
		        1 - (c.embedding <=> $1) AS similarity, c.created_at
		 FROM file_chunks c
		 JOIN files f ON f.id = c.file_id
		 WHERE f.owner_id = $2
		   AND c.embedding IS NOT NULL
		   AND 1 - (c.embedding <=> $1) >= $3
		 ORDER BY c.embedding <=> $1, c.created_at DESC
		 LIMIT $4`,
		vec, ownerID, minScore, limit,
	)
	if err != nil {
		return nil, database.Unavailable("searching file chunks", err)
	}
	defer rows.Close()

	var out []ChunkMatch
	for rows.Next() {
		var m ChunkMatch
		if err := rows.Scan(&m.ID, &m.FileID, &m.FileName, &m.Content, &m.Similarity, &m.CreatedAt); err != nil {
			return nil, database.Unavailable("searching file chunks", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Unavailable("searching file chunks", err)
	}
	return out, nil
}

func vectorOrNil(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}
