package memory

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mnemo-ai/mnemo/internal/database"
)

// Repository defines memory persistence operations.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID, ownerID string) (*Record, error)
	Update(ctx context.Context, rec *Record) (bool, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID string) (bool, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
	SearchSimilar(ctx context.Context, ownerID string, embedding []float32, limit int, minScore float64, category Category) ([]SearchResult, error)
	Count(ctx context.Context, ownerID string) (int64, error)
}

// PostgresRepository implements Repository using pgx + pgvector.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}
	if rec.Metadata == nil {
		metadata = []byte(`{}`)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO memories (id, owner_id, session_id, content, category, embedding,
		                       importance, confidence, metadata, source_type, source_id, expires_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12)`,
		rec.ID, rec.OwnerID, rec.SessionID, rec.Content, rec.Category, vectorOrNil(rec.Embedding),
		rec.Importance, rec.Confidence, metadata, rec.SourceType, rec.SourceID, rec.ExpiresAt,
	)
	if err != nil {
		return database.Unavailable("inserting memory", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID, ownerID string) (*Record, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, COALESCE(session_id, ''), content, category,
		        importance, confidence, metadata, COALESCE(source_type, ''),
		        COALESCE(source_id, ''), created_at, updated_at, expires_at
		 FROM memories
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, database.Unavailable("getting memory", err)
	}
	return rec, nil
}

// Update rewrites content, embedding, and weights of an existing record
// and refreshes updated_at. Only explicit edits go through here;
// auto-capture never overwrites.
func (r *PostgresRepository) Update(ctx context.Context, rec *Record) (bool, error) {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return false, err
	}
	if rec.Metadata == nil {
		metadata = []byte(`{}`)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE memories
		 SET content = $3, category = $4, embedding = $5, importance = $6,
		     confidence = $7, metadata = $8, updated_at = now()
		 WHERE id = $1 AND owner_id = $2`,
		rec.ID, rec.OwnerID, rec.Content, rec.Category, vectorOrNil(rec.Embedding),
		rec.Importance, rec.Confidence, metadata,
	)
	if err != nil {
		return false, database.Unavailable("updating memory", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID, ownerID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM memories WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, database.Unavailable("deleting memory", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByOwner removes every memory belonging to an owner (bulk erasure).
func (r *PostgresRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM memories WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return 0, database.Unavailable("deleting owner memories", err)
	}
	return tag.RowsAffected(), nil
}

// SearchSimilar ranks memories by cosine similarity against the query
// vector. Rows without an embedding are excluded; minScore is inclusive;
// ties break most-recent-first. An empty category matches all.
func (r *PostgresRepository) SearchSimilar(ctx context.Context, ownerID string, embedding []float32, limit int, minScore float64, category Category) ([]SearchResult, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, COALESCE(session_id, ''), content, category,
		        importance, confidence, metadata, COALESCE(source_type, ''),
		        COALESCE(source_id, ''), created_at, updated_at, expires_at,
		        1 - (embedding <=> $1) AS similarity
		 FROM memories
		 WHERE owner_id = $2
		   AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $3
		   AND ($4 = '' OR category = $4)
		   AND (expires_at IS NULL OR expires_at > now())
		 ORDER BY embedding <=> $1, created_at DESC
		 LIMIT $5`,
		vec, ownerID, minScore, string(category), limit,
	)
	if err != nil {
		return nil, database.Unavailable("searching memories", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var rec Record
		var metadata []byte
		var similarity float64
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.SessionID, &rec.Content, &rec.Category,
			&rec.Importance, &rec.Confidence, &metadata, &rec.SourceType,
			&rec.SourceID, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt, &similarity); err != nil {
			return nil, database.Unavailable("scanning search result", err)
		}
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			rec.Metadata = nil
		}
		results = append(results, SearchResult{Record: rec, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, database.Unavailable("searching memories", err)
	}
	return results, nil
}

// Count returns the number of memories; an empty owner counts all rows.
func (r *PostgresRepository) Count(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM memories WHERE $1 = '' OR owner_id = $1`,
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, database.Unavailable("counting memories", err)
	}
	return count, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var metadata []byte
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.SessionID, &rec.Content, &rec.Category,
		&rec.Importance, &rec.Confidence, &metadata, &rec.SourceType,
		&rec.SourceID, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
		rec.Metadata = nil
	}
	return &rec, nil
}

func vectorOrNil(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}
