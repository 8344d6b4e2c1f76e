package conversation

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

// Repository defines conversation persistence. All writes are pure
// inserts; there is no dedup on the conversational trail.
type Repository interface {
	CreateRequest(ctx context.Context, req *Request) error
	GetRequest(ctx context.Context, id uuid.UUID, ownerID string) (*Request, error)
	DeleteRequest(ctx context.Context, id uuid.UUID, ownerID string) (bool, error)
	CreateResponse(ctx context.Context, res *Response) error
	CreateReasoning(ctx context.Context, rsn *Reasoning) error
	SearchRequests(ctx context.Context, ownerID string, embedding []float32, limit int, minScore float64) ([]TextMatch, error)
	SearchResponses(ctx context.Context, ownerID string, embedding []float32, limit int, minScore float64) ([]TextMatch, error)
}

// PostgresRepository implements Repository using pgx + pgvector.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateRequest(ctx context.Context, req *Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	refs, err := json.Marshal(req.ExternalRefs)
	if err != nil {
		return err
	}
	if req.ExternalRefs == nil {
		refs = []byte(`{}`)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO requests (id, owner_id, session_id, message, embedding, has_attachments, external_refs)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`,
		req.ID, req.OwnerID, req.SessionID, req.Message, vectorOrNil(req.Embedding),
		req.HasAttachments, refs,
	)
	if err != nil {
		return database.Unavailable("inserting request", err)
	}
	return nil
}

func (r *PostgresRepository) GetRequest(ctx context.Context, id uuid.UUID, ownerID string) (*Request, error) {
	var req Request
	var refs []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, COALESCE(session_id, ''), message, has_attachments, external_refs, created_at
		 FROM requests
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&req.ID, &req.OwnerID, &req.SessionID, &req.Message, &req.HasAttachments, &refs, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, database.Unavailable("getting request", err)
	}
	if err := json.Unmarshal(refs, &req.ExternalRefs); err != nil {
		req.ExternalRefs = nil
	}
	return &req, nil
}

// DeleteRequest removes a request together with its response and
// reasoning rows (ON DELETE CASCADE).
func (r *PostgresRepository) DeleteRequest(ctx context.Context, id uuid.UUID, ownerID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM requests WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, database.Unavailable("deleting request", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) CreateResponse(ctx context.Context, res *Response) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO responses (id, request_id, response, embedding, summary, summary_embedding,
		                        feedback, model_used, input_tokens, output_tokens)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9, $10)`,
		res.ID, res.RequestID, res.Response, vectorOrNil(res.Embedding),
		res.Summary, vectorOrNil(res.SummaryEmbedding),
		res.Feedback, res.ModelUsed, res.InputTokens, res.OutputTokens,
	)
	if err != nil {
		return database.Unavailable("inserting response", err)
	}
	return nil
}

func (r *PostgresRepository) CreateReasoning(ctx context.Context, rsn *Reasoning) error {
	if rsn.ID == uuid.Nil {
		rsn.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO reasoning (id, request_id, content, embedding, model_used, tokens)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		rsn.ID, rsn.RequestID, rsn.Content, vectorOrNil(rsn.Embedding), rsn.ModelUsed, rsn.Tokens,
	)
	if err != nil {
		return database.Unavailable("inserting reasoning", err)
	}
	return nil
}

func (r *PostgresRepository) SearchRequests(ctx context.Context, ownerID string, embedding []float32, limit int, minScore float64) ([]TextMatch, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx,
		`SELECT id, message, 1 - (embedding <=> $1) AS similarity, created_at
		 FROM requests
		 WHERE owner_id = $2
		   AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1, created_at DESC
		 LIMIT $4`,
		vec, ownerID, minScore, limit,
	)
	if err != nil {
		return nil, database.Unavailable("searching requests", err)
	}
	defer rows.Close()
	return scanMatches(rows, "searching requests")
}

// SearchResponses ranks responses for an owner, preferring the summary
// and its embedding over the full response when both exist.
func (r *PostgresRepository) SearchResponses(ctx context.Context, ownerID string, embedding []float32, limit int, minScore float64) ([]TextMatch, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx,
		`SELECT res.id,
		        COALESCE(res.summary, res.response),
		        1 - (COALESCE(res.summary_embedding, res.embedding) <=> $1) AS similarity,
		        res.created_at
		 FROM responses res
		 JOIN requests req ON req.id = res.request_id
		 WHERE req.owner_id = $2
		   AND COALESCE(res.summary_embedding, res.embedding) IS NOT NULL
		   AND 1 - (COALESCE(res.summary_embedding, res.embedding) <=> $1) >= $3
		 ORDER BY COALESCE(res.summary_embedding, res.embedding) <=> $1, res.created_at DESC
		 LIMIT $4`,
		vec, ownerID, minScore, limit,
	)
	if err != nil {
		return nil, database.Unavailable("searching responses", err)
	}
	defer rows.Close()
	return scanMatches(rows, "searching responses")
}

func scanMatches(rows pgx.Rows, op string) ([]TextMatch, error) {
	var matches []TextMatch
	for rows.Next() {
		var m TextMatch
		if err := rows.Scan(&m.ID, &m.Content, &m.Similarity, &m.CreatedAt); err != nil {
			return nil, database.Unavailable(op, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Unavailable(op, err)
	}
	return matches, nil
}

func vectorOrNil(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}
