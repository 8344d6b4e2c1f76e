// Package stats exposes the read-only aggregate over all content kinds.
package stats

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mnemo-ai/mnemo/internal/database"
)

// Stats is the per-kind row count plus the number of distinct owners.
type Stats struct {
	Memories   int64 `json:"memories"`
	Requests   int64 `json:"requests"`
	Responses  int64 `json:"responses"`
	Reasoning  int64 `json:"reasoning"`
	Files      int64 `json:"files"`
	FileChunks int64 `json:"file_chunks"`
	Owners     int64 `json:"owners"`
}

type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

// Read queries the content_stats view in one round trip.
func (r *Reader) Read(ctx context.Context) (*Stats, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT memories, requests, responses, reasoning, files, file_chunks, owners
		 FROM content_stats`,
	)

	var s Stats
	err := row.Scan(&s.Memories, &s.Requests, &s.Responses, &s.Reasoning,
		&s.Files, &s.FileChunks, &s.Owners)
	if err != nil {
		return nil, database.Unavailable("reading content stats", err)
	}
	return &s, nil
}
