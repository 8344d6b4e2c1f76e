// Package recall runs unified similarity search across every content
// kind. One query embedding fans out to all sources, and the merged
// result is a single ranking with a shared score scale.
package recall

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/metrics"
)

const (
	defaultLimit    = 10
	defaultMinScore = 0.25
)

// Hit is one ranked result, tagged with the content kind it came from.
type Hit struct {
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Source is one searchable content kind. Implementations receive the
// already-computed query vector so the embedding provider is called once
// per SearchAll, not once per source.
type Source interface {
	Name() string
	Search(ctx context.Context, ownerID string, vec []float32, limit int, minScore float64) ([]Hit, error)
}

// Aggregator merges ranked results from all registered sources.
type Aggregator struct {
	embedder embedding.Embedder
	sources  []Source
}

func NewAggregator(embedder embedding.Embedder, sources ...Source) *Aggregator {
	return &Aggregator{embedder: embedder, sources: sources}
}

// SearchAll embeds the query once, runs every source concurrently, and
// returns the merged list sorted by score descending with recency as the
// tiebreak, truncated to limit. Any source failure fails the call;
// best-effort callers decide for themselves whether to swallow it.
func (a *Aggregator) SearchAll(ctx context.Context, ownerID, query string, limit int, minScore float64) ([]Hit, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	vec, err := a.embedder.Embed(ctx, query, embedding.KindQuery)
	if err != nil {
		return nil, err
	}

	perSource := make([][]Hit, len(a.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			hits, err := src.Search(gctx, ownerID, vec, limit, minScore)
			if err != nil {
				return err
			}
			metrics.MemorySearchesTotal.WithLabelValues(src.Name()).Inc()
			perSource[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []Hit
	for _, hits := range perSource {
		merged = append(merged, hits...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	metrics.ContextHitsReturned.Observe(float64(len(merged)))
	return merged, nil
}
