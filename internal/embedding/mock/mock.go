// Package mock provides a deterministic embedder for tests. Identical
// text always yields the identical unit vector, so self-similarity is
// 1.0 and different texts land far apart, without a real model.
package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/mnemo-ai/mnemo/internal/embedding"
)

type Embedder struct {
	dimension int
}

func New(dimension int) *Embedder {
	return &Embedder{dimension: dimension}
}

// Embed generates a hash-seeded pseudo-random unit vector. The kind is
// folded into the hash only when asymmetric behavior is wanted; the mock
// keeps query and passage identical so stored text matches its own query.
func (m *Embedder) Embed(_ context.Context, text string, _ embedding.Kind) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.dimension)
	for i := range vec {
		// LCG over the text hash
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(vec), nil
}

func (m *Embedder) EmbedBatch(ctx context.Context, texts []string, kind embedding.Kind) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := m.Embed(ctx, t, kind)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *Embedder) Dimension() int { return m.dimension }

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i, v := range vec {
		vec[i] = v / n
	}
	return vec
}
