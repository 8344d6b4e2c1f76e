// Package embedding converts text into fixed-dimension vectors for
// similarity search. Asymmetric models (E5 family) embed queries and
// passages differently, so every call declares its intent via Kind.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Kind tags the embedding intent. E5-style models prepend a matching
// prefix so short questions stay comparable to long stored passages.
type Kind string

const (
	KindQuery   Kind = "query"
	KindPassage Kind = "passage"
)

// ErrUnavailable marks embedding failures: provider unreachable, request
// timed out, or a malformed/wrong-dimension response. Callers on the
// recall/capture paths log it and skip enrichment instead of failing the
// user-facing turn.
var ErrUnavailable = errors.New("embedding unavailable")

// Unavailable wraps err so it carries ErrUnavailable in its chain.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string, kind Kind) ([]float32, error)
	Dimension() int
}

// BatchEmbedder is implemented by providers that can embed several texts
// in one round trip. File-chunk ingestion uses it to avoid per-chunk calls.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string, kind Kind) ([][]float32, error)
}
