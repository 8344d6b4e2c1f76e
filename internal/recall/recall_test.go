package recall

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/embedding/mock"
)

type stubSource struct {
	name string
	hits []Hit
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(_ context.Context, _ string, _ []float32, limit int, minScore float64) ([]Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Hit
	for _, h := range s.hits {
		if h.Score >= minScore && len(out) < limit {
			out = append(out, h)
		}
	}
	return out, nil
}

func at(secAgo int) time.Time {
	return time.Now().Add(-time.Duration(secAgo) * time.Second)
}

func TestSearchAll_MergesAndSorts(t *testing.T) {
	agg := NewAggregator(mock.New(8),
		&stubSource{name: SourceMemory, hits: []Hit{
			{Source: SourceMemory, Content: "likes dark mode", Score: 0.9, CreatedAt: at(100)},
			{Source: SourceMemory, Content: "weak memory", Score: 0.3, CreatedAt: at(50)},
		}},
		&stubSource{name: SourceRequest, hits: []Hit{
			{Source: SourceRequest, Content: "asked about themes", Score: 0.7, CreatedAt: at(10)},
		}},
		&stubSource{name: SourceFileChunk, hits: []Hit{
			{Source: SourceFileChunk, Content: "theming guide", Score: 0.8, CreatedAt: at(20)},
		}},
	)

	hits, err := agg.SearchAll(context.Background(), "u1", "dark mode", 10, 0.25)
	require.NoError(t, err)
	require.Len(t, hits, 4)
	assert.Equal(t, "likes dark mode", hits[0].Content)
	assert.Equal(t, "theming guide", hits[1].Content)
	assert.Equal(t, "asked about themes", hits[2].Content)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestSearchAll_MinScoreFloor(t *testing.T) {
	agg := NewAggregator(mock.New(8),
		&stubSource{name: SourceMemory, hits: []Hit{
			{Score: 0.9, Content: "strong"},
			{Score: 0.2, Content: "weak"},
		}},
	)

	hits, err := agg.SearchAll(context.Background(), "u1", "query", 10, 0.25)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.25)
	}
}

func TestSearchAll_TruncatesToLimit(t *testing.T) {
	var many []Hit
	for i := 0; i < 20; i++ {
		many = append(many, Hit{Score: 0.5 + float64(i)/100, Content: "hit"})
	}
	agg := NewAggregator(mock.New(8), &stubSource{name: SourceMemory, hits: many})

	hits, err := agg.SearchAll(context.Background(), "u1", "query", 5, 0.25)
	require.NoError(t, err)
	assert.Len(t, hits, 5)
	// Highest scores survive truncation.
	assert.InDelta(t, 0.69, hits[0].Score, 1e-9)
}

func TestSearchAll_RecencyTiebreak(t *testing.T) {
	older := at(100)
	newer := at(1)
	agg := NewAggregator(mock.New(8),
		&stubSource{name: SourceMemory, hits: []Hit{
			{Score: 0.8, Content: "older", CreatedAt: older},
		}},
		&stubSource{name: SourceRequest, hits: []Hit{
			{Score: 0.8, Content: "newer", CreatedAt: newer},
		}},
	)

	hits, err := agg.SearchAll(context.Background(), "u1", "query", 10, 0.25)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "newer", hits[0].Content)
}

func TestSearchAll_SourceErrorFailsCall(t *testing.T) {
	agg := NewAggregator(mock.New(8),
		&stubSource{name: SourceMemory, hits: []Hit{{Score: 0.9, Content: "fine"}}},
		&stubSource{name: SourceRequest, err: assert.AnError},
	)

	_, err := agg.SearchAll(context.Background(), "u1", "query", 10, 0.25)
	assert.Error(t, err)
}

type brokenEmbedder struct{}

func (brokenEmbedder) Embed(context.Context, string, embedding.Kind) ([]float32, error) {
	return nil, embedding.Unavailable("embed", assert.AnError)
}

func (brokenEmbedder) Dimension() int { return 8 }

func TestSearchAll_EmbedFailurePropagates(t *testing.T) {
	agg := NewAggregator(brokenEmbedder{}, &stubSource{name: SourceMemory})

	_, err := agg.SearchAll(context.Background(), "u1", "query", 10, 0.25)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrUnavailable)
}

func TestFormatContext(t *testing.T) {
	hits := []Hit{
		{Source: SourceMemory, Content: "likes dark mode"},
		{Source: SourceFileChunk, Content: "theming guide section one"},
	}
	got := FormatContext(hits, 200)
	assert.True(t, strings.HasPrefix(got, "<memory-context>\n"))
	assert.True(t, strings.HasSuffix(got, "</memory-context>"))
	assert.Contains(t, got, "[memory] likes dark mode")
	assert.Contains(t, got, "[file_chunk] theming guide section one")
}

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil, 200))
}

func TestFormatContext_TruncatesAndFlattens(t *testing.T) {
	hits := []Hit{{Source: SourceMemory, Content: "line one\nline two " + strings.Repeat("x", 300)}}
	got := FormatContext(hits, 50)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3, "embedded newlines must be flattened")
	assert.Contains(t, lines[1], "...")
	assert.LessOrEqual(t, len(lines[1]), len("[memory] ")+50+len("..."))
}
