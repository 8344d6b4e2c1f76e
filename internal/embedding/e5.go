package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/metrics"
)

// E5Client talks to an e5-server instance (multilingual-e5-large behind a
// small HTTP wrapper). The server expects "query: " / "passage: " prefixed
// text; the client adds the prefix unless the text already carries one.
type E5Client struct {
	baseURL   string
	dimension int
	client    *http.Client
}

type e5EmbedRequest struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

type e5EmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type e5BatchRequest struct {
	Texts []string `json:"texts"`
	Type  string   `json:"type,omitempty"`
}

type e5BatchResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type e5HealthResponse struct {
	Status    string `json:"status"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// NewE5Client creates a client for the configured embedding server.
func NewE5Client(cfg config.EmbedderConfig) *E5Client {
	return &E5Client{
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *E5Client) Embed(ctx context.Context, text string, kind Kind) ([]float32, error) {
	body, _ := json.Marshal(e5EmbedRequest{Text: applyPrefix(text, kind), Type: string(kind)})
	var result e5EmbedResponse
	if err := c.post(ctx, "/embed", body, &result); err != nil {
		return nil, err
	}
	if len(result.Embedding) != c.dimension {
		return nil, Unavailable("embed",
			fmt.Errorf("expected %d dimensions, got %d", c.dimension, len(result.Embedding)))
	}
	return result.Embedding, nil
}

func (c *E5Client) EmbedBatch(ctx context.Context, texts []string, kind Kind) ([][]float32, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = applyPrefix(t, kind)
	}

	body, _ := json.Marshal(e5BatchRequest{Texts: prefixed, Type: string(kind)})
	var result e5BatchResponse
	if err := c.post(ctx, "/batch", body, &result); err != nil {
		return nil, err
	}
	if len(result.Embeddings) != len(texts) {
		return nil, Unavailable("batch",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings)))
	}
	for _, emb := range result.Embeddings {
		if len(emb) != c.dimension {
			return nil, Unavailable("batch",
				fmt.Errorf("expected %d dimensions, got %d", c.dimension, len(emb)))
		}
	}
	return result.Embeddings, nil
}

func (c *E5Client) Dimension() int { return c.dimension }

// Health probes the embedding server and verifies the model dimension
// matches the deployment's configuration.
func (c *E5Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Unavailable("health", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Unavailable("health", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Unavailable("health", fmt.Errorf("status %d", resp.StatusCode))
	}

	var health e5HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return Unavailable("health", err)
	}
	if health.Dimension != c.dimension {
		return Unavailable("health",
			fmt.Errorf("server model %q has dimension %d, configured %d",
				health.Model, health.Dimension, c.dimension))
	}
	return nil
}

func (c *E5Client) post(ctx context.Context, path string, body []byte, out any) error {
	err := c.doPost(ctx, path, body, out)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.EmbeddingCallsTotal.WithLabelValues(path, outcome).Inc()
	return err
}

func (c *E5Client) doPost(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Unavailable(path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Unavailable(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Unavailable(path, fmt.Errorf("status %d: %s", resp.StatusCode, string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Unavailable(path, err)
	}
	return nil
}

// applyPrefix prepends the E5 instruction prefix unless the text already
// starts with one, matching the server's own handling.
func applyPrefix(text string, kind Kind) string {
	if strings.HasPrefix(text, "query:") || strings.HasPrefix(text, "passage:") {
		return text
	}
	return fmt.Sprintf("%s: %s", kind, text)
}
