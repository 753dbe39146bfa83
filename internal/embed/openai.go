// Package embed maps text chunks to fixed-dimension vectors through the
// OpenAI embeddings API.
package embed

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Client is a process-wide embedder: constructed once at startup and shared
// across all requests and background jobs.
type Client struct {
	client    *openai.Client
	model     string
	dimension int
}

// New creates the embedding client. Warmup must run before the dimension is
// consulted.
func New(apiKey, model string) *Client {
	return newWithConfig(openai.DefaultConfig(apiKey), model)
}

func newWithConfig(cfg openai.ClientConfig, model string) *Client {
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Warmup embeds a sentinel string once to learn the model's output dimension.
// Called at startup so the vector collection can be sized before any ingest.
func (c *Client) Warmup(ctx context.Context) error {
	vectors, err := c.EmbedTexts(ctx, []string{"warmup"})
	if err != nil {
		return fmt.Errorf("embedder warmup: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return errors.New("embedder warmup returned no vector")
	}
	c.dimension = len(vectors[0])
	return nil
}

// Dimension returns the vector size learned during Warmup.
func (c *Client) Dimension() int {
	return c.dimension
}

// EmbedTexts embeds a batch of chunks, preserving order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, received %d", len(texts), len(resp.Data))
	}
	// The API tags each embedding with the index of its input; place by
	// Index rather than response position.
	vectors := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range for batch of %d", data.Index, len(texts))
		}
		vectors[data.Index] = data.Embedding
	}
	return vectors, nil
}
