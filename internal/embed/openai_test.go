package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveEmbeddings returns a client wired to a stub API that answers every
// embeddings call with the given data entries.
func serveEmbeddings(t *testing.T, data []openai.Embedding) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(openai.EmbeddingResponse{
			Object: "list",
			Data:   data,
			Model:  openai.SmallEmbedding3,
		})
		require.NoError(t, err)
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	return newWithConfig(cfg, string(openai.SmallEmbedding3))
}

func TestEmbedTextsOrdersByResponseIndex(t *testing.T) {
	// Entries arrive out of order; Index decides placement.
	c := serveEmbeddings(t, []openai.Embedding{
		{Object: "embedding", Index: 1, Embedding: []float32{0.2, 0.2}},
		{Object: "embedding", Index: 0, Embedding: []float32{0.1, 0.1}},
	})

	vectors, err := c.EmbedTexts(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.1}, vectors[0])
	assert.Equal(t, []float32{0.2, 0.2}, vectors[1])
}

func TestEmbedTextsRejectsOutOfRangeIndex(t *testing.T) {
	c := serveEmbeddings(t, []openai.Embedding{
		{Object: "embedding", Index: 5, Embedding: []float32{0.1}},
	})

	_, err := c.EmbedTexts(context.Background(), []string{"only"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestEmbedTextsCountMismatch(t *testing.T) {
	c := serveEmbeddings(t, []openai.Embedding{
		{Object: "embedding", Index: 0, Embedding: []float32{0.1}},
	})

	_, err := c.EmbedTexts(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count mismatch")
}

func TestWarmupLearnsDimension(t *testing.T) {
	c := serveEmbeddings(t, []openai.Embedding{
		{Object: "embedding", Index: 0, Embedding: []float32{0.1, 0.2, 0.3}},
	})

	require.NoError(t, c.Warmup(context.Background()))
	assert.Equal(t, 3, c.Dimension())
}
