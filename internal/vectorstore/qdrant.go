// Package vectorstore adapts the Qdrant client to the narrow surface the
// ingestion pipeline needs: collection bootstrap, point upsert, and a
// liveness probe.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Point is one vector-store record: an id, an embedding, and a payload
// carrying the chunk text plus metadata for later retrieval.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Config carries the connection settings for Qdrant.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Client wraps a Qdrant connection bound to a single collection.
type Client struct {
	client     *qdrant.Client
	collection string
}

// New connects to Qdrant. The collection is not touched until
// EnsureCollection runs.
func New(cfg Config) (*Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("init qdrant client: %w", err)
	}
	return &Client{client: client, collection: cfg.Collection}, nil
}

// EnsureCollection creates the collection with the given vector dimension.
// An existing collection with a different dimension is dropped and recreated;
// its points are unreadable under the new embedder anyway.
func (c *Client) EnsureCollection(ctx context.Context, dimension int) error {
	exists, err := c.client.CollectionExists(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		info, err := c.client.GetCollectionInfo(ctx, c.collection)
		if err != nil {
			return fmt.Errorf("get collection info: %w", err)
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size == uint64(dimension) {
			return nil
		}
		if err := c.client.DeleteCollection(ctx, c.collection); err != nil {
			return fmt.Errorf("delete mismatched collection: %w", err)
		}
	}
	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// Upsert writes one point per chunk into the collection.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	converted := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		converted[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		}
	}
	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points:         converted,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// ListCollections exercises the server without mutating state. Used by the
// health endpoint.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	names, err := c.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// Close tears down the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}
