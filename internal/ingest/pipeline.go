// Package ingest orchestrates document ingestion: validation, checksum
// dedup, blob upload, and the background extract/chunk/embed/upsert job that
// drives each document to a terminal status.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/dkrishnan/ingestd/internal/repository"
	"github.com/dkrishnan/ingestd/internal/vectorstore"
)

// Store is the slice of the document repository the pipeline mutates.
type Store interface {
	InsertIfAbsent(ctx context.Context, filename, checksum string) (*repository.Document, bool, error)
	SetBlobURI(ctx context.Context, id, uri string) error
	MarkFailed(ctx context.Context, id, msg string) error
	MarkCompleted(ctx context.Context, id string) error
}

// BlobStore uploads raw content and returns the stored blob's URI.
type BlobStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// VectorStore receives one point per chunk.
type VectorStore interface {
	Upsert(ctx context.Context, points []vectorstore.Point) error
}

// Extractor converts raw bytes to plain text based on file type.
type Extractor interface {
	Extract(data []byte, filename string) (string, error)
}

// Chunker splits text into overlapping fixed-size segments.
type Chunker interface {
	Split(text string) []string
}

// Embedder maps each chunk to a fixed-dimension vector.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Options bound the background pool and define the upload allow-set.
type Options struct {
	AllowedExts []string
	Workers     int
	QueueDepth  int
	Logger      *slog.Logger
}

// Result is what the synchronous phase hands back to the HTTP layer.
type Result struct {
	Document  *repository.Document
	Duplicate bool
}

// Pipeline runs the ingestion state machine. The synchronous phase records
// the document and uploads the blob; the background job runs on a bounded
// worker pool and never propagates errors past the document row.
type Pipeline struct {
	store     Store
	blobs     BlobStore
	vectors   VectorStore
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	pool      *ants.Pool
	allowed   map[string]struct{}
	logger    *slog.Logger
}

// NewPipeline wires the collaborators together and sizes the worker pool.
func NewPipeline(store Store, blobs BlobStore, vectors VectorStore, extractor Extractor, chunker Chunker, embedder Embedder, opts Options) (*Pipeline, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueDepth < 1 {
		opts.QueueDepth = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// Submit blocks while up to QueueDepth jobs wait for a worker; one more
	// gets ErrPoolOverload, which Ingest turns into a rejected request.
	pool, err := ants.NewPool(opts.Workers, ants.WithMaxBlockingTasks(opts.QueueDepth))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	allowed := make(map[string]struct{}, len(opts.AllowedExts))
	for _, ext := range opts.AllowedExts {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	return &Pipeline{
		store:     store,
		blobs:     blobs,
		vectors:   vectors,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		pool:      pool,
		allowed:   allowed,
		logger:    opts.Logger.With("component", "ingest"),
	}, nil
}

// Ingest runs the synchronous phase: validate, dedup, upload, schedule. On
// return the caller can answer the request; the background job finishes the
// document on its own time.
func (p *Pipeline) Ingest(ctx context.Context, filename, contentType string, content []byte) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := p.allowed[ext]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	checksum := Checksum(content)
	doc, created, err := p.store.InsertIfAbsent(ctx, filename, checksum)
	if err != nil {
		return nil, fmt.Errorf("record document: %w", err)
	}
	if !created {
		// Identical content was ingested before. Re-ingestion is idempotent:
		// no second upload, no second embedding run.
		p.logger.Info("duplicate upload", "document_id", doc.ID, "checksum", checksum)
		return &Result{Document: doc, Duplicate: true}, nil
	}

	key := fmt.Sprintf("uploads/%s/%s", doc.ID, filepath.Base(filename))
	uri, err := p.blobs.Upload(ctx, key, bytes.NewReader(content), int64(len(content)), contentType)
	if err != nil {
		p.fail(ctx, doc.ID, fmt.Sprintf("blob upload: %v", err))
		return nil, fmt.Errorf("upload blob: %w", err)
	}
	if err := p.store.SetBlobURI(ctx, doc.ID, uri); err != nil {
		p.fail(ctx, doc.ID, fmt.Sprintf("record blob uri: %v", err))
		return nil, fmt.Errorf("record blob uri: %w", err)
	}
	doc.BlobURI = &uri

	submitErr := p.pool.Submit(func() {
		p.process(doc.ID, filename, uri, content)
	})
	if submitErr != nil {
		p.fail(ctx, doc.ID, "ingestion queue full")
		if errors.Is(submitErr, ants.ErrPoolOverload) {
			return nil, ErrQueueFull
		}
		return nil, fmt.Errorf("schedule ingestion job: %w", submitErr)
	}

	return &Result{Document: doc}, nil
}

// process is the asynchronous phase. Every failure path, panics included,
// lands in MarkFailed so a truly failed document never sits in processing.
func (p *Pipeline) process(id, filename, blobURI string, content []byte) {
	ctx := context.Background()
	log := p.logger.With("document_id", id)

	defer func() {
		if r := recover(); r != nil {
			log.Error("ingestion job panicked", "panic", r)
			p.fail(ctx, id, fmt.Sprintf("panic: %v", r))
		}
	}()

	text, err := p.extractor.Extract(content, filename)
	if err != nil {
		p.fail(ctx, id, fmt.Sprintf("extract text: %v", err))
		return
	}

	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		p.fail(ctx, id, "no text extracted")
		return
	}

	vectors, err := p.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		p.fail(ctx, id, fmt.Sprintf("embed chunks: %v", err))
		return
	}
	if len(vectors) != len(chunks) {
		p.fail(ctx, id, fmt.Sprintf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors)))
		return
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		// One document yields many chunks, so point ids are freshly
		// generated rather than derived from the document id.
		points[i] = vectorstore.Point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"text":        chunk,
				"source":      filename,
				"blob_uri":    blobURI,
				"document_id": id,
			},
		}
	}
	if err := p.vectors.Upsert(ctx, points); err != nil {
		p.fail(ctx, id, fmt.Sprintf("upsert points: %v", err))
		return
	}

	if err := p.store.MarkCompleted(ctx, id); err != nil {
		log.Error("mark completed", "err", err)
		return
	}
	log.Info("document processed", "chunks", len(chunks))
}

func (p *Pipeline) fail(ctx context.Context, id, msg string) {
	p.logger.Error("ingestion failed", "document_id", id, "reason", msg)
	if err := p.store.MarkFailed(ctx, id, msg); err != nil {
		p.logger.Error("mark failed", "document_id", id, "err", err)
	}
}

// Release tears down the worker pool. The pipeline must not be used after.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
