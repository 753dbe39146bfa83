// Package api exposes the HTTP surface: health, ingest, and document status.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dkrishnan/ingestd/internal/health"
	"github.com/dkrishnan/ingestd/internal/ingest"
	"github.com/dkrishnan/ingestd/internal/repository"
)

// Ingestor runs the synchronous ingestion phase.
type Ingestor interface {
	Ingest(ctx context.Context, filename, contentType string, content []byte) (*ingest.Result, error)
}

// DocumentGetter reads a document's current state for polling.
type DocumentGetter interface {
	GetByID(ctx context.Context, id string) (*repository.Document, error)
}

// Presigner issues a time-limited download URL for a stored blob.
type Presigner interface {
	PresignDownload(ctx context.Context, blobURI string, ttl time.Duration) (string, error)
}

// HealthChecker runs the liveness probes.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// Options carries the request-handling limits.
type Options struct {
	Address     string
	MaxFileSize int64
	PresignTTL  time.Duration
}

// Server wires the pipeline, repository reads, and health checks into HTTP
// handlers.
type Server struct {
	opts     Options
	pipeline Ingestor
	docs     DocumentGetter
	blobs    Presigner
	checker  HealthChecker
	logger   *slog.Logger
	server   *http.Server
	once     sync.Once
}

// New constructs a Server.
func New(opts Options, pipeline Ingestor, docs DocumentGetter, blobs Presigner, checker HealthChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:     opts,
		pipeline: pipeline,
		docs:     docs,
		blobs:    blobs,
		checker:  checker,
		logger:   logger.With("component", "api"),
	}
}

// Handler returns the routed handler, exported for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/documents/", s.handleDocumentRoute)
	return corsMiddleware(s.loggingMiddleware(mux))
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.opts.Address,
			Handler: s.Handler(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.logger.Info("api listening", "address", s.opts.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Health always answers 200; degraded collaborators show up as false.
	respondJSON(w, http.StatusOK, s.checker.Check(r.Context()))
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxFileSize+1024)

	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "expecting multipart form", http.StatusBadRequest)
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer part.Close()

	content, err := io.ReadAll(io.LimitReader(part, s.opts.MaxFileSize+1))
	if err != nil {
		http.Error(w, "read upload", http.StatusBadRequest)
		return
	}
	if int64(len(content)) > s.opts.MaxFileSize {
		http.Error(w, fmt.Sprintf("file exceeds limit (%d bytes)", s.opts.MaxFileSize), http.StatusBadRequest)
		return
	}
	if len(content) == 0 {
		http.Error(w, "empty file", http.StatusBadRequest)
		return
	}
	filename := part.FileName()
	if filename == "" {
		http.Error(w, "missing filename", http.StatusBadRequest)
		return
	}

	result, err := s.pipeline.Ingest(ctx, filename, sniffContentType(content), content)
	if err != nil {
		s.respondIngestError(w, err)
		return
	}

	status := http.StatusAccepted
	if result.Duplicate {
		// Nothing new was accepted; report the existing document as-is.
		status = http.StatusOK
	}
	respondJSON(w, status, map[string]string{
		"status":      string(result.Document.Status),
		"document_id": result.Document.ID,
	})
}

func (s *Server) respondIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedType):
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, ingest.ErrQueueFull):
		http.Error(w, "ingestion queue full, retry later", http.StatusServiceUnavailable)
	default:
		s.logger.Error("ingest failed", "err", err)
		http.Error(w, "ingestion failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleDocumentRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/documents/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	switch {
	case len(parts) == 1:
		s.handleDocument(w, r, id)
	case len(parts) == 2 && parts[1] == "download-url":
		s.handleDownloadURL(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.docs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		s.logger.Error("get document", "id", id, "err", err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.docs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		s.logger.Error("get document", "id", id, "err", err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if doc.BlobURI == nil {
		http.Error(w, "blob unavailable", http.StatusNotFound)
		return
	}
	url, err := s.blobs.PresignDownload(r.Context(), *doc.BlobURI, s.opts.PresignTTL)
	if err != nil {
		s.logger.Error("presign download", "id", id, "err", err)
		http.Error(w, "failed to generate url", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func sniffContentType(content []byte) string {
	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	return http.DetectContentType(head)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
