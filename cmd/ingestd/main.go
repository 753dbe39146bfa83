// Package main is the entry point for the ingestd binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dkrishnan/ingestd/internal/api"
	"github.com/dkrishnan/ingestd/internal/blob"
	"github.com/dkrishnan/ingestd/internal/chunk"
	"github.com/dkrishnan/ingestd/internal/config"
	"github.com/dkrishnan/ingestd/internal/database"
	"github.com/dkrishnan/ingestd/internal/embed"
	"github.com/dkrishnan/ingestd/internal/extract"
	"github.com/dkrishnan/ingestd/internal/health"
	"github.com/dkrishnan/ingestd/internal/ingest"
	"github.com/dkrishnan/ingestd/internal/logger"
	"github.com/dkrishnan/ingestd/internal/repository"
	"github.com/dkrishnan/ingestd/internal/vectorstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ingestd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ingestd",
		Short:        "Document ingestion and embedding service",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd(), newInitCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service with in-process background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Bootstrap the schema, bucket, and vector collection, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)

			svc, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			log.Info("bootstrap complete",
				"collection", cfg.Collection,
				"bucket", cfg.S3Bucket,
				"dimension", svc.embedder.Dimension())
			return nil
		},
	}
}

// deps holds the shared process-wide collaborators: constructed once at
// startup, passed by reference everywhere, torn down on shutdown.
type deps struct {
	db       *database.DB
	repo     *repository.DocumentRepository
	blobs    *blob.Storage
	vectors  *vectorstore.Client
	embedder *embed.Client
}

func (d *deps) Close() {
	if d.vectors != nil {
		_ = d.vectors.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// bootstrap builds every collaborator and ensures the external state
// (schema, bucket, collection) they depend on. Each step is idempotent.
func bootstrap(ctx context.Context, cfg *config.Config) (*deps, error) {
	db, err := database.Connect(ctx, cfg.DatabaseURL, cfg.PoolMinConns, cfg.PoolMaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	blobs, err := blob.New(blob.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		db.Close()
		return nil, err
	}

	vectors, err := vectorstore.New(vectorstore.Config{
		Host:       cfg.QdrantHost,
		Port:       cfg.QdrantPort,
		APIKey:     cfg.QdrantAPIKey,
		UseTLS:     cfg.QdrantUseTLS,
		Collection: cfg.Collection,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	embedder := embed.New(cfg.OpenAIKey, cfg.EmbeddingModel)
	if err := embedder.Warmup(ctx); err != nil {
		_ = vectors.Close()
		db.Close()
		return nil, err
	}
	if err := vectors.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		_ = vectors.Close()
		db.Close()
		return nil, err
	}

	return &deps{
		db:       db,
		repo:     repository.NewDocumentRepository(db),
		blobs:    blobs,
		vectors:  vectors,
		embedder: embedder,
	}, nil
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	svc, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	pipeline, err := ingest.NewPipeline(
		svc.repo,
		svc.blobs,
		svc.vectors,
		extract.New(),
		chunk.New(cfg.ChunkSize, cfg.ChunkOverlap),
		svc.embedder,
		ingest.Options{
			AllowedExts: cfg.AllowedExts,
			Workers:     cfg.Workers,
			QueueDepth:  cfg.QueueDepth,
			Logger:      log,
		},
	)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	sweeper := ingest.NewSweeper(svc.repo, cfg.SweepInterval, cfg.StuckTimeout, log)
	go sweeper.Run(ctx)

	checker := health.NewChecker(svc.db, svc.vectors, log)
	server := api.New(api.Options{
		Address:     cfg.Address,
		MaxFileSize: cfg.MaxFileSize,
		PresignTTL:  cfg.PresignTTL,
	}, pipeline, svc.repo, svc.blobs, checker, log)

	log.Info("ingestd starting",
		"address", cfg.Address,
		"collection", cfg.Collection,
		"dimension", svc.embedder.Dimension(),
		"workers", cfg.Workers)
	return server.Run(ctx)
}
