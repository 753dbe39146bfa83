// Package config centralizes how ingestd reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service.
type Config struct {
	Address     string
	LogLevel    string
	LogFormat   string
	MaxFileSize int64
	AllowedExts []string

	DatabaseURL  string
	PoolMinConns int32
	PoolMaxConns int32

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool
	PresignTTL  time.Duration

	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantUseTLS bool
	Collection   string

	OpenAIKey      string
	EmbeddingModel string

	ChunkSize    int
	ChunkOverlap int

	Workers       int
	QueueDepth    int
	SweepInterval time.Duration
	StuckTimeout  time.Duration
}

const (
	defaultAddress     = ":8080"
	defaultMaxFileSize = 25 << 20 // 25 MiB
	defaultAllowedExts = ".pdf,.docx,.txt"
	defaultCollection  = "document-qa"
	defaultModel       = "text-embedding-3-small"
	defaultChunkSize   = 500
	defaultOverlap     = 50
	defaultWorkers     = 2
	defaultQueueDepth  = 64
	defaultPresignTTL  = 5 * time.Minute
	defaultSweepEvery  = time.Minute
	defaultStuckAfter  = 15 * time.Minute
)

// Load reads configuration from the environment, falling back to defaults.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Address:     readEnv("INGESTD_ADDRESS", defaultAddress),
		LogLevel:    readEnv("INGESTD_LOG_LEVEL", "info"),
		LogFormat:   readEnv("INGESTD_LOG_FORMAT", "text"),
		MaxFileSize: parseInt64("INGESTD_MAX_FILE_BYTES", defaultMaxFileSize),
		AllowedExts: parseList("INGESTD_ALLOWED_EXTS", defaultAllowedExts),

		DatabaseURL:  readEnv("DATABASE_URL", ""),
		PoolMinConns: int32(parseInt("INGESTD_POOL_MIN_CONNS", 1)),
		PoolMaxConns: int32(parseInt("INGESTD_POOL_MAX_CONNS", 10)),

		S3Endpoint:  readEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey: readEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: readEnv("S3_SECRET_KEY", ""),
		S3Bucket:    readEnv("S3_BUCKET", "ingestd-documents"),
		S3Region:    readEnv("S3_REGION", "us-east-1"),
		S3UseSSL:    parseBool("S3_USE_SSL", false),
		PresignTTL:  parseDuration("INGESTD_PRESIGN_TTL", defaultPresignTTL),

		QdrantHost:   readEnv("QDRANT_HOST", "localhost"),
		QdrantPort:   parseInt("QDRANT_PORT", 6334),
		QdrantAPIKey: readEnv("QDRANT_API_KEY", ""),
		QdrantUseTLS: parseBool("QDRANT_USE_TLS", false),
		Collection:   readEnv("INGESTD_COLLECTION", defaultCollection),

		OpenAIKey:      readEnv("OPENAI_API_KEY", ""),
		EmbeddingModel: readEnv("OPENAI_EMBEDDING_MODEL", defaultModel),

		ChunkSize:    parseInt("INGESTD_CHUNK_SIZE", defaultChunkSize),
		ChunkOverlap: parseInt("INGESTD_CHUNK_OVERLAP", defaultOverlap),

		Workers:       parseInt("INGESTD_WORKERS", defaultWorkers),
		QueueDepth:    parseInt("INGESTD_QUEUE_DEPTH", defaultQueueDepth),
		SweepInterval: parseDuration("INGESTD_SWEEP_INTERVAL", defaultSweepEvery),
		StuckTimeout:  parseDuration("INGESTD_STUCK_TIMEOUT", defaultStuckAfter),
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.PoolMinConns < 1 {
		cfg.PoolMinConns = 1
	}
	if cfg.PoolMaxConns < cfg.PoolMinConns {
		cfg.PoolMaxConns = cfg.PoolMinConns
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = defaultOverlap
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	return cfg, nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	out := strings.Split(val, ",")
	for i := range out {
		out[i] = strings.ToLower(strings.TrimSpace(out[i]))
	}
	return out
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
