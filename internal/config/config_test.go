package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ingestd")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, int64(25<<20), cfg.MaxFileSize)
	assert.Equal(t, []string{".pdf", ".docx", ".txt"}, cfg.AllowedExts)
	assert.Equal(t, int32(1), cfg.PoolMinConns)
	assert.Equal(t, int32(10), cfg.PoolMaxConns)
	assert.Equal(t, "document-qa", cfg.Collection)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 5*time.Minute, cfg.PresignTTL)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ingestd")
	t.Setenv("INGESTD_ADDRESS", ":9999")
	t.Setenv("INGESTD_ALLOWED_EXTS", ".TXT, .md")
	t.Setenv("INGESTD_CHUNK_SIZE", "800")
	t.Setenv("INGESTD_CHUNK_OVERLAP", "100")
	t.Setenv("INGESTD_STUCK_TIMEOUT", "30m")
	t.Setenv("QDRANT_PORT", "7443")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Address)
	assert.Equal(t, []string{".txt", ".md"}, cfg.AllowedExts)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 30*time.Minute, cfg.StuckTimeout)
	assert.Equal(t, 7443, cfg.QdrantPort)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ingestd")
	t.Setenv("INGESTD_MAX_FILE_BYTES", "not-a-number")
	t.Setenv("INGESTD_SWEEP_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(25<<20), cfg.MaxFileSize)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestLoadRejectsOverlapLargerThanChunk(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ingestd")
	t.Setenv("INGESTD_CHUNK_SIZE", "100")
	t.Setenv("INGESTD_CHUNK_OVERLAP", "150")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.ChunkOverlap)
}
