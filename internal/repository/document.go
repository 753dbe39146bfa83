// Package repository wraps all SQL against the documents table.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dkrishnan/ingestd/internal/database"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// Status enumerates the externally observable lifecycle of a document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition occurs for this attempt.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document represents a row in the documents table. Checksum is the dedup
// key and never serialized to clients.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Checksum   string    `json:"-"`
	Status     Status    `json:"status"`
	BlobURI    *string   `json:"blob_uri"`
	Error      *string   `json:"error"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DocumentRepository is the typed data-access layer over the documents table.
// Each operation checks a connection out of the pool for its own duration
// only and releases it before returning, never holding one across a call to
// blob or vector storage.
type DocumentRepository struct {
	db *database.DB
}

// NewDocumentRepository constructs a repository over the shared pool.
func NewDocumentRepository(db *database.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, filename, checksum, status, blob_uri, error, uploaded_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var (
		doc     Document
		blobURI sql.NullString
		errMsg  sql.NullString
	)
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Checksum, &doc.Status, &blobURI, &errMsg, &doc.UploadedAt); err != nil {
		return nil, err
	}
	if blobURI.Valid {
		uri := blobURI.String
		doc.BlobURI = &uri
	}
	if errMsg.Valid {
		msg := errMsg.String
		doc.Error = &msg
	}
	return &doc, nil
}

// InsertIfAbsent atomically records a first-seen checksum with status
// processing. Concurrent callers racing on the same checksum converge on the
// winner's row through the unique constraint: the loser observes
// created=false and receives the row the winner inserted.
func (r *DocumentRepository) InsertIfAbsent(ctx context.Context, filename, checksum string) (*Document, bool, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	defer conn.Release()

	id := uuid.NewString()
	now := time.Now().UTC()
	tag, err := conn.Exec(ctx, `
		INSERT INTO documents (id, filename, checksum, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (checksum) DO NOTHING
	`, id, filename, checksum, StatusProcessing, now)
	if err != nil {
		return nil, false, fmt.Errorf("insert document: %w", err)
	}

	doc, err := scanDocument(conn.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE checksum = $1`, checksum))
	if err != nil {
		return nil, false, fmt.Errorf("select by checksum: %w", err)
	}
	return doc, tag.RowsAffected() == 1, nil
}

// GetByChecksum returns the document recorded for a checksum, or ErrNotFound.
func (r *DocumentRepository) GetByChecksum(ctx context.Context, checksum string) (*Document, error) {
	return r.getWhere(ctx, "checksum", checksum)
}

// GetByID returns a document by id, or ErrNotFound.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*Document, error) {
	return r.getWhere(ctx, "id", id)
}

func (r *DocumentRepository) getWhere(ctx context.Context, column, value string) (*Document, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	doc, err := scanDocument(conn.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	return doc, nil
}

// SetBlobURI records the blob location once upload succeeds. Upload happens
// at most once per checksum, so the column is only ever set while null.
func (r *DocumentRepository) SetBlobURI(ctx context.Context, id, uri string) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
		UPDATE documents SET blob_uri = $2 WHERE id = $1 AND blob_uri IS NULL
	`, id, uri); err != nil {
		return fmt.Errorf("set blob uri: %w", err)
	}
	return nil
}

// MarkFailed transitions a processing document to failed with the triggering
// message. Documents already in a terminal state are left untouched.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id, msg string) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
		UPDATE documents SET status = $2, error = $3
		WHERE id = $1 AND status = $4
	`, id, StatusFailed, msg, StatusProcessing); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// MarkCompleted transitions a processing document to completed and clears any
// stale error so that error is non-null only for failed documents.
func (r *DocumentRepository) MarkCompleted(ctx context.Context, id string) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
		UPDATE documents SET status = $2, error = NULL
		WHERE id = $1 AND status = $3
	`, id, StatusCompleted, StatusProcessing); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// FailStuck marks documents that have sat in processing longer than olderThan
// as failed. The cutoff keys off uploaded_at, so olderThan must exceed the
// worst-case job duration or a still-running job gets swept out from under
// its worker.
func (r *DocumentRepository) FailStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := conn.Exec(ctx, `
		UPDATE documents SET status = $1, error = 'processing timed out'
		WHERE status = $2 AND uploaded_at < $3
	`, StatusFailed, StatusProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("fail stuck documents: %w", err)
	}
	return tag.RowsAffected(), nil
}
