package ingest

import "errors"

var (
	// ErrUnsupportedType is returned when the upload's extension is outside
	// the allow-set. No document row exists for such uploads.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrQueueFull is returned when the background pool cannot take another
	// job. The document has already been marked failed by then.
	ErrQueueFull = errors.New("ingestion queue full")
)
