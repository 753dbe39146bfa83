// Package health runs the liveness probes exposed by GET /health.
package health

import (
	"context"
	"log/slog"
)

// DatabaseProber runs a trivial query against the connection pool.
type DatabaseProber interface {
	Probe(ctx context.Context) error
}

// CollectionLister exercises the vector store without mutating it.
type CollectionLister interface {
	ListCollections(ctx context.Context) ([]string, error)
}

// Probe is the outcome of one check: ok, or a reason it was not.
type Probe struct {
	OK     bool
	Reason string
}

// Report aggregates both probes. The health endpoint serializes exactly this.
type Report struct {
	DatabaseOK    bool `json:"database_ok"`
	VectorStoreOK bool `json:"vector_store_ok"`
}

// Checker runs both probes independently. Probe failures are converted to
// booleans and logged; they never propagate to the caller.
type Checker struct {
	db      DatabaseProber
	vectors CollectionLister
	logger  *slog.Logger
}

// NewChecker constructs a Checker.
func NewChecker(db DatabaseProber, vectors CollectionLister, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{db: db, vectors: vectors, logger: logger.With("component", "health")}
}

// Check runs both probes and reports the combined result.
func (c *Checker) Check(ctx context.Context) Report {
	db := c.probeDatabase(ctx)
	vs := c.probeVectorStore(ctx)
	if !db.OK {
		c.logger.Warn("database probe failed", "reason", db.Reason)
	}
	if !vs.OK {
		c.logger.Warn("vector store probe failed", "reason", vs.Reason)
	}
	return Report{DatabaseOK: db.OK, VectorStoreOK: vs.OK}
}

func (c *Checker) probeDatabase(ctx context.Context) Probe {
	if err := c.db.Probe(ctx); err != nil {
		return Probe{Reason: err.Error()}
	}
	return Probe{OK: true}
}

func (c *Checker) probeVectorStore(ctx context.Context) Probe {
	if _, err := c.vectors.ListCollections(ctx); err != nil {
		return Probe{Reason: err.Error()}
	}
	return Probe{OK: true}
}
