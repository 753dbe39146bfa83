package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeProber struct{ err error }

func (f fakeProber) Probe(ctx context.Context) error { return f.err }

type fakeLister struct{ err error }

func (f fakeLister) ListCollections(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"document-qa"}, nil
}

func TestCheckAllHealthy(t *testing.T) {
	c := NewChecker(fakeProber{}, fakeLister{}, nil)
	report := c.Check(context.Background())
	assert.True(t, report.DatabaseOK)
	assert.True(t, report.VectorStoreOK)
}

func TestCheckProbesAreIndependent(t *testing.T) {
	c := NewChecker(fakeProber{err: errors.New("pool down")}, fakeLister{}, nil)
	report := c.Check(context.Background())
	assert.False(t, report.DatabaseOK)
	assert.True(t, report.VectorStoreOK)

	c = NewChecker(fakeProber{}, fakeLister{err: errors.New("qdrant down")}, nil)
	report = c.Check(context.Background())
	assert.True(t, report.DatabaseOK)
	assert.False(t, report.VectorStoreOK)
}

func TestCheckNeverPanicsOnDoubleFailure(t *testing.T) {
	c := NewChecker(fakeProber{err: errors.New("down")}, fakeLister{err: errors.New("down")}, nil)
	report := c.Check(context.Background())
	assert.False(t, report.DatabaseOK)
	assert.False(t, report.VectorStoreOK)
}
