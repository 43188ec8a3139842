package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/wedosoft/ticketrag/internal/platform"
)

// CollectionName is the one shared collection every tenant's points live in;
// isolation is filter-only (§3 "Vector Point").
const CollectionName = "documents"

// DenseVectorName and SparseVectorName are the named vectors configured on
// the collection, so a point can carry both in one record.
const (
	DenseVectorName  = "dense"
	SparseVectorName = "sparse"
)

// DefaultUpsertBatchSize matches §4.7's "batched (default 100/batch)".
const DefaultUpsertBatchSize = 100

// Config configures one Gateway instance.
type Config struct {
	Client         *qdrant.Client
	EmbeddingSize  uint64
	UseSparse      bool
	UpsertBatchSize int
	Backoff        platform.BackoffPolicy
}

func (c *Config) validate() error {
	if c.Client == nil {
		return fmt.Errorf("qdrant: client is required")
	}
	if c.EmbeddingSize == 0 {
		return fmt.Errorf("qdrant: embedding size must be > 0")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.UpsertBatchSize == 0 {
		c.UpsertBatchSize = DefaultUpsertBatchSize
	}
	if c.Backoff == (platform.BackoffPolicy{}) {
		c.Backoff = platform.DefaultBackoffPolicy
	}
	return c
}
