// Package corpus owns the Q&A index lifecycle: FT index bootstrap and the
// embedding-model compatibility check that guards against version skew
// between ingestion-time and query-time embeddings.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/askdex/internal/db"
	"github.com/kailas-cloud/askdex/internal/domain"
)

// KeyPrefix namespaces all corpus keys.
const KeyPrefix = "askdex:"

// DocPrefix is the hash key prefix for Q&A rows.
const DocPrefix = KeyPrefix + "qa:"

// IndexName is the FT index over the Q&A rows.
const IndexName = DocPrefix + "idx"

// metaKey stores the embedding model tag and dimensionality the corpus was
// built with.
const metaKey = KeyPrefix + "corpus:meta"

// store is the consumer interface for corpus bootstrap (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig tunes the vector index build.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo manages the corpus index and its embedding-model metadata.
type Repo struct {
	store      store
	model      string
	dimensions int
	hnsw       HNSWConfig
}

// New creates a corpus repository pinned to an embedding model and dimensionality.
func New(s store, model string, dimensions int) *Repo {
	return &Repo{store: s, model: model, dimensions: dimensions}
}

// WithHNSW overrides HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// Ensure creates the FT index when absent and verifies that the stored
// corpus metadata matches the live embedding adapter. A corpus embedded with
// a different model or dimensionality is unusable: query vectors and stored
// vectors would live in different spaces, so this fails hard at startup.
func (r *Repo) Ensure(ctx context.Context) error {
	meta, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("%w: read corpus meta: %w", domain.ErrStoreUnavailable, err)
	}

	if len(meta) > 0 {
		if got := meta["model"]; got != r.model {
			return fmt.Errorf("%w: corpus embedded with %q, adapter configured for %q",
				domain.ErrModelMismatch, got, r.model)
		}
		if got, _ := strconv.Atoi(meta["dimensions"]); got != r.dimensions {
			return fmt.Errorf("%w: corpus has %d dimensions, adapter produces %d",
				domain.ErrVectorDimMismatch, got, r.dimensions)
		}
	} else {
		fields := map[string]string{
			"model":      r.model,
			"dimensions": strconv.Itoa(r.dimensions),
		}
		if err := r.store.HSet(ctx, metaKey, fields); err != nil {
			return fmt.Errorf("%w: write corpus meta: %w", domain.ErrStoreUnavailable, err)
		}
	}

	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("%w: probe index: %w", domain.ErrStoreUnavailable, err)
	}
	if exists {
		return nil
	}

	def := r.indexDefinition()
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("%w: create index: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Repo) indexDefinition() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     IndexName,
		Prefixes: []string{DocPrefix},
		Fields: []db.IndexField{
			{Name: "content", Type: db.IndexFieldText},
			{Name: "source", Type: db.IndexFieldTag},
			{Name: "focus_area", Type: db.IndexFieldTag},
			{
				Name:              "embedding",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}
}
