// Package document persists Q&A rows as Redis hashes under the corpus prefix.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/askdex/internal/db"
	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/document"
	"github.com/kailas-cloud/askdex/internal/repository/corpus"
)

// store is the consumer interface for document persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
}

// Repo stores documents as hashes keyed askdex:qa:<id>.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert replaces the stored row for a document. HSET merges into an existing
// hash, so the key is deleted first to make the write a whole-row replacement
// rather than a field-level patch.
func (r *Repo) Upsert(ctx context.Context, doc document.Document) error {
	key := corpus.DocPrefix + doc.ID()

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("%w: clear document %s: %w", domain.ErrStoreUnavailable, doc.ID(), err)
	}
	if err := r.store.HSet(ctx, key, toFields(doc)); err != nil {
		return fmt.Errorf("%w: write document %s: %w", domain.ErrStoreUnavailable, doc.ID(), err)
	}
	return nil
}

// Get fetches a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (document.Document, error) {
	key := corpus.DocPrefix + id

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return document.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		return document.Document{}, fmt.Errorf("%w: read document %s: %w", domain.ErrStoreUnavailable, id, err)
	}
	if len(fields) == 0 {
		return document.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}

	doc, err := fromFields(id, fields)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return doc, nil
}

// Delete removes a document. Deleting an absent document is not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := corpus.DocPrefix + id

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("%w: delete document %s: %w", domain.ErrStoreUnavailable, id, err)
	}
	return nil
}
