package document

import (
	"context"

	"github.com/kailas-cloud/askdex/internal/domain"
	domdoc "github.com/kailas-cloud/askdex/internal/domain/document"
)

// Repository defines the storage contract for document ingestion.
type Repository interface {
	Upsert(ctx context.Context, doc domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Delete(ctx context.Context, id string) error
}

// Embedder vectorizes document content, one text or a batch at a time.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
