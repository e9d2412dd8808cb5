package retrieval

import (
	"context"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
)

// Repository defines the storage contract for candidate retrieval.
type Repository interface {
	FetchCandidates(
		ctx context.Context, vector []float32, k int, includeVectors bool,
	) ([]result.Match, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
