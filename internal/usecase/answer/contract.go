package answer

import (
	"context"

	"github.com/kailas-cloud/askdex/internal/domain/language"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
)

// Retriever runs a retrieval request and returns ranked matches.
type Retriever interface {
	Retrieve(ctx context.Context, req *request.Request) ([]result.Match, error)
}

// Refiner rewrites a stored answer for the asked question in the requested
// language.
type Refiner interface {
	Refine(
		ctx context.Context, question, storedAnswer string,
		lang language.Language, temperature float32,
	) (string, error)
}
