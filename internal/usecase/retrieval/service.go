// Package retrieval orchestrates query embedding, KNN candidate fetch, and
// the optional diversified re-ranking pass.
package retrieval

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
)

// DefaultOversample is the candidate pool multiplier for diversified
// retrieval: the re-ranker needs more candidates than it returns.
const DefaultOversample = 4

// Service handles retrieval across nearest and diversified modes.
type Service struct {
	repo       Repository
	embed      Embedder
	dimensions int
	oversample int
}

// New creates a retrieval service. dimensions is the embedding width every
// query vector must have.
func New(repo Repository, embed Embedder, dimensions int) *Service {
	return &Service{
		repo:       repo,
		embed:      embed,
		dimensions: dimensions,
		oversample: DefaultOversample,
	}
}

// WithOversample overrides the diversified candidate pool multiplier.
func (s *Service) WithOversample(n int) *Service {
	if n > 0 {
		s.oversample = n
	}
	return s
}

// Retrieve embeds the question and returns the top-k matches in final order,
// with 1-based ranks assigned. Returns ErrNotFound when the corpus yields no
// candidates at all.
func (s *Service) Retrieve(ctx context.Context, req *request.Request) ([]result.Match, error) {
	embResult, err := s.embed.Embed(ctx, req.Question())
	if err != nil {
		return nil, fmt.Errorf("vectorize question: %w", err)
	}

	vec := embResult.Embedding
	if len(vec) != s.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index expects %d",
			domain.ErrVectorDimMismatch, len(vec), s.dimensions)
	}

	var matches []result.Match
	switch req.Mode() {
	case mode.Diversified:
		matches, err = s.retrieveDiversified(ctx, vec, req.K(), req.Lambda())
	default:
		matches, err = s.repo.FetchCandidates(ctx, vec, req.K(), false)
	}
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, domain.ErrNotFound
	}

	ranked := make([]result.Match, len(matches))
	for i := range matches {
		ranked[i] = matches[i].WithRank(i + 1)
	}
	return ranked, nil
}

// retrieveDiversified fetches an oversampled candidate pool with stored
// vectors and greedily re-ranks it for relevance-diversity balance.
func (s *Service) retrieveDiversified(
	ctx context.Context, vec []float32, k int, lambda float64,
) ([]result.Match, error) {
	pool, err := s.repo.FetchCandidates(ctx, vec, k*s.oversample, true)
	if err != nil {
		return nil, err
	}
	return rankMMR(vec, pool, k, lambda), nil
}
