// Package answer composes retrieval into a full answer: an authoritative
// top-1 match, a diversified source list, and a generative rewrite of the
// stored answer. Only the top-1 match is load-bearing; both enrichments
// degrade gracefully when their collaborators fail.
package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/language"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
)

const (
	// DefaultSourcesK is how many supporting sources accompany an answer.
	DefaultSourcesK = 3
	// DefaultSourcesLambda biases the source list toward diversity.
	DefaultSourcesLambda = 0.25
)

// Query is an answer request.
type Query struct {
	Question    string
	Language    string
	Temperature float32
}

// Bundle is a complete answer: the authoritative match, the refined text,
// and the supporting sources.
type Bundle struct {
	Primary       result.Match
	PrimaryAnswer string
	RefinedAnswer string
	Refined       bool
	Sources       []result.Match
	Language      language.Language
}

// Service synthesizes answers from retrieval and refinement.
type Service struct {
	retriever Retriever
	refiner   Refiner
	logger    *zap.Logger

	sourcesK      int
	sourcesLambda float64
}

// New creates an answer service.
func New(retriever Retriever, refiner Refiner, logger *zap.Logger) *Service {
	return &Service{
		retriever:     retriever,
		refiner:       refiner,
		logger:        logger,
		sourcesK:      DefaultSourcesK,
		sourcesLambda: DefaultSourcesLambda,
	}
}

// WithSources overrides the source list size and diversity bias.
func (s *Service) WithSources(k int, lambda float64) *Service {
	if k > 0 {
		s.sourcesK = k
	}
	if lambda >= 0 && lambda <= 1 {
		s.sourcesLambda = lambda
	}
	return s
}

// Answer resolves a question into a Bundle. The top-1 nearest match is
// authoritative: its failure fails the call and cancels in-flight
// enrichment. Source retrieval failure yields an empty source list, and
// refinement failure yields a marked failure string with the stored answer
// still intact.
func (s *Service) Answer(ctx context.Context, q Query) (Bundle, error) {
	if q.Temperature < 0 || q.Temperature > 1 {
		return Bundle{}, fmt.Errorf("%w: temperature must be in [0, 1]", domain.ErrInvalidRequest)
	}

	primaryReq, err := request.New(q.Question, mode.Nearest, 1, request.DefaultLambda)
	if err != nil {
		return Bundle{}, err
	}
	sourcesReq, err := request.New(q.Question, mode.Diversified, s.sourcesK, s.sourcesLambda)
	if err != nil {
		return Bundle{}, err
	}

	lang := language.Normalize(q.Language)

	g, gctx := errgroup.WithContext(ctx)

	var sources []result.Match
	g.Go(func() error {
		matches, err := s.retriever.Retrieve(gctx, &sourcesReq)
		if err != nil {
			s.logger.Warn("Source retrieval failed, returning answer without sources",
				zap.Error(err))
			return nil
		}
		sources = matches
		return nil
	})

	var primary result.Match
	var refined string
	var refinedOK bool
	g.Go(func() error {
		matches, err := s.retriever.Retrieve(gctx, &primaryReq)
		if err != nil {
			return fmt.Errorf("retrieve answer: %w", err)
		}
		primary = matches[0]
		refined, refinedOK = s.refine(gctx, q.Question, primary.Answer(), lang, q.Temperature)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Bundle{}, err
	}

	return Bundle{
		Primary:       primary,
		PrimaryAnswer: primary.Answer(),
		RefinedAnswer: refined,
		Refined:       refinedOK,
		Sources:       sources,
		Language:      lang,
	}, nil
}

func (s *Service) refine(
	ctx context.Context, question, stored string, lang language.Language, temperature float32,
) (string, bool) {
	refined, err := s.refiner.Refine(ctx, question, stored, lang, temperature)
	if err != nil {
		s.logger.Warn("Answer refinement failed, returning stored answer only",
			zap.String("language", string(lang)), zap.Error(err))
		return "refinement failed: " + err.Error(), false
	}
	return refined, true
}
