package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
)

// Retrieval parameter limits.
const (
	// MaxQuestionLength is the maximum allowed question length.
	MaxQuestionLength = 4096
	// MaxK is the maximum result count per retrieval.
	MaxK = 100
	// DefaultLambda is the MMR relevance/diversity trade-off of the
	// reference deployment.
	DefaultLambda = 0.25
)

// Request is a validated retrieval query.
type Request struct {
	question      string
	retrievalMode mode.Mode
	k             int
	lambda        float64
}

// New validates and normalizes retrieval parameters.
// The question must be non-empty after trimming; k must be >= 1; lambda is
// the MMR trade-off in [0, 1] (ignored in nearest mode). Mode defaults to
// nearest. Violations are wrapped with domain.ErrInvalidRequest.
func New(question string, m mode.Mode, k int, lambda float64) (Request, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Request{}, fmt.Errorf("%w: question is required", domain.ErrInvalidRequest)
	}
	if len(question) > MaxQuestionLength {
		return Request{}, fmt.Errorf("%w: question too long (max %d chars)", domain.ErrInvalidRequest, MaxQuestionLength)
	}
	if m == "" {
		m = mode.Nearest
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid retrieval mode %q", domain.ErrInvalidRequest, m)
	}
	if k < 1 {
		return Request{}, fmt.Errorf("%w: k must be >= 1, got %d", domain.ErrInvalidRequest, k)
	}
	if k > MaxK {
		k = MaxK
	}
	if lambda < 0 || lambda > 1 {
		return Request{}, fmt.Errorf("%w: lambda must be between 0 and 1, got %g", domain.ErrInvalidRequest, lambda)
	}

	return Request{
		question:      question,
		retrievalMode: m,
		k:             k,
		lambda:        lambda,
	}, nil
}

// Question returns the query text.
func (r *Request) Question() string { return r.question }

// Mode returns the retrieval strategy.
func (r *Request) Mode() mode.Mode { return r.retrievalMode }

// K returns the requested result count.
func (r *Request) K() int { return r.k }

// Lambda returns the MMR relevance/diversity trade-off.
func (r *Request) Lambda() float64 { return r.lambda }
