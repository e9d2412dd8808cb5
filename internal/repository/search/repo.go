// Package search adapts FT.SEARCH KNN results into domain retrieval matches.
package search

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/askdex/internal/db"
	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/repository/corpus"
)

// baseReturnFields are always hydrated from the hit.
var baseReturnFields = []string{"content", "answer", "source", "focus_area"}

// Repo runs KNN queries against the corpus index.
type Repo struct {
	store db.Searcher
}

// New creates a search repository.
func New(s db.Searcher) *Repo {
	return &Repo{store: s}
}

// FetchCandidates returns the k nearest documents to the query vector,
// ordered by ascending cosine distance. When includeVectors is set, each
// match also carries its stored embedding so the caller can re-rank by
// pairwise similarity.
func (r *Repo) FetchCandidates(ctx context.Context, vector []float32, k int, includeVectors bool) ([]result.Match, error) {
	fields := baseReturnFields
	if includeVectors {
		fields = append(append([]string{}, baseReturnFields...), "embedding")
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    corpus.IndexName,
		Vector:       vector,
		K:            k,
		ReturnFields: fields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn search: %w", domain.ErrStoreUnavailable, err)
	}

	matches := make([]result.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		m, err := toMatch(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func toMatch(e db.SearchEntry) (result.Match, error) {
	id := strings.TrimPrefix(e.Key, corpus.DocPrefix)

	var vec []float32
	if raw, ok := e.Fields["embedding"]; ok {
		var err error
		vec, err = decodeVector([]byte(raw))
		if err != nil {
			return result.Match{}, fmt.Errorf("hit %q: %w", id, err)
		}
	}

	return result.New(
		id,
		e.Distance,
		e.Fields["content"],
		e.Fields["answer"],
		e.Fields["source"],
		e.Fields["focus_area"],
		vec,
	), nil
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec, nil
}
