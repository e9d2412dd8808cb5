// Package document handles corpus ingestion: validation, server-side
// embedding, and whole-row persistence.
package document

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/askdex/internal/domain"
	domdoc "github.com/kailas-cloud/askdex/internal/domain/document"
)

// MaxBatchSize bounds a single batch ingestion call.
const MaxBatchSize = 100

// Input is a single document to ingest. When Vector is nil the service
// embeds Content itself; a caller-supplied vector must match the index
// dimensionality.
type Input struct {
	ID        string
	Content   string
	Answer    string
	Source    string
	FocusArea string
	Vector    []float32
}

// Service handles document ingestion.
type Service struct {
	repo       Repository
	embed      Embedder
	dimensions int
}

// New creates a document service.
func New(repo Repository, embed Embedder, dimensions int) *Service {
	return &Service{repo: repo, embed: embed, dimensions: dimensions}
}

// Upsert validates, embeds if needed, and stores a document. The write
// replaces any prior row under the same ID.
func (s *Service) Upsert(ctx context.Context, in Input) (domdoc.Document, error) {
	doc, err := s.prepare(in)
	if err != nil {
		return domdoc.Document{}, err
	}

	if doc.Vector() == nil {
		res, err := s.embed.Embed(ctx, doc.Content())
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("embed document %s: %w", doc.ID(), err)
		}
		doc = doc.WithVector(res.Embedding)
	}

	if err := s.repo.Upsert(ctx, doc); err != nil {
		return domdoc.Document{}, err
	}
	return doc, nil
}

// BatchUpsert ingests up to MaxBatchSize documents. Documents without
// vectors are embedded in a single batch call. The batch is all-or-nothing
// up to the first storage failure: earlier writes are not rolled back.
func (s *Service) BatchUpsert(ctx context.Context, inputs []Input) ([]domdoc.Document, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", domain.ErrInvalidRequest)
	}
	if len(inputs) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch exceeds %d documents", domain.ErrInvalidRequest, MaxBatchSize)
	}

	docs := make([]domdoc.Document, len(inputs))
	var pending []int
	var texts []string

	for i, in := range inputs {
		doc, err := s.prepare(in)
		if err != nil {
			return nil, fmt.Errorf("document [%d]: %w", i, err)
		}
		docs[i] = doc
		if doc.Vector() == nil {
			pending = append(pending, i)
			texts = append(texts, doc.Content())
		}
	}

	if len(pending) > 0 {
		res, err := s.embed.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("batch embed: %w", err)
		}
		if len(res.Embeddings) != len(pending) {
			return nil, fmt.Errorf("%w: batch embed returned %d vectors for %d texts",
				domain.ErrEmbeddingUnavailable, len(res.Embeddings), len(pending))
		}
		for j, i := range pending {
			docs[i] = docs[i].WithVector(res.Embeddings[j])
		}
	}

	for i := range docs {
		if err := s.repo.Upsert(ctx, docs[i]); err != nil {
			return nil, fmt.Errorf("document [%d]: %w", i, err)
		}
	}
	return docs, nil
}

// Get fetches a stored document by ID.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes a document. Absent IDs are not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) prepare(in Input) (domdoc.Document, error) {
	doc, err := domdoc.New(in.ID, in.Content, in.Answer, in.Source, in.FocusArea)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	if in.Vector != nil {
		if len(in.Vector) != s.dimensions {
			return domdoc.Document{}, fmt.Errorf("%w: vector has %d dimensions, index expects %d",
				domain.ErrVectorDimMismatch, len(in.Vector), s.dimensions)
		}
		doc = doc.WithVector(in.Vector)
	}
	return doc, nil
}
