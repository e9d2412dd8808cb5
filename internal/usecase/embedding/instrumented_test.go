package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
)

type mockEmbedder struct {
	embedFunc func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return m.embedFunc(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls [][]string
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls = append(m.batchCalls, texts)
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{float32(i)}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: len(texts)}, nil
}

func TestEmbedPassthrough(t *testing.T) {
	inner := &mockEmbedder{
		embedFunc: func(ctx context.Context, text string) (domain.EmbeddingResult, error) {
			return domain.EmbeddingResult{Embedding: []float32{1, 2}, TotalTokens: 5}, nil
		},
	}

	e := NewInstrumentedEmbedder(inner, "openai", "m", zap.NewNop())
	res, err := e.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(res.Embedding) != 2 || res.TotalTokens != 5 {
		t.Errorf("result = %+v", res)
	}
}

func TestEmbedError(t *testing.T) {
	wantErr := errors.New("provider down")
	inner := &mockEmbedder{
		embedFunc: func(ctx context.Context, text string) (domain.EmbeddingResult, error) {
			return domain.EmbeddingResult{}, wantErr
		},
	}

	e := NewInstrumentedEmbedder(inner, "openai", "m", zap.NewNop())
	_, err := e.Embed(context.Background(), "text")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Embed() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestBatchEmbedChunks(t *testing.T) {
	inner := &mockBatchEmbedder{}

	e := NewInstrumentedEmbedder(inner, "openai", "m", zap.NewNop())

	texts := make([]string, DefaultMaxAPIBatchSize+10)
	for i := range texts {
		texts[i] = fmt.Sprintf("t%d", i)
	}

	res, err := e.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("BatchEmbed() error = %v", err)
	}

	if len(inner.batchCalls) != 2 {
		t.Fatalf("chunks = %d, want 2", len(inner.batchCalls))
	}
	if len(inner.batchCalls[0]) != DefaultMaxAPIBatchSize {
		t.Errorf("first chunk = %d", len(inner.batchCalls[0]))
	}
	if len(inner.batchCalls[1]) != 10 {
		t.Errorf("second chunk = %d", len(inner.batchCalls[1]))
	}
	if len(res.Embeddings) != len(texts) {
		t.Errorf("embeddings = %d, want %d", len(res.Embeddings), len(texts))
	}
	if res.TotalTokens != len(texts) {
		t.Errorf("TotalTokens = %d, want %d", res.TotalTokens, len(texts))
	}
}

func TestBatchEmbedFallbackForPlainEmbedder(t *testing.T) {
	calls := 0
	inner := &mockEmbedder{
		embedFunc: func(ctx context.Context, text string) (domain.EmbeddingResult, error) {
			calls++
			return domain.EmbeddingResult{Embedding: []float32{1}}, nil
		},
	}

	e := NewInstrumentedEmbedder(inner, "openai", "m", zap.NewNop())
	res, err := e.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("BatchEmbed() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("inner calls = %d, want 3", calls)
	}
	if len(res.Embeddings) != 3 {
		t.Errorf("embeddings = %d, want 3", len(res.Embeddings))
	}
}

func TestBatchEmbedEmptyInput(t *testing.T) {
	e := NewInstrumentedEmbedder(&mockEmbedder{}, "openai", "m", zap.NewNop())
	res, err := e.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("BatchEmbed() error = %v", err)
	}
	if len(res.Embeddings) != 0 {
		t.Errorf("embeddings = %d, want 0", len(res.Embeddings))
	}
}
