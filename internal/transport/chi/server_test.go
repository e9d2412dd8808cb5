package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
	domdoc "github.com/kailas-cloud/askdex/internal/domain/document"
	"github.com/kailas-cloud/askdex/internal/domain/language"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/metrics"
	answeruc "github.com/kailas-cloud/askdex/internal/usecase/answer"
	documentuc "github.com/kailas-cloud/askdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterAnswerMetrics()
	os.Exit(m.Run())
}

type mockAnswers struct {
	answerFunc func(ctx context.Context, q answeruc.Query) (answeruc.Bundle, error)
}

func (m *mockAnswers) Answer(ctx context.Context, q answeruc.Query) (answeruc.Bundle, error) {
	return m.answerFunc(ctx, q)
}

type mockRetrieval struct {
	retrieveFunc func(ctx context.Context, req *request.Request) ([]result.Match, error)
}

func (m *mockRetrieval) Retrieve(ctx context.Context, req *request.Request) ([]result.Match, error) {
	return m.retrieveFunc(ctx, req)
}

type memDocRepo struct {
	docs map[string]domdoc.Document
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{docs: make(map[string]domdoc.Document)}
}

func (r *memDocRepo) Upsert(ctx context.Context, doc domdoc.Document) error {
	r.docs[doc.ID()] = doc
	return nil
}

func (r *memDocRepo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return domdoc.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return doc, nil
}

func (r *memDocRepo) Delete(ctx context.Context, id string) error {
	delete(r.docs, id)
	return nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}, nil
}

func (fixedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{0.1, 0.2, 0.3}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

func newTestRouter(answers AnswerService, retrieval RetrievalService, pingErr error) http.Handler {
	docs := documentuc.New(newMemDocRepo(), fixedEmbedder{}, 3)
	health := healthuc.New(&mockPinger{err: pingErr}, nil)

	srv := NewServer(answers, retrieval, docs, health, zap.NewNop())
	r := chirouter.NewRouter()
	srv.Routes(r)
	return r
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestPostAnswer(t *testing.T) {
	answers := &mockAnswers{
		answerFunc: func(ctx context.Context, q answeruc.Query) (answeruc.Bundle, error) {
			if q.Temperature != 0.5 {
				t.Errorf("default temperature = %v, want 0.5", q.Temperature)
			}
			primary := result.New("bmi", 0.12, "Question: What is BMI?", "Body mass index.", "who.int", "nutrition", nil)
			src := result.New("s1", 0.2, "c1", "", "cdc.gov", "", nil)
			return answeruc.Bundle{
				Primary:       primary.WithRank(1),
				PrimaryAnswer: "Body mass index.",
				RefinedAnswer: "BMI measures body fat.",
				Refined:       true,
				Sources:       []result.Match{src.WithRank(1)},
				Language:      language.English,
			}, nil
		},
	}

	handler := newTestRouter(answers, &mockRetrieval{}, nil)
	rr := postJSON(t, handler, "/answer", map[string]any{"question": "what is bmi"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp answerResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "Body mass index." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if !resp.Refined || resp.RefinedAnswer != "BMI measures body fat." {
		t.Errorf("refined = %v %q", resp.Refined, resp.RefinedAnswer)
	}
	if resp.SimilarityScore != 0.12 {
		t.Errorf("similarity_score = %v", resp.SimilarityScore)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != "s1" {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if resp.Sources[0].SimilarityType != "cosine" {
		t.Errorf("similarity_type = %q", resp.Sources[0].SimilarityType)
	}
}

func TestPostAnswerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound, codeNotFound},
		{"invalid", fmt.Errorf("%w: empty question", domain.ErrInvalidRequest), http.StatusBadRequest, codeValidationFailed},
		{"embedding down", fmt.Errorf("%w: timeout", domain.ErrEmbeddingUnavailable), http.StatusBadGateway, codeEmbeddingUnavailable},
		{"store down", fmt.Errorf("%w: refused", domain.ErrStoreUnavailable), http.StatusServiceUnavailable, codeStoreUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, codeInternalError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			answers := &mockAnswers{
				answerFunc: func(ctx context.Context, q answeruc.Query) (answeruc.Bundle, error) {
					return answeruc.Bundle{}, tc.err
				},
			}

			handler := newTestRouter(answers, &mockRetrieval{}, nil)
			rr := postJSON(t, handler, "/answer", map[string]any{"question": "q"})

			if rr.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.wantStatus)
			}

			var errResp errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", errResp.Code, tc.wantCode)
			}
		})
	}
}

func TestPostAnswerBadJSON(t *testing.T) {
	handler := newTestRouter(&mockAnswers{}, &mockRetrieval{}, nil)

	req := httptest.NewRequest("POST", "/answer", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestGetSources(t *testing.T) {
	retrieval := &mockRetrieval{
		retrieveFunc: func(ctx context.Context, req *request.Request) ([]result.Match, error) {
			if req.K() != 3 {
				t.Errorf("k = %d, want default 3", req.K())
			}
			if req.Lambda() != 0.25 {
				t.Errorf("lambda = %v, want default 0.25", req.Lambda())
			}
			s1 := result.New("s1", 0.1, "c1", "", "who.int", "nutrition", nil)
			s2 := result.New("s2", 0.3, "c2", "", "", "", nil)
			return []result.Match{s1.WithRank(1), s2.WithRank(2)}, nil
		},
	}

	handler := newTestRouter(&mockAnswers{}, retrieval, nil)

	req := httptest.NewRequest("GET", "/sources?question=what+is+bmi", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp sourcesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(resp.Sources))
	}
	if resp.Sources[0].Rank != 1 || resp.Sources[1].Rank != 2 {
		t.Errorf("ranks = %d, %d", resp.Sources[0].Rank, resp.Sources[1].Rank)
	}
	if resp.Sources[0].SimilarityType != "cosine" {
		t.Errorf("similarity_type = %q", resp.Sources[0].SimilarityType)
	}
}

func TestGetSourcesEmptyCorpusIsEmptyList(t *testing.T) {
	retrieval := &mockRetrieval{
		retrieveFunc: func(ctx context.Context, req *request.Request) ([]result.Match, error) {
			return nil, domain.ErrNotFound
		},
	}

	handler := newTestRouter(&mockAnswers{}, retrieval, nil)

	req := httptest.NewRequest("GET", "/sources?question=anything", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with empty list", rr.Code)
	}

	var resp sourcesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("sources = %d, want 0", len(resp.Sources))
	}
}

func TestGetSourcesMissingQuestion(t *testing.T) {
	handler := newTestRouter(&mockAnswers{}, &mockRetrieval{}, nil)

	req := httptest.NewRequest("GET", "/sources", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestUpsertDocumentRoundTrip(t *testing.T) {
	handler := newTestRouter(&mockAnswers{}, &mockRetrieval{}, nil)

	raw, _ := json.Marshal(upsertDocumentRequest{
		Content:   "Question: What is BMI?\nAnswer: Body mass index.",
		Answer:    "Body mass index.",
		Source:    "who.int",
		FocusArea: "nutrition",
	})
	req := httptest.NewRequest("PUT", "/documents/bmi", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp documentResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "bmi" || resp.Dimensions != 3 {
		t.Errorf("resp = %+v", resp)
	}

	getReq := httptest.NewRequest("GET", "/documents/bmi", http.NoBody)
	getRR := httptest.NewRecorder()
	handler.ServeHTTP(getRR, getReq)

	if getRR.Code != http.StatusOK {
		t.Fatalf("get status = %d", getRR.Code)
	}

	delReq := httptest.NewRequest("DELETE", "/documents/bmi", http.NoBody)
	delRR := httptest.NewRecorder()
	handler.ServeHTTP(delRR, delReq)

	if delRR.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", delRR.Code)
	}

	againRR := httptest.NewRecorder()
	handler.ServeHTTP(againRR, httptest.NewRequest("GET", "/documents/bmi", http.NoBody))
	if againRR.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", againRR.Code)
	}
}

func TestUpsertDocumentInvalidID(t *testing.T) {
	handler := newTestRouter(&mockAnswers{}, &mockRetrieval{}, nil)

	raw, _ := json.Marshal(upsertDocumentRequest{Content: "c"})
	req := httptest.NewRequest("PUT", "/documents/bad%20id", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestBatchUpsert(t *testing.T) {
	handler := newTestRouter(&mockAnswers{}, &mockRetrieval{}, nil)

	rr := postJSON(t, handler, "/documents/batch", batchUpsertRequest{
		Documents: []batchUpsertItem{
			{ID: "a", Content: "ca"},
			{ID: "b", Content: "cb"},
		},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp batchUpsertResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Ingested != 2 || len(resp.IDs) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestBatchUpsertEmpty(t *testing.T) {
	handler := newTestRouter(&mockAnswers{}, &mockRetrieval{}, nil)

	rr := postJSON(t, handler, "/documents/batch", batchUpsertRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	handler := newTestRouter(&mockAnswers{}, &mockRetrieval{}, nil)

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestHealthCheckStoreDown(t *testing.T) {
	handler := newTestRouter(&mockAnswers{}, &mockRetrieval{}, errors.New("refused"))

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestRouter(&mockAnswers{}, &mockRetrieval{}, nil)

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Error("expected non-empty metrics body")
	}
}
