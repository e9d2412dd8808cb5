// Package chi exposes the HTTP API: answering, source listing, document
// ingestion, health, and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/metrics"
	answeruc "github.com/kailas-cloud/askdex/internal/usecase/answer"
	documentuc "github.com/kailas-cloud/askdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest           = "bad_request"
	codeValidationFailed     = "validation_failed"
	codeNotFound             = "not_found"
	codeVectorDimMismatch    = "vector_dim_mismatch"
	codeEmbeddingUnavailable = "embedding_unavailable"
	codeStoreUnavailable     = "store_unavailable"
	codeInternalError        = "internal_error"
)

// DefaultTemperature is applied when an answer request omits temperature.
const DefaultTemperature = 0.5

// similarityType names the reported score semantics.
const similarityType = "cosine"

// AnswerService resolves questions into answer bundles.
type AnswerService interface {
	Answer(ctx context.Context, q answeruc.Query) (answeruc.Bundle, error)
}

// RetrievalService runs raw retrieval requests.
type RetrievalService interface {
	Retrieve(ctx context.Context, req *request.Request) ([]result.Match, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires usecases into HTTP handlers.
type Server struct {
	answers       AnswerService
	retrieval     RetrievalService
	documents     *documentuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	answers AnswerService,
	retrieval RetrievalService,
	documents *documentuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		answers:   answers,
		retrieval: retrieval,
		documents: documents,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, codeEmbeddingUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Routes mounts all API routes on a chi router.
func (s *Server) Routes(r chirouter.Router) {
	r.Post("/answer", s.PostAnswer)
	r.Get("/sources", s.GetSources)
	r.Put("/documents/{id}", s.UpsertDocument)
	r.Get("/documents/{id}", s.GetDocument)
	r.Delete("/documents/{id}", s.DeleteDocument)
	r.Post("/documents/batch", s.BatchUpsert)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type answerRequest struct {
	Question    string   `json:"question"`
	Language    string   `json:"language"`
	Temperature *float32 `json:"temperature"`
}

type sourceItem struct {
	ID              string  `json:"id"`
	SimilarityScore float64 `json:"similarity_score"`
	SimilarityType  string  `json:"similarity_type"`
	Rank            int     `json:"rank"`
	Content         string  `json:"content,omitempty"`
	Source          string  `json:"source,omitempty"`
	FocusArea       string  `json:"focus_area,omitempty"`
}

type answerResponse struct {
	Answer          string       `json:"answer"`
	RefinedAnswer   string       `json:"refined_answer,omitempty"`
	Refined         bool         `json:"refined"`
	Language        string       `json:"language"`
	Source          string       `json:"source,omitempty"`
	FocusArea       string       `json:"focus_area,omitempty"`
	SimilarityScore float64      `json:"similarity_score"`
	Sources         []sourceItem `json:"sources"`
}

// PostAnswer handles POST /answer.
func (s *Server) PostAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	temperature := float32(DefaultTemperature)
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	bundle, err := s.answers.Answer(r.Context(), answeruc.Query{
		Question:    req.Question,
		Language:    req.Language,
		Temperature: temperature,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	metrics.AnswersTotal.WithLabelValues(string(bundle.Language), strconv.FormatBool(bundle.Refined)).Inc()

	writeJSON(w, http.StatusOK, answerResponse{
		Answer:          bundle.PrimaryAnswer,
		RefinedAnswer:   bundle.RefinedAnswer,
		Refined:         bundle.Refined,
		Language:        string(bundle.Language),
		Source:          bundle.Primary.Source(),
		FocusArea:       bundle.Primary.FocusArea(),
		SimilarityScore: bundle.Primary.Distance(),
		Sources:         sourcesToItems(bundle.Sources),
	})
}

type sourcesResponse struct {
	Sources []sourceItem `json:"sources"`
}

// GetSources handles GET /sources.
func (s *Server) GetSources(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("question")

	k := answeruc.DefaultSourcesK
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "k must be an integer")
			return
		}
		k = parsed
	}

	lambda := answeruc.DefaultSourcesLambda
	if raw := r.URL.Query().Get("lambda"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "lambda must be a number")
			return
		}
		lambda = parsed
	}

	req, err := request.New(question, mode.Diversified, k, lambda)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	matches, err := s.retrieval.Retrieve(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, sourcesResponse{Sources: []sourceItem{}})
			return
		}
		s.handleDomainError(w, err)
		return
	}

	metrics.RetrievalsTotal.WithLabelValues(string(mode.Diversified), "success").Inc()
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: sourcesToItems(matches)})
}

type upsertDocumentRequest struct {
	Content   string    `json:"content"`
	Answer    string    `json:"answer,omitempty"`
	Source    string    `json:"source,omitempty"`
	FocusArea string    `json:"focus_area,omitempty"`
	Vector    []float32 `json:"vector,omitempty"`
}

type documentResponse struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Answer     string `json:"answer,omitempty"`
	Source     string `json:"source,omitempty"`
	FocusArea  string `json:"focus_area,omitempty"`
	Dimensions int    `json:"dimensions"`
}

// UpsertDocument handles PUT /documents/{id}.
func (s *Server) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")

	var req upsertDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	doc, err := s.documents.Upsert(r.Context(), documentuc.Input{
		ID:        id,
		Content:   req.Content,
		Answer:    req.Answer,
		Source:    req.Source,
		FocusArea: req.FocusArea,
		Vector:    req.Vector,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentResponse{
		ID:         doc.ID(),
		Content:    doc.Content(),
		Answer:     doc.RawAnswer(),
		Source:     doc.Source(),
		FocusArea:  doc.FocusArea(),
		Dimensions: len(doc.Vector()),
	})
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")

	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentResponse{
		ID:         doc.ID(),
		Content:    doc.Content(),
		Answer:     doc.RawAnswer(),
		Source:     doc.Source(),
		FocusArea:  doc.FocusArea(),
		Dimensions: len(doc.Vector()),
	})
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")

	if err := s.documents.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type batchUpsertRequest struct {
	Documents []batchUpsertItem `json:"documents"`
}

type batchUpsertItem struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Answer    string    `json:"answer,omitempty"`
	Source    string    `json:"source,omitempty"`
	FocusArea string    `json:"focus_area,omitempty"`
	Vector    []float32 `json:"vector,omitempty"`
}

type batchUpsertResponse struct {
	Ingested int      `json:"ingested"`
	IDs      []string `json:"ids"`
}

// BatchUpsert handles POST /documents/batch.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request) {
	var req batchUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	inputs := make([]documentuc.Input, len(req.Documents))
	for i, item := range req.Documents {
		inputs[i] = documentuc.Input{
			ID:        item.ID,
			Content:   item.Content,
			Answer:    item.Answer,
			Source:    item.Source,
			FocusArea: item.FocusArea,
			Vector:    item.Vector,
		}
	}

	docs, err := s.documents.BatchUpsert(r.Context(), inputs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID()
	}

	writeJSON(w, http.StatusOK, batchUpsertResponse{
		Ingested: len(docs),
		IDs:      ids,
	})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func sourcesToItems(matches []result.Match) []sourceItem {
	items := make([]sourceItem, len(matches))
	for i := range matches {
		m := &matches[i]
		items[i] = sourceItem{
			ID:              m.ID(),
			SimilarityScore: m.Distance(),
			SimilarityType:  similarityType,
			Rank:            m.Rank(),
			Content:         m.Content(),
			Source:          m.Source(),
			FocusArea:       m.FocusArea(),
		}
	}
	return items
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingUnavailable,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
