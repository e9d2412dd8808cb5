package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed request (empty question, k < 1).
	// Rejected before any downstream call is made.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound signals that the store returned zero candidates for a query.
	ErrNotFound = errors.New("no matching answer found")
	// ErrVectorDimMismatch signals a vector dimension mismatch between a
	// document or query vector and the corpus dimensionality.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrModelMismatch signals that the corpus was embedded with a different
	// model version than the live embedding adapter is configured for.
	ErrModelMismatch = errors.New("embedding model mismatch")
	// ErrEmbeddingUnavailable signals an embedding provider failure. Fatal for
	// the whole request: nothing can be retrieved without a query vector.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrStoreUnavailable signals a vector store failure.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)
