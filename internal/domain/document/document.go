package document

import (
	"fmt"
	"regexp"
)

var (
	idRegex     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	reservedIDs = map[string]bool{"batch": true, "meta": true}
)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 163840 // 160KB

// Document is a single Q&A corpus row (immutable value object).
// Content is the raw text used for matching; Answer is the precomputed
// answer returned verbatim to callers (may equal Content).
type Document struct {
	id        string
	content   string
	answer    string
	source    string
	focusArea string
	vector    []float32
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars, not reserved. Content: non-empty, max 160KB.
// Source and focus area are optional provenance labels. Vector may be attached
// later via WithVector when the service embeds content itself.
func New(id, content, answer, source, focusArea string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if reservedIDs[id] {
		return Document{}, fmt.Errorf("document ID %q is reserved", id)
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}

	return Document{
		id:        id,
		content:   content,
		answer:    answer,
		source:    source,
		focusArea: focusArea,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, content, answer, source, focusArea string, vector []float32) Document {
	return Document{
		id: id, content: content, answer: answer,
		source: source, focusArea: focusArea, vector: vector,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the raw text used for matching.
func (d *Document) Content() string { return d.content }

// Answer returns the stored answer field, falling back to content when the
// ingestion collaborator left it empty.
func (d *Document) Answer() string {
	if d.answer == "" {
		return d.content
	}
	return d.answer
}

// RawAnswer returns the answer field as stored, without the content fallback.
func (d *Document) RawAnswer() string { return d.answer }

// Source returns the provenance label ("" when absent).
func (d *Document) Source() string { return d.source }

// FocusArea returns the category label ("" when absent).
func (d *Document) FocusArea() string { return d.focusArea }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// WithVector returns a copy with the given vector set.
func (d *Document) WithVector(v []float32) Document {
	return Document{
		id: d.id, content: d.content, answer: d.answer,
		source: d.source, focusArea: d.focusArea, vector: v,
	}
}
