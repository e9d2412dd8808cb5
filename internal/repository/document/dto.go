package document

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kailas-cloud/askdex/internal/domain/document"
)

const (
	fieldContent   = "content"
	fieldAnswer    = "answer"
	fieldSource    = "source"
	fieldFocusArea = "focus_area"
	fieldEmbedding = "embedding"
)

// toFields flattens a document into the hash representation stored in Redis.
// The vector is packed as little-endian float32 bytes, the layout FT.SEARCH
// expects for VECTOR fields on HASH.
func toFields(doc document.Document) map[string]string {
	fields := map[string]string{
		fieldContent: doc.Content(),
	}
	if doc.RawAnswer() != "" {
		fields[fieldAnswer] = doc.RawAnswer()
	}
	if doc.Source() != "" {
		fields[fieldSource] = doc.Source()
	}
	if doc.FocusArea() != "" {
		fields[fieldFocusArea] = doc.FocusArea()
	}
	if vec := doc.Vector(); len(vec) > 0 {
		fields[fieldEmbedding] = string(encodeVector(vec))
	}
	return fields
}

// fromFields rebuilds a document from its stored hash fields.
func fromFields(id string, fields map[string]string) (document.Document, error) {
	content, ok := fields[fieldContent]
	if !ok {
		return document.Document{}, fmt.Errorf("document %q has no content field", id)
	}

	var vec []float32
	if raw, ok := fields[fieldEmbedding]; ok {
		var err error
		vec, err = decodeVector([]byte(raw))
		if err != nil {
			return document.Document{}, fmt.Errorf("document %q: %w", id, err)
		}
	}

	return document.Reconstruct(
		id,
		content,
		fields[fieldAnswer],
		fields[fieldSource],
		fields[fieldFocusArea],
		vec,
	), nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
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
