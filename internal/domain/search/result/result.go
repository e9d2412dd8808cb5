package result

// Match is a single retrieval hit. Distance is the cosine distance between
// the query vector and the document vector (lower is better), reported as-is
// even when the diversified ranking reordered the hits.
type Match struct {
	id        string
	distance  float64
	rank      int
	content   string
	answer    string
	source    string
	focusArea string
	vector    []float32
}

// New creates a retrieval match.
func New(
	id string, distance float64, content, answer, source, focusArea string,
	vector []float32,
) Match {
	return Match{
		id: id, distance: distance, content: content, answer: answer,
		source: source, focusArea: focusArea, vector: vector,
	}
}

// ID returns the document identifier.
func (m *Match) ID() string { return m.id }

// Distance returns the cosine distance to the query, in [0, 2].
func (m *Match) Distance() float64 { return m.distance }

// Rank returns the 1-based position in the final ordering.
func (m *Match) Rank() int { return m.rank }

// Content returns the matched document text.
func (m *Match) Content() string { return m.content }

// Answer returns the stored answer field, falling back to content.
func (m *Match) Answer() string {
	if m.answer == "" {
		return m.content
	}
	return m.answer
}

// Source returns the provenance label ("" when absent).
func (m *Match) Source() string { return m.source }

// FocusArea returns the category label ("" when absent).
func (m *Match) FocusArea() string { return m.focusArea }

// Vector returns the document embedding vector (nil unless the fetch
// requested vectors for diversification).
func (m *Match) Vector() []float32 { return m.vector }

// WithRank returns a copy with the final 1-based rank set.
func (m *Match) WithRank(rank int) Match {
	c := *m
	c.rank = rank
	return c
}
