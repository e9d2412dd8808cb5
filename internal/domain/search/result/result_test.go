package result

import "testing"

func TestAnswer_FallsBackToContent(t *testing.T) {
	m := New("a", 0.1, "content text", "", "", "", nil)
	if m.Answer() != "content text" {
		t.Errorf("answer = %q, want content fallback", m.Answer())
	}

	m = New("a", 0.1, "content text", "real answer", "", "", nil)
	if m.Answer() != "real answer" {
		t.Errorf("answer = %q, want stored answer", m.Answer())
	}
}

func TestWithRank(t *testing.T) {
	m := New("a", 0.2, "c", "ans", "src", "area", []float32{1, 0})

	ranked := m.WithRank(3)
	if m.Rank() != 0 {
		t.Error("original match mutated")
	}
	if ranked.Rank() != 3 {
		t.Errorf("rank = %d, want 3", ranked.Rank())
	}
	if ranked.ID() != "a" || ranked.Distance() != 0.2 || ranked.Source() != "src" {
		t.Error("copy lost fields")
	}
}
