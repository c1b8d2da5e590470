package matching

import "testing"

func sim(titleA, titleB string) float64 {
	return Similarity(ExtractEntities(titleA), ExtractEntities(titleB), titleA, titleB)
}

func TestSimilarity_IdenticalTitles(t *testing.T) {
	if got := sim("Will the Lakers win the NBA Finals?", "Will the Lakers win the NBA Finals?"); got < 0.99 {
		t.Errorf("similarity of identical titles = %g, want ~1", got)
	}
}

func TestSimilarity_Paraphrase(t *testing.T) {
	got := sim(
		"Will the Lakers win the NBA Finals?",
		"Lakers to win NBA Finals 2026",
	)
	if got < 0.5 {
		t.Errorf("paraphrase similarity = %g, want >= 0.5", got)
	}
}

func TestSimilarity_UnrelatedTitles(t *testing.T) {
	got := sim(
		"Will the Lakers win the NBA Finals?",
		"US recession declared before July?",
	)
	if got > 0.3 {
		t.Errorf("unrelated similarity = %g, want <= 0.3", got)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	a := "Will Bitcoin reach $75,000 by March 2026?"
	b := "Bitcoin above $75k in March?"
	if sim(a, b) != sim(b, a) {
		t.Errorf("similarity is not symmetric: %g vs %g", sim(a, b), sim(b, a))
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"", ""},
		{"a", ""},
		{"Will X happen?", "Will Y happen?"},
		{"Will the Lakers win the NBA Finals?", "Lakers win NBA Finals?"},
	}
	for _, p := range pairs {
		got := sim(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Similarity(%q, %q) = %g, out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestSequenceRatio(t *testing.T) {
	if got := sequenceRatio("abcdef", "abcdef"); got != 1 {
		t.Errorf("sequenceRatio(identical) = %g, want 1", got)
	}
	if got := sequenceRatio("abc", "xyz"); got != 0 {
		t.Errorf("sequenceRatio(disjoint) = %g, want 0", got)
	}
	// Shared prefix and suffix around a differing middle.
	got := sequenceRatio("lakers win finals", "lakers take finals")
	if got <= 0.5 || got >= 1 {
		t.Errorf("sequenceRatio(partial) = %g, want in (0.5, 1)", got)
	}
}

func TestJaccard(t *testing.T) {
	a := map[string]struct{}{"x": {}, "y": {}}
	b := map[string]struct{}{"y": {}, "z": {}}
	if got := jaccard(a, b); got != 1.0/3.0 {
		t.Errorf("jaccard = %g, want 1/3", got)
	}
	if got := jaccard(nil, b); got != 0 {
		t.Errorf("jaccard with empty set = %g, want 0", got)
	}
}
