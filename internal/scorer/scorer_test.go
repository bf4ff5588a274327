package scorer

import "testing"

func TestScoreExcludesWithinGrace(t *testing.T) {
	now := 1_000_000.0
	grace := 7.0 * 86400

	candidates := []Candidate{
		{NodeID: "old", TS: now - 8*86400, Connectedness: 1, Richness: 1},
		{NodeID: "fresh", TS: now - 1*86400, Connectedness: 1, Richness: 1},
	}

	scores := Score(candidates, now, grace)
	if _, ok := scores["fresh"]; ok {
		t.Errorf("expected fresh node to be excluded (within grace)")
	}
	if _, ok := scores["old"]; !ok {
		t.Errorf("expected old node to be scored")
	}
}

func TestScoreAllWithinGraceReturnsEmpty(t *testing.T) {
	now := 1_000_000.0
	grace := 7.0 * 86400
	candidates := []Candidate{{NodeID: "a", TS: now, Connectedness: 1, Richness: 1}}
	scores := Score(candidates, now, grace)
	if len(scores) != 0 {
		t.Errorf("expected empty scores, got %v", scores)
	}
}

func TestScoreSingleEligibleIsProductOfHalves(t *testing.T) {
	now := 1_000_000.0
	grace := 7.0 * 86400
	candidates := []Candidate{{NodeID: "solo", TS: now - 30*86400, Connectedness: 3, Richness: 9}}
	scores := Score(candidates, now, grace)
	if got := scores["solo"]; got != 0.5*0.5*0.5 {
		t.Errorf("expected 0.125 for a sole eligible candidate, got %v", got)
	}
}

func TestScoreRichnessBreaksTie(t *testing.T) {
	// A and B have the same age and connectedness; B has a longer gist
	// (higher richness) so it must score higher, reproducing spec S1's
	// "richness favors B" outcome.
	now := 1_000_000.0
	grace := 7.0 * 86400

	candidates := []Candidate{
		{NodeID: "a", TS: now - 8*86400, Connectedness: 0, Richness: 40},
		{NodeID: "b", TS: now - 8*86400, Connectedness: 0, Richness: 80},
	}

	scores := Score(candidates, now, grace)
	if scores["a"] >= scores["b"] {
		t.Errorf("expected b (richer) to outscore a: a=%v b=%v", scores["a"], scores["b"])
	}
}
