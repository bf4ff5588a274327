package compactor

import (
	"testing"

	"github.com/kgraph-ai/kgraph/internal/scorer"
	"github.com/kgraph-ai/kgraph/internal/tokencost"
)

func TestCompactUnderBudgetNoOp(t *testing.T) {
	got := Compact(nil, nil, 50, 80, 0, 0)
	if got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestCompactAllWithinGraceNoOp(t *testing.T) {
	now := 1_000_000.0
	candidates := []Candidate{
		{Candidate: scorer.Candidate{NodeID: "a", TS: now, Richness: 40}, TokenCost: 30},
	}
	got := Compact(nil, candidates, 200, 80, now, 7*86400)
	if got != nil {
		t.Errorf("expected nil (grace-protected), got %v", got)
	}
}

// TestCompactSeedScenarioS1 reproduces spec §8 scenario S1: max_tokens=80,
// nodes A/B/C with gist lengths 40/80/40, C fresh (grace-protected), A and B
// eligible with B richer, so A must be archived and the post-tick view is
// exactly [B, C].
func TestCompactSeedScenarioS1(t *testing.T) {
	now := 1_000_000.0
	maxTokens := 80

	aCost := tokencost.NodeCost(string(make([]byte, 40)), nil)
	bCost := tokencost.NodeCost(string(make([]byte, 80)), nil)
	cCost := tokencost.NodeCost(string(make([]byte, 40)), nil)
	current := tokencost.GraphCost([]int{aCost, bCost, cCost}, 0)

	candidates := []Candidate{
		{Candidate: scorer.Candidate{NodeID: "A", TS: now - 8*86400, Richness: 40}, TokenCost: aCost},
		{Candidate: scorer.Candidate{NodeID: "B", TS: now - 8*86400, Richness: 80}, TokenCost: bCost},
		{Candidate: scorer.Candidate{NodeID: "C", TS: now - 1*86400, Richness: 40}, TokenCost: cCost},
	}

	archived := Compact(nil, candidates, current, maxTokens, now, 7*86400)

	if len(archived) != 1 || archived[0] != "A" {
		t.Fatalf("expected [A] archived, got %v", archived)
	}
}
