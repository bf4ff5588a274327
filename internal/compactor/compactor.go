// Package compactor implements spec §4.3: archive the lowest-scoring nodes
// until the live graph's estimated token cost drops to 90% of the budget.
package compactor

import (
	"log/slog"
	"sort"

	"github.com/kgraph-ai/kgraph/internal/scorer"
)

// TargetRatio is the fraction of MaxTokens the compactor archives down to,
// per spec §4.3 step 3. Leaving slack below the hard limit avoids a
// compact/grow/compact thrash on every tick once the graph sits right at
// the boundary.
const TargetRatio = 0.9

// Candidate bundles a scorer.Candidate with the token cost archiving it
// would recover, so the compactor can run a single pass without re-deriving
// costs from the caller's node map.
type Candidate struct {
	scorer.Candidate
	TokenCost int
}

// Compact returns the IDs to archive, in the order they were archived
// (lowest score first). currentEstimate is the live graph's current token
// cost (spec §4.1's GraphCost over active nodes plus edges); maxTokens and
// graceSeconds come from config. now is seconds since epoch.
//
// Compact never mutates its inputs: the caller is responsible for flipping
// Archived on the returned IDs within the same critical section that computed
// currentEstimate, per spec invariant 6 (archiving never deletes).
func Compact(logger *slog.Logger, candidates []Candidate, currentEstimate, maxTokens int, now, graceSeconds float64) []string {
	if currentEstimate <= maxTokens {
		return nil
	}

	scorerInputs := make([]scorer.Candidate, len(candidates))
	costByID := make(map[string]int, len(candidates))
	for i, c := range candidates {
		scorerInputs[i] = c.Candidate
		costByID[c.NodeID] = c.TokenCost
	}

	scores := scorer.Score(scorerInputs, now, graceSeconds)
	if len(scores) == 0 {
		if logger != nil {
			logger.Debug("compaction skipped: all eligible nodes are within grace period")
		}
		return nil
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	// Map iteration order is randomized per run; sort by ID first so the
	// stable score-sort below has a deterministic starting order to break
	// ties against, per spec's "ties are broken by position in the sort".
	sort.Strings(ids)
	sort.SliceStable(ids, func(i, j int) bool { return scores[ids[i]] < scores[ids[j]] })

	target := int(float64(maxTokens) * TargetRatio)
	archived := make([]string, 0, len(ids))
	estimate := currentEstimate
	for _, id := range ids {
		if estimate <= target {
			break
		}
		estimate -= costByID[id]
		archived = append(archived, id)
	}
	return archived
}
