// Package scorer implements the percentile-ranked keep-value scoring
// described in spec §4.2. It is deliberately decoupled from
// internal/store's types so it can be unit-tested as a pure function over
// plain slices, and so the store package (not this one) owns the decision
// of which node fields feed the ranking.
package scorer

import "sort"

// Candidate is the scoring input for a single node. NodeID must be unique
// within the slice passed to Score.
type Candidate struct {
	NodeID string

	// TS is the node's last-write timestamp, seconds since epoch.
	TS float64

	// Connectedness is incident edge count plus len(touches), per spec §4.2.
	Connectedness int

	// Richness is len(gist) plus the summed length of every note.
	Richness int
}

// Score computes {node_id -> score} for every candidate whose TS is older
// than now-grace (grace in seconds). Candidates within grace are omitted
// from the result entirely — they are protected, not zero-scored. Ties in
// each axis are broken by Go's stable sort, preserving input order.
func Score(candidates []Candidate, now, graceSeconds float64) map[string]float64 {
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if now-c.TS > graceSeconds {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return map[string]float64{}
	}

	recency := percentileRank(eligible, func(c Candidate) float64 { return c.TS })
	connectedness := percentileRank(eligible, func(c Candidate) float64 { return float64(c.Connectedness) })
	richness := percentileRank(eligible, func(c Candidate) float64 { return float64(c.Richness) })

	scores := make(map[string]float64, len(eligible))
	for _, c := range eligible {
		scores[c.NodeID] = recency[c.NodeID] * connectedness[c.NodeID] * richness[c.NodeID]
	}
	return scores
}

// percentileRank ranks candidates ascending by key(c) and assigns each a
// percentile in [0,1] equal to its position divided by (n-1); a single
// candidate gets 0.5, per spec §4.2. The sort is stable so equal keys keep
// their relative input order, giving deterministic tie-breaking.
func percentileRank(candidates []Candidate, key func(Candidate) float64) map[string]float64 {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return key(ordered[i]) < key(ordered[j])
	})

	ranks := make(map[string]float64, len(ordered))
	n := len(ordered)
	if n == 1 {
		ranks[ordered[0].NodeID] = 0.5
		return ranks
	}
	for i, c := range ordered {
		ranks[c.NodeID] = float64(i) / float64(n-1)
	}
	return ranks
}
