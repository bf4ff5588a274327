package store

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/kgraph-ai/kgraph/internal/broadcast"
	"github.com/kgraph-ai/kgraph/internal/compactor"
	"github.com/kgraph-ai/kgraph/internal/orphan"
	"github.com/kgraph-ai/kgraph/internal/persistence"
	"github.com/kgraph-ai/kgraph/internal/scorer"
)

// Run drives the maintenance loop described in spec §5: every SaveInterval,
// under the store mutex, compact then prune then save-if-dirty for each
// level, then clean up expired sessions. It blocks until ctx is canceled,
// at which point it performs one final tick and returns.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SaveInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.tick(ctx)
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one maintenance pass. A panic while processing one level is
// recovered and logged so it never blocks the other level's save or the
// session cleanup, per spec §7's "a failure in compact or prune for one
// level must not prevent save or block the other level".
func (s *Store) tick(ctx context.Context) {
	s.mu.Lock()

	var events []broadcast.Event
	for key, g := range s.levels {
		events = append(events, s.tickLevel(ctx, key, g)...)
	}

	discarded := s.sessions.Cleanup()

	s.mu.Unlock()

	if discarded > 0 && s.metrics != nil {
		s.metrics.SessionCount.Add(ctx, -int64(discarded))
	}
	for _, event := range events {
		s.hook.Publish(event)
	}
}

// tickLevel runs one level's compact/prune/save pass and returns the
// broadcast events it produced. The caller publishes them only after
// releasing s.mu, per spec's release-mutex-then-broadcast ordering.
func (s *Store) tickLevel(ctx context.Context, key string, g *graphState) (events []broadcast.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during maintenance tick, skipping level",
				"level", key, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	now := s.nowSeconds()

	archived := s.runCompact(g, now)
	for _, id := range archived {
		events = append(events, broadcast.Event{Level: key, Op: broadcast.OpArchive, NodeID: id, TS: now})
	}

	pruned := s.runOrphanPrune(key, g, now)
	events = append(events, pruned...)

	if s.metrics != nil {
		s.metrics.ArchivedTotal.Add(ctx, int64(len(archived)))
		s.metrics.OrphanedDeleted.Add(ctx, int64(len(pruned)))
	}

	if g.dirty {
		saveStart := time.Now()
		err := s.saveLevel(key, g)
		if s.metrics != nil {
			s.metrics.SaveDuration.Record(ctx, time.Since(saveStart).Seconds())
		}
		if err != nil {
			s.logger.Error("save failed, will retry next tick", "level", key, "error", err)
			if s.metrics != nil {
				s.metrics.SaveErrors.Add(ctx, 1)
			}
			return
		}
		g.dirty = false
	}

	if s.metrics != nil {
		pl := pingLevel(g)
		s.metrics.SetGraphSize(ctx, key, int64(pl.ActiveNodes), int64(pl.Edges), int64(pl.TokenEstimate))
	}
}

func (s *Store) runCompact(g *graphState, now float64) []string {
	candidates := make([]compactor.Candidate, 0, len(g.nodes))
	costs := make([]int, 0, len(g.nodes))
	for id, n := range g.nodes {
		if n.Archived {
			continue
		}
		connectedness := len(n.Touches)
		for _, e := range g.edges {
			if e.From == id || e.To == id {
				connectedness++
			}
		}
		richness := len(n.Gist)
		for _, note := range n.Notes {
			richness += len(note)
		}
		ver := g.versions[persistence.VersionNodeKey(id)]
		cost := nodeCost(n)
		candidates = append(candidates, compactor.Candidate{
			Candidate: scorer.Candidate{
				NodeID:        id,
				TS:            ver.TS,
				Connectedness: connectedness,
				Richness:      richness,
			},
			TokenCost: cost,
		})
		costs = append(costs, cost)
	}

	// g.nodes is a map, so the loop above visits nodes in a randomized
	// order every run; sort by ID so candidates with identical scores
	// break ties the same way on every restart, per spec.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].NodeID < candidates[j].NodeID })

	estimate := graphCost(costs, len(g.edges))
	archived := compactor.Compact(s.logger, candidates, estimate, s.cfg.MaxTokens, now, s.cfg.GracePeriod().Seconds())

	for _, id := range archived {
		n := g.nodes[id]
		n.Archived = true
		g.nodes[id] = n
		g.dirty = true
	}
	return archived
}

// runOrphanPrune evaluates reconnection/orphaning/deletion for g and returns
// the broadcast events produced by any deletions. Must be called with s.mu
// held; the caller publishes the returned events only after releasing it.
func (s *Store) runOrphanPrune(level string, g *graphState, now float64) []broadcast.Event {
	active := g.activeIDs()

	archivedNodes := make([]orphan.ArchivedNode, 0)
	for id, n := range g.nodes {
		if n.Archived {
			archivedNodes = append(archivedNodes, orphan.ArchivedNode{ID: id, OrphanedSince: n.OrphanedTS})
		}
	}

	edges := make([]orphan.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, orphan.Edge{From: e.From, To: e.To})
	}

	result := orphan.Evaluate(active, archivedNodes, edges, now, s.cfg.OrphanGrace().Seconds())

	for _, id := range result.Reconnected {
		n := g.nodes[id]
		n.OrphanedTS = nil
		g.nodes[id] = n
		g.dirty = true
	}
	for _, id := range result.NewlyOrphaned {
		n := g.nodes[id]
		ts := now
		n.OrphanedTS = &ts
		g.nodes[id] = n
		g.dirty = true
	}
	events := make([]broadcast.Event, 0, len(result.ToDelete))
	for _, id := range result.ToDelete {
		s.cascadeDelete(g, id)
		events = append(events, broadcast.Event{Level: level, Op: broadcast.OpPrune, NodeID: id, TS: now})
	}
	return events
}

// cascadeDelete removes id and its incident edges/version records, the same
// cascade DeleteNode performs, without the not-found check (the caller
// already knows id exists). Must be called with s.mu held.
func (s *Store) cascadeDelete(g *graphState, id string) {
	for key, e := range g.edges {
		if e.From == id || e.To == id {
			delete(g.edges, key)
			delete(g.versions, persistence.VersionEdgeKey(e.From, e.To, e.Rel))
		}
	}
	delete(g.nodes, id)
	delete(g.versions, persistence.VersionNodeKey(id))
	g.dirty = true
}

func (s *Store) saveLevel(key string, g *graphState) error {
	if fw, ok := s.watchers[g.path]; ok {
		fw.ExpectOwnWrite()
	}
	if err := persistence.Save(g.toDocument(), g.path); err != nil {
		return fmt.Errorf("saving level %s: %w", key, err)
	}
	if err := persistence.RotateBackups(g.path, s.now()); err != nil {
		s.logger.Warn("backup rotation failed", "level", key, "error", err)
	}
	if s.uploader != nil {
		persistence.UploadWeeklyTierBestEffort(context.Background(), s.logger, s.uploader, g.path, key)
	}
	return nil
}
