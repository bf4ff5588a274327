package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kgraph-ai/kgraph/internal/broadcast"
	"github.com/kgraph-ai/kgraph/internal/kgerrors"
	"github.com/kgraph-ai/kgraph/internal/persistence"
	"github.com/kgraph-ai/kgraph/internal/telemetry"
)

func (s *Store) nowSeconds() float64 {
	return float64(s.now().UnixNano()) / 1e9
}

func sessionPtr(sessionID string) *string {
	if sessionID == "" {
		return nil
	}
	return &sessionID
}

// RegisterSession mints a new session, optionally bound to a project key
// for later project-level operations.
func (s *Store) RegisterSession(projectKey string) (id string, startTS time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.RegisterWithProject(projectKey)
}

// PutNode upserts a node, per spec §4.8: never implicitly clears archived
// or orphaned_since (Open Question 1's resolution; call Recall first).
// action is "added" for a new node, "updated" for an existing one.
func (s *Store) PutNode(ctx context.Context, level, projectKey, id, gist string, touches, notes []string, sessionID string) (action string, err error) {
	ctx, end := telemetry.StartOp(ctx, s.tracer, "put_node", level)
	defer end(&err)

	if id == "" || gist == "" {
		err = fmt.Errorf("put_node requires id and gist: %w", kgerrors.ErrInvalidArgument)
		return "", err
	}

	s.mu.Lock()

	g, rerr := s.resolveLevel(level, projectKey)
	if rerr != nil {
		s.mu.Unlock()
		err = rerr
		return "", err
	}

	existing, exists := g.nodes[id]
	if exists {
		existing.Gist = gist
		existing.Touches = touches
		existing.Notes = notes
		g.nodes[id] = existing
		action = "updated"
	} else {
		g.nodes[id] = persistence.NodeDoc{ID: id, Gist: gist, Touches: touches, Notes: notes}
		action = "added"
	}

	s.bumpVersion(g, persistence.VersionNodeKey(id), sessionID)
	g.dirty = true

	event := broadcast.Event{Level: level, Op: broadcast.OpPutNode, NodeID: id, TS: s.nowSeconds()}
	s.mu.Unlock()

	s.hook.Publish(event)
	return action, nil
}

// PutEdge upserts an edge triple, per spec §4.8.
func (s *Store) PutEdge(ctx context.Context, level, projectKey, from, to, rel string, notes []string, sessionID string) (err error) {
	ctx, end := telemetry.StartOp(ctx, s.tracer, "put_edge", level)
	defer end(&err)

	if from == "" || to == "" || rel == "" {
		err = fmt.Errorf("put_edge requires from, to, and rel: %w", kgerrors.ErrInvalidArgument)
		return err
	}

	s.mu.Lock()

	g, rerr := s.resolveLevel(level, projectKey)
	if rerr != nil {
		s.mu.Unlock()
		err = rerr
		return err
	}

	key := persistence.EdgeKey(from, to, rel)
	g.edges[key] = persistence.EdgeDoc{From: from, To: to, Rel: rel, Notes: notes}
	s.bumpVersion(g, persistence.VersionEdgeKey(from, to, rel), sessionID)
	g.dirty = true

	event := broadcast.Event{Level: level, Op: broadcast.OpPutEdge, EdgeKey: key, TS: s.nowSeconds()}
	s.mu.Unlock()

	s.hook.Publish(event)
	return nil
}

// DeleteNode removes id and cascades to every incident edge and all
// affected version records in one critical section, per spec invariant 5.
func (s *Store) DeleteNode(ctx context.Context, level, projectKey, id string) (err error) {
	ctx, end := telemetry.StartOp(ctx, s.tracer, "delete_node", level)
	defer end(&err)

	s.mu.Lock()

	g, rerr := s.resolveLevel(level, projectKey)
	if rerr != nil {
		s.mu.Unlock()
		err = rerr
		return err
	}

	if _, ok := g.nodes[id]; !ok {
		s.mu.Unlock()
		err = fmt.Errorf("node %q: %w", id, kgerrors.ErrNodeNotFound)
		return err
	}

	for key, e := range g.edges {
		if e.From == id || e.To == id {
			delete(g.edges, key)
			delete(g.versions, persistence.VersionEdgeKey(e.From, e.To, e.Rel))
		}
	}
	delete(g.nodes, id)
	delete(g.versions, persistence.VersionNodeKey(id))
	g.dirty = true

	event := broadcast.Event{Level: level, Op: broadcast.OpDeleteNode, NodeID: id, TS: s.nowSeconds()}
	s.mu.Unlock()

	s.hook.Publish(event)
	return nil
}

// DeleteEdge removes an edge triple if present. Per spec §4.8 this is a
// soft delete: a missing triple returns deleted=false rather than an error.
func (s *Store) DeleteEdge(ctx context.Context, level, projectKey, from, to, rel string) (deleted bool, err error) {
	ctx, end := telemetry.StartOp(ctx, s.tracer, "delete_edge", level)
	defer end(&err)

	s.mu.Lock()

	g, rerr := s.resolveLevel(level, projectKey)
	if rerr != nil {
		s.mu.Unlock()
		err = rerr
		return false, err
	}

	key := persistence.EdgeKey(from, to, rel)
	if _, ok := g.edges[key]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(g.edges, key)
	delete(g.versions, persistence.VersionEdgeKey(from, to, rel))
	g.dirty = true

	event := broadcast.Event{Level: level, Op: broadcast.OpDeleteEdge, EdgeKey: key, TS: s.nowSeconds()}
	s.mu.Unlock()

	s.hook.Publish(event)
	return true, nil
}

// Recall unarchives a node: clears archived and orphaned_since, bumps its
// version so it is immediately grace-protected, per spec §4.8 and testable
// property 9.
func (s *Store) Recall(ctx context.Context, level, projectKey, id, sessionID string) (err error) {
	ctx, end := telemetry.StartOp(ctx, s.tracer, "recall", level)
	defer end(&err)

	s.mu.Lock()

	g, rerr := s.resolveLevel(level, projectKey)
	if rerr != nil {
		s.mu.Unlock()
		err = rerr
		return err
	}

	n, ok := g.nodes[id]
	if !ok {
		s.mu.Unlock()
		err = fmt.Errorf("node %q: %w", id, kgerrors.ErrNodeNotFound)
		return err
	}
	if !n.Archived {
		s.mu.Unlock()
		err = fmt.Errorf("node %q: %w", id, kgerrors.ErrNotArchived)
		return err
	}

	n.Archived = false
	n.OrphanedTS = nil
	g.nodes[id] = n
	s.bumpVersion(g, persistence.VersionNodeKey(id), sessionID)
	g.dirty = true

	event := broadcast.Event{Level: level, Op: broadcast.OpRecall, NodeID: id, TS: s.nowSeconds()}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecalledTotal.Add(ctx, 1)
	}
	s.hook.Publish(event)
	return nil
}

// bumpVersion increments (or creates) the version record at key, setting ts
// to now and session to sessionID. Must be called with s.mu held.
func (s *Store) bumpVersion(g *graphState, key, sessionID string) {
	prev := g.versions[key]
	g.versions[key] = persistence.VersionDoc{
		V:       prev.V + 1,
		TS:      s.nowSeconds(),
		Session: sessionPtr(sessionID),
	}
}

// PingResult is the payload spec §6 describes as "ping (returns counts and
// active-session count)", expanded per SPEC_FULL.md §9 with per-level
// detail.
type PingResult struct {
	Sessions int                  `json:"sessions"`
	Levels   map[string]PingLevel `json:"levels"`
}

// PingLevel summarizes one loaded level's size.
type PingLevel struct {
	ActiveNodes   int `json:"active_nodes"`
	ArchivedNodes int `json:"archived_nodes"`
	OrphanedNodes int `json:"orphaned_nodes"`
	Edges         int `json:"edges"`
	TokenEstimate int `json:"token_estimate"`
}

// Ping reports liveness counts across every currently loaded level.
func (s *Store) Ping(ctx context.Context) PingResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := PingResult{
		Sessions: s.sessions.Count(),
		Levels:   make(map[string]PingLevel, len(s.levels)),
	}
	for key, g := range s.levels {
		result.Levels[key] = pingLevel(g)
	}
	return result
}

func pingLevel(g *graphState) PingLevel {
	var pl PingLevel
	activeCosts := make([]int, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n.Archived {
			pl.ArchivedNodes++
			if n.OrphanedTS != nil {
				pl.OrphanedNodes++
			}
			continue
		}
		pl.ActiveNodes++
		activeCosts = append(activeCosts, nodeCost(n))
	}
	pl.Edges = len(g.edges)
	pl.TokenEstimate = graphCost(activeCosts, pl.Edges)
	return pl
}
