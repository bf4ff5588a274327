package store

import (
	"context"

	"github.com/kgraph-ai/kgraph/internal/persistence"
	"github.com/kgraph-ai/kgraph/internal/telemetry"
)

// ReadResult is the shape returned by Read: spec §4.6's
// {user: {...}, project: {...}}.
type ReadResult struct {
	User    LevelGraph `json:"user"`
	Project LevelGraph `json:"project"`
}

// Read takes a snapshot of both levels under the store mutex: active nodes
// only, edges with at least one active endpoint, value copies throughout.
// projectKey selects which project graph backs the "project" half of the
// result; an empty projectKey with no project graph yet loaded yields an
// empty LevelGraph rather than an error, since a brand-new project has
// nothing to read yet.
func (s *Store) Read(ctx context.Context, projectKey string) (ReadResult, error) {
	var err error
	ctx, end := telemetry.StartOp(ctx, s.tracer, "read", LevelUser)
	defer end(&err)

	s.mu.Lock()
	defer s.mu.Unlock()

	result := ReadResult{
		User: snapshotLevel(s.levels[LevelUser]),
	}

	if projectKey != "" {
		g, rerr := s.resolveLevel(LevelProject, projectKey)
		if rerr != nil {
			err = rerr
			return ReadResult{}, err
		}
		result.Project = snapshotLevel(g)
	}

	return result, nil
}

func snapshotLevel(g *graphState) LevelGraph {
	if g == nil {
		return LevelGraph{Nodes: []Node{}, Edges: []Edge{}}
	}

	active := g.activeIDs()

	nodes := make([]Node, 0, len(active))
	for id := range active {
		n := g.nodes[id]
		nodes = append(nodes, Node{ID: n.ID, Gist: n.Gist, Touches: n.Touches, Notes: n.Notes})
	}

	edges := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if _, fromActive := active[e.From]; fromActive {
			edges = append(edges, Edge{From: e.From, To: e.To, Rel: e.Rel, Notes: e.Notes})
			continue
		}
		if _, toActive := active[e.To]; toActive {
			edges = append(edges, Edge{From: e.From, To: e.To, Rel: e.Rel, Notes: e.Notes})
		}
	}

	return LevelGraph{Nodes: nodes, Edges: edges}
}

// SyncResult is spec §4.7's diff payload.
type SyncResult struct {
	SinceTS      float64    `json:"since_ts"`
	Changes      SyncLevels `json:"changes"`
	TotalChanges int        `json:"total_changes"`
}

// SyncLevels mirrors ReadResult's per-level shape for the sync payload.
type SyncLevels struct {
	User    LevelGraph `json:"user"`
	Project LevelGraph `json:"project"`
}

// Sync returns everything written since sessionID's registration that the
// session hasn't already seen, per spec §4.7. excludeOwn, when true, omits
// changes written by sessionID itself.
func (s *Store) Sync(ctx context.Context, sessionID string, excludeOwn bool) (SyncResult, error) {
	var err error
	ctx, end := telemetry.StartOp(ctx, s.tracer, "sync", LevelUser)
	defer end(&err)

	s.mu.Lock()
	defer s.mu.Unlock()

	startTS, serr := s.sessions.StartTS(sessionID)
	if serr != nil {
		err = serr
		return SyncResult{}, err
	}
	sinceTS := float64(startTS.UnixNano()) / 1e9

	projectKey, _ := s.sessions.ProjectKey(sessionID)

	userChanges := diffLevel(s.levels[LevelUser], sinceTS, sessionID, excludeOwn)

	var projectChanges LevelGraph
	if projectKey != "" {
		if g, ok := s.levels[projectKeyPrefix+projectKey]; ok {
			projectChanges = diffLevel(g, sinceTS, sessionID, excludeOwn)
		} else {
			projectChanges = LevelGraph{Nodes: []Node{}, Edges: []Edge{}}
		}
	} else {
		projectChanges = LevelGraph{Nodes: []Node{}, Edges: []Edge{}}
	}

	total := len(userChanges.Nodes) + len(userChanges.Edges) + len(projectChanges.Nodes) + len(projectChanges.Edges)

	return SyncResult{
		SinceTS: sinceTS,
		Changes: SyncLevels{
			User:    userChanges,
			Project: projectChanges,
		},
		TotalChanges: total,
	}, nil
}

func diffLevel(g *graphState, sinceTS float64, sessionID string, excludeOwn bool) LevelGraph {
	if g == nil {
		return LevelGraph{Nodes: []Node{}, Edges: []Edge{}}
	}

	active := g.activeIDs()

	nodes := make([]Node, 0)
	for id := range active {
		ver, ok := g.versions[persistence.VersionNodeKey(id)]
		if !ok || ver.TS <= sinceTS {
			continue
		}
		if excludeOwn && ver.Session != nil && *ver.Session == sessionID {
			continue
		}
		n := g.nodes[id]
		nodes = append(nodes, Node{ID: n.ID, Gist: n.Gist, Touches: n.Touches, Notes: n.Notes})
	}

	edges := make([]Edge, 0)
	for _, e := range g.edges {
		_, fromActive := active[e.From]
		_, toActive := active[e.To]
		if !fromActive && !toActive {
			continue
		}
		ver, ok := g.versions[persistence.VersionEdgeKey(e.From, e.To, e.Rel)]
		if !ok || ver.TS <= sinceTS {
			continue
		}
		if excludeOwn && ver.Session != nil && *ver.Session == sessionID {
			continue
		}
		edges = append(edges, Edge{From: e.From, To: e.To, Rel: e.Rel, Notes: e.Notes})
	}

	return LevelGraph{Nodes: nodes, Edges: edges}
}
