package store

import (
	"log/slog"

	"github.com/kgraph-ai/kgraph/internal/persistence"
)

// graphState is one level's live data: the node/edge maps, their version
// records, and the dirty flag the maintenance loop consults before saving.
// All access happens under Store.mu; graphState has no lock of its own.
type graphState struct {
	path     string
	nodes    map[string]persistence.NodeDoc
	edges    map[string]persistence.EdgeDoc
	versions map[string]persistence.VersionDoc
	dirty    bool
}

func newGraphState(path string) *graphState {
	return &graphState{
		path:     path,
		nodes:    make(map[string]persistence.NodeDoc),
		edges:    make(map[string]persistence.EdgeDoc),
		versions: make(map[string]persistence.VersionDoc),
	}
}

func loadGraphState(logger *slog.Logger, path string) *graphState {
	doc := persistence.Load(logger, path)
	return &graphState{
		path:     path,
		nodes:    doc.Nodes,
		edges:    doc.Edges,
		versions: doc.Meta.Versions,
	}
}

func (g *graphState) toDocument() *persistence.Document {
	return &persistence.Document{
		Nodes: g.nodes,
		Edges: g.edges,
		Meta:  persistence.Meta{Versions: g.versions},
	}
}

// activeIDs returns the set of non-archived node IDs in g.
func (g *graphState) activeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(g.nodes))
	for id, n := range g.nodes {
		if !n.Archived {
			ids[id] = struct{}{}
		}
	}
	return ids
}
