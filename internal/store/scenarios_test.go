package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgraph-ai/kgraph/internal/kgerrors"
	"github.com/kgraph-ai/kgraph/internal/persistence"
)

// TestScenarioArchiveUnderPressure covers seed scenario S1: once the live
// graph's estimated cost exceeds MaxTokens, nodes are archived lowest score
// first and drop out of Read, without being deleted outright. With
// MaxTokens=1 the target is 0, so both nodes end up archived here.
func TestScenarioArchiveUnderPressure(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxTokens = 1
	cfg.GracePeriodDays = 0
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.PutNode(context.Background(), LevelUser, "", "old", "an old and lightly connected gist", nil, nil, "")
	require.NoError(t, err)
	_, err = s.PutNode(context.Background(), LevelUser, "", "hub", "a richly connected hub gist with much more text in it", []string{"t1", "t2"}, []string{"note one", "note two"}, "")
	require.NoError(t, err)

	s.tick(context.Background())

	result, err := s.Read(context.Background(), "")
	require.NoError(t, err)
	require.Less(t, len(result.User.Nodes), 2, "expected at least one node archived out of the read view under token pressure")
}

// TestScenarioOrphanLifecycle covers seed scenario S2: an archived node with
// no active neighbor is marked orphaned, then deleted once past grace.
func TestScenarioOrphanLifecycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.OrphanGraceDays = 0
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.PutNode(context.Background(), LevelUser, "", "lonely", "gist", nil, nil, "")
	require.NoError(t, err)

	s.mu.Lock()
	g := s.levels[LevelUser]
	n := g.nodes["lonely"]
	n.Archived = true
	g.nodes["lonely"] = n
	s.mu.Unlock()

	// First tick: no active neighbor, not yet orphaned -> becomes orphaned.
	s.tick(context.Background())
	s.mu.Lock()
	n = g.nodes["lonely"]
	s.mu.Unlock()
	require.NotNil(t, n.OrphanedTS, "expected lonely archived node to be marked orphaned on first tick")

	// Second tick: already orphaned, grace is zero -> deleted.
	s.tick(context.Background())
	s.mu.Lock()
	_, exists := g.nodes["lonely"]
	s.mu.Unlock()
	require.False(t, exists, "expected orphaned node past zero-day grace to be deleted on the next tick")
}

// TestScenarioOrphanReconnection covers seed scenario S3: an orphaned
// archived node reachable again via a fresh edge has its orphaned_since
// cleared instead of being deleted.
func TestScenarioOrphanReconnection(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.PutNode(context.Background(), LevelUser, "", "active", "gist", nil, nil, "")
	require.NoError(t, err)
	_, err = s.PutNode(context.Background(), LevelUser, "", "archived", "gist", nil, nil, "")
	require.NoError(t, err)

	s.mu.Lock()
	g := s.levels[LevelUser]
	n := g.nodes["archived"]
	n.Archived = true
	g.nodes["archived"] = n
	s.mu.Unlock()

	s.tick(context.Background())
	s.mu.Lock()
	n = g.nodes["archived"]
	s.mu.Unlock()
	require.NotNil(t, n.OrphanedTS, "expected archived node to become orphaned first")

	require.NoError(t, s.PutEdge(context.Background(), LevelUser, "", "active", "archived", "relates_to", nil, ""))

	s.tick(context.Background())
	s.mu.Lock()
	n, exists := g.nodes["archived"]
	s.mu.Unlock()
	require.True(t, exists, "expected reconnected node to survive the tick")
	require.Nil(t, n.OrphanedTS, "expected reconnected node's orphaned_since to be cleared")
}

// TestScenarioSyncExcludesOwnWrites covers seed scenario S4: two sessions
// registered around a write see different sync views, and a session's own
// writes can be excluded from its own sync.
func TestScenarioSyncExcludesOwnWrites(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	sessA, _ := s.RegisterSession("")
	sessB, _ := s.RegisterSession("")

	_, err = s.PutNode(context.Background(), LevelUser, "", "n1", "gist", nil, nil, sessA)
	require.NoError(t, err)

	resultA, err := s.Sync(context.Background(), sessA, true)
	require.NoError(t, err)
	require.Empty(t, resultA.Changes.User.Nodes, "expected session A's own write excluded from its own sync")

	resultAInclusive, err := s.Sync(context.Background(), sessA, false)
	require.NoError(t, err)
	require.Len(t, resultAInclusive.Changes.User.Nodes, 1, "expected session A's own write to appear when not excluded")

	resultB, err := s.Sync(context.Background(), sessB, true)
	require.NoError(t, err)
	require.Len(t, resultB.Changes.User.Nodes, 1, "expected session B to see the write made by session A")
}

// TestScenarioRecallProtectsFromImmediateReArchive covers seed scenario S5:
// recalling an archived node clears its archived flag and bumps its
// version, so it is immediately grace-protected from being re-archived on
// the very next tick.
func TestScenarioRecallProtectsFromImmediateReArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxTokens = 1
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.PutNode(context.Background(), LevelUser, "", "n1", "a gist with some length to it", nil, nil, "")
	require.NoError(t, err)

	s.mu.Lock()
	g := s.levels[LevelUser]
	n := g.nodes["n1"]
	n.Archived = true
	g.nodes["n1"] = n
	s.mu.Unlock()

	require.NoError(t, s.Recall(context.Background(), LevelUser, "", "n1", ""))

	s.mu.Lock()
	n = g.nodes["n1"]
	s.mu.Unlock()
	require.False(t, n.Archived, "expected Recall to clear the archived flag")

	s.tick(context.Background())

	s.mu.Lock()
	n = g.nodes["n1"]
	s.mu.Unlock()
	require.False(t, n.Archived, "expected a freshly recalled node to stay active through the grace period")
}

// TestScenarioRecallNonArchivedNodeErrors covers the negative path used by
// S5: recalling a node that is already active returns ErrNotArchived.
func TestScenarioRecallNonArchivedNodeErrors(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.PutNode(context.Background(), LevelUser, "", "n1", "gist", nil, nil, "")
	require.NoError(t, err)

	err = s.Recall(context.Background(), LevelUser, "", "n1", "")
	require.ErrorIs(t, err, kgerrors.ErrNotArchived)
}

// TestScenarioAtomicSaveSurvivesPriorContent covers seed scenario S6: a
// failed save (simulated by pointing the level at an unwritable path) must
// never corrupt or lose the previously persisted content; the dirty flag
// stays set so the next tick retries.
func TestScenarioAtomicSaveSurvivesPriorContent(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.PutNode(context.Background(), LevelUser, "", "n1", "gist", nil, nil, "")
	require.NoError(t, err)
	s.tick(context.Background())

	s.mu.Lock()
	g := s.levels[LevelUser]
	goodPath := g.path
	g.path = goodPath + "/cannot-create-under-a-file"
	s.mu.Unlock()

	_, err = s.PutNode(context.Background(), LevelUser, "", "n2", "gist", nil, nil, "")
	require.NoError(t, err)
	s.tick(context.Background())

	s.mu.Lock()
	stillDirty := g.dirty
	g.path = goodPath
	s.mu.Unlock()
	require.True(t, stillDirty, "expected a failed save to leave the dirty flag set for retry")

	prior := persistence.Load(nil, goodPath)
	require.Contains(t, prior.Nodes, "n1", "expected the previously saved content to survive the failed save")
	require.NotContains(t, prior.Nodes, "n2", "expected nothing from the failed save to reach the file")

	s.tick(context.Background())
	s.mu.Lock()
	dirty := g.dirty
	s.mu.Unlock()
	require.False(t, dirty, "expected the retried save against the corrected path to succeed")
}

// TestPropertyReadOmitsArchivedAndDanglingEdges covers testable property 3:
// Read never surfaces archived nodes or edges with no active endpoint.
func TestPropertyReadOmitsArchivedAndDanglingEdges(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.PutNode(context.Background(), LevelUser, "", "a", "gist", nil, nil, "")
	require.NoError(t, err)
	_, err = s.PutNode(context.Background(), LevelUser, "", "b", "gist", nil, nil, "")
	require.NoError(t, err)
	require.NoError(t, s.PutEdge(context.Background(), LevelUser, "", "a", "b", "relates_to", nil, ""))

	s.mu.Lock()
	g := s.levels[LevelUser]
	n := g.nodes["b"]
	n.Archived = true
	g.nodes["b"] = n
	s.mu.Unlock()

	result, err := s.Read(context.Background(), "")
	require.NoError(t, err)
	for _, n := range result.User.Nodes {
		require.NotEqual(t, "b", n.ID, "expected archived node b to be omitted from Read")
	}
	// a->b retains one active endpoint (a), so it should still surface.
	found := false
	for _, e := range result.User.Edges {
		if e.From == "a" && e.To == "b" {
			found = true
		}
	}
	require.True(t, found, "expected edge with one active endpoint to still surface")
}

// TestPropertyDeleteNodeCascadesEdges covers testable property 5: deleting a
// node removes every edge incident to it.
func TestPropertyDeleteNodeCascadesEdges(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.PutNode(context.Background(), LevelUser, "", "a", "gist", nil, nil, "")
	require.NoError(t, err)
	_, err = s.PutNode(context.Background(), LevelUser, "", "b", "gist", nil, nil, "")
	require.NoError(t, err)
	require.NoError(t, s.PutEdge(context.Background(), LevelUser, "", "a", "b", "relates_to", nil, ""))

	require.NoError(t, s.DeleteNode(context.Background(), LevelUser, "", "a"))

	s.mu.Lock()
	edgeCount := len(s.levels[LevelUser].edges)
	s.mu.Unlock()
	require.Zero(t, edgeCount, "expected cascading delete to remove the incident edge")
}

// TestPropertyPutNodeLaterWriteWins covers testable property: two put_node
// calls for the same id serialize under the store mutex, and the later
// write's content is what persists.
func TestPropertyPutNodeLaterWriteWins(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.PutNode(context.Background(), LevelUser, "", "n1", "first", nil, nil, "")
	require.NoError(t, err)
	action, err := s.PutNode(context.Background(), LevelUser, "", "n1", "second", nil, nil, "")
	require.NoError(t, err)
	require.Equal(t, "updated", action)

	result, err := s.Read(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, result.User.Nodes, 1)
	require.Equal(t, "second", result.User.Nodes[0].Gist, "expected the later write to win")
}

// TestPropertyDeleteEdgeIsSoftOnMissing covers spec §4.8: deleting a
// nonexistent edge returns deleted=false rather than an error.
func TestPropertyDeleteEdgeIsSoftOnMissing(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	deleted, err := s.DeleteEdge(context.Background(), LevelUser, "", "nope", "nowhere", "relates_to")
	require.NoError(t, err)
	require.False(t, deleted)
}

// TestPropertyPutNodeNeverClearsArchivedFlag covers Open Question 1's
// resolution: writing to an already-archived node via PutNode does not
// implicitly un-archive it.
func TestPropertyPutNodeNeverClearsArchivedFlag(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.PutNode(context.Background(), LevelUser, "", "n1", "gist", nil, nil, "")
	require.NoError(t, err)

	s.mu.Lock()
	g := s.levels[LevelUser]
	n := g.nodes["n1"]
	n.Archived = true
	g.nodes["n1"] = n
	s.mu.Unlock()

	_, err = s.PutNode(context.Background(), LevelUser, "", "n1", "updated gist", nil, nil, "")
	require.NoError(t, err)

	s.mu.Lock()
	n = g.nodes["n1"]
	s.mu.Unlock()
	require.True(t, n.Archived, "expected PutNode to leave the archived flag untouched")
}

// TestPingReportsCountsAcrossLevels exercises Ping's per-level summary.
func TestPingReportsCountsAcrossLevels(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	s.RegisterSession("")
	_, err = s.PutNode(context.Background(), LevelUser, "", "n1", "gist", nil, nil, "")
	require.NoError(t, err)

	ping := s.Ping(context.Background())
	require.Equal(t, 1, ping.Sessions)
	lvl, ok := ping.Levels[LevelUser]
	require.True(t, ok, "expected user level present in ping result")
	require.Equal(t, 1, lvl.ActiveNodes)
}
