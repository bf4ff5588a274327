package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgraph-ai/kgraph/internal/config"
	"github.com/kgraph-ai/kgraph/internal/kgerrors"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		MaxTokens:           5000,
		GracePeriodDays:     7,
		OrphanGraceDays:     7,
		SaveIntervalSeconds: 30,
		SessionTTLSeconds:   86400,
		UserPath:            filepath.Join(dir, "user.json"),
		ProjectDir:          filepath.Join(dir, "projects"),
		ProjectPathFunc: func(key string) string {
			return filepath.Join(dir, "projects", key+".json")
		},
	}
}

func TestNewLoadsUserLevelAndAcquiresLock(t *testing.T) {
	cfg := testConfig(t)

	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, ok := s.levels[LevelUser]
	require.True(t, ok, "expected user level to be eagerly loaded")
	_, ok = s.locks[cfg.UserPath]
	require.True(t, ok, "expected user level's lock to be held")
}

func TestNewFailsWhenUserLevelAlreadyLocked(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(cfg, Options{})
	require.NoError(t, err)
	defer first.Close(context.Background())

	_, err = New(cfg, Options{})
	require.Error(t, err, "expected second New against the same path to fail with a lock error")
}

func TestResolveLevelLazilyLoadsProjectGraph(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	s.mu.Lock()
	_, ok := s.levels[projectKeyPrefix+"proj1"]
	require.False(t, ok, "project level should not be loaded before first reference")
	g, err := s.resolveLevel(LevelProject, "proj1")
	s.mu.Unlock()
	require.NoError(t, err)
	require.NotNil(t, g)

	s.mu.Lock()
	_, ok = s.levels[projectKeyPrefix+"proj1"]
	s.mu.Unlock()
	require.True(t, ok, "expected project level to be cached after first resolution")
}

func TestResolveLevelRejectsMissingProjectKey(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	s.mu.Lock()
	_, err = s.resolveLevel(LevelProject, "")
	s.mu.Unlock()
	require.ErrorIs(t, err, kgerrors.ErrUnknownSession)
}

func TestResolveLevelRejectsInvalidLevel(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	s.mu.Lock()
	_, err = s.resolveLevel("bogus", "")
	s.mu.Unlock()
	require.Error(t, err)
}

func TestCloseReleasesLocksAndAllowsReopen(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))

	// Lock was released, so a fresh Store over the same path must succeed.
	s2, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s2.Close(context.Background())
}

func TestCloseSavesDirtyLevels(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)

	_, err = s.PutNode(context.Background(), LevelUser, "", "n1", "a gist", nil, nil, "")
	require.NoError(t, err)

	require.NoError(t, s.Close(context.Background()))

	reopened, err := New(cfg, Options{})
	require.NoError(t, err)
	defer reopened.Close(context.Background())

	result, err := reopened.Read(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, result.User.Nodes, 1)
	require.Equal(t, "n1", result.User.Nodes[0].ID)
}

func TestSessionProjectKeyRejectsEmptySessionID(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, err = s.sessionProjectKey("")
	require.Error(t, err)
}
