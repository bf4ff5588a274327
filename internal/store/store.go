package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/kgraph-ai/kgraph/internal/broadcast"
	"github.com/kgraph-ai/kgraph/internal/config"
	"github.com/kgraph-ai/kgraph/internal/kgerrors"
	"github.com/kgraph-ai/kgraph/internal/persistence"
	"github.com/kgraph-ai/kgraph/internal/session"
	"github.com/kgraph-ai/kgraph/internal/telemetry"
)

var (
	errInvalidLevel      = kgerrors.ErrInvalidLevel
	errMissingProjectKey = kgerrors.ErrUnknownSession
)

// Store is the in-process knowledge-graph store: per-level graphs,
// versions, dirty flags, session table, and the wiring needed to persist
// and observe them. Construct with New; a Store is safe for concurrent use
// by multiple goroutines, per spec §5's single-mutex model.
type Store struct {
	mu sync.Mutex

	cfg     config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics
	hook    broadcast.Hook

	levels map[string]*graphState // "user" or "project:<key>"
	loadSF singleflight.Group

	sessions *session.Manager

	uploader persistence.OffsiteUploader
	locks    map[string]*persistence.StoreLock
	watchers map[string]*persistence.FileWatcher // keyed by path

	watchCtx    context.Context
	stopWatches context.CancelFunc

	now func() time.Time
}

// Options configures a new Store. Nil Logger/Tracer/Metrics/Hook/Uploader
// are all valid: they fall back to slog.Default(), a no-op tracer, nil
// metrics (skipped), broadcast.NopHook{}, and no offsite upload,
// respectively.
type Options struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  *telemetry.Metrics
	Hook     broadcast.Hook
	Uploader persistence.OffsiteUploader
}

// New constructs a Store from cfg, eagerly loading the user-level graph
// (project graphs are lazy per spec §9). It acquires the user level's
// advisory file lock immediately so a second process pointed at the same
// data directory fails fast.
func New(cfg config.Config, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hook := opts.Hook
	if hook == nil {
		hook = broadcast.NopHook{}
	}

	watchCtx, stopWatches := context.WithCancel(context.Background())

	s := &Store{
		cfg:         cfg,
		logger:      logger,
		tracer:      opts.Tracer,
		metrics:     opts.Metrics,
		hook:        hook,
		levels:      make(map[string]*graphState),
		sessions:    session.New(cfg.SessionTTL()),
		uploader:    opts.Uploader,
		locks:       make(map[string]*persistence.StoreLock),
		watchers:    make(map[string]*persistence.FileWatcher),
		watchCtx:    watchCtx,
		stopWatches: stopWatches,
		now:         time.Now,
	}

	userState, err := s.acquireAndLoad(LevelUser)
	if err != nil {
		return nil, err
	}
	s.levels[LevelUser] = userState

	return s, nil
}

// acquireAndLoad takes the advisory lock for key's file (if not already
// held) and loads its document. Caller must hold s.mu except during New,
// where no other goroutine can observe s yet.
func (s *Store) acquireAndLoad(key string) (*graphState, error) {
	path := s.pathFor(key)

	if _, ok := s.locks[path]; !ok {
		lock, err := persistence.AcquireStoreLock(path)
		if err != nil {
			return nil, fmt.Errorf("acquiring lock for %s: %w", key, err)
		}
		s.locks[path] = lock
		s.startWatcher(key, path)
	}

	return loadGraphState(s.logger, path), nil
}

// startWatcher begins watching path for external modifications, per
// SPEC_FULL.md's external-change detection: advisory only, it never alters
// what gets loaded or saved, it only logs. A watcher that fails to start
// (e.g. the directory is unwatchable) is logged and skipped; detection is
// a convenience, not a correctness requirement.
func (s *Store) startWatcher(key, path string) {
	logChange := persistence.LogExternalChange(s.logger, key)
	fw, err := persistence.NewFileWatcher(path, func(changedPath string) {
		logChange(changedPath)
		if s.metrics != nil {
			s.metrics.ExternalChanges.Add(context.Background(), 1)
		}
	})
	if err != nil {
		s.logger.Warn("failed to start external-change watcher", "level", key, "path", path, "error", err)
		return
	}
	fw.Start(s.watchCtx)
	s.watchers[path] = fw
}

func (s *Store) pathFor(key string) string {
	if key == LevelUser {
		return s.cfg.UserPath
	}
	projectKey := key[len(projectKeyPrefix):]
	return s.cfg.ProjectPathFunc(projectKey)
}

// resolveLevel maps a spec-level ("user"/"project") plus a caller-supplied
// project key into the internal graphState, lazily loading a project graph
// on first reference. Must be called with s.mu held.
func (s *Store) resolveLevel(level, projectKey string) (*graphState, error) {
	key, err := normalizeLevel(level, projectKey)
	if err != nil {
		return nil, err
	}

	if g, ok := s.levels[key]; ok {
		return g, nil
	}

	// singleflight collapses concurrent first-touch loads of the same
	// project graph; s.mu is held across the whole call so there is in
	// practice never more than one caller in flight here at a time, but
	// the group also protects against a future read/write-lock split.
	v, err, _ := s.loadSF.Do(key, func() (any, error) {
		return s.acquireAndLoad(key)
	})
	if err != nil {
		return nil, fmt.Errorf("loading level %s: %w", key, err)
	}

	g := v.(*graphState)
	s.levels[key] = g
	return g, nil
}

// sessionProjectKey resolves the project key associated with sessionID, for
// callers that identify the project implicitly via their session rather
// than passing it explicitly. Returns "" with no error for a session that
// registered without a project.
func (s *Store) sessionProjectKey(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("resolving session project: %w", errMissingProjectKey)
	}
	key, err := s.sessions.ProjectKey(sessionID)
	if err != nil {
		return "", err
	}
	return key, nil
}

// Close performs a final save of every dirty level and releases all
// advisory locks. It does not stop a running maintenance loop; cancel the
// context passed to Run for that, then call Close.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, g := range s.levels {
		if g.dirty {
			if err := s.saveLevel(key, g); err != nil {
				errs = append(errs, fmt.Errorf("final save of %s: %w", key, err))
			}
		}
	}

	s.stopWatches()
	for _, fw := range s.watchers {
		if err := fw.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	for _, lock := range s.locks {
		if err := lock.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
