package core

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/frame"
	"github.com/JonMunkholm/frameview/internal/logging"
	"github.com/JonMunkholm/frameview/internal/source"
)

var (
	// ErrFileTooLarge rejects uploads over the configured size.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoFile rejects uploads without a file name or content.
	ErrNoFile = errors.New("no file provided")

	// ErrNotConfigured is the cause for database loads without a connection.
	ErrNotConfigured = errors.New("source not configured")
)

// DefaultMaxUploadSize applies when Config.MaxUploadSize is unset.
const DefaultMaxUploadSize int64 = 100 << 20

// Config holds the service settings. Zero values select defaults.
type Config struct {
	// Source applies to file and upload decoders, Database to database loads.
	Source        source.Options
	Database      source.Options
	MaxUploadSize int64
	MaxSessions   int
	MaxConcurrent int
	MaxWait       time.Duration
	LoadTimeout   time.Duration
}

// Service loads sources into catalogs and keeps the resulting sessions.
type Service struct {
	cfg      Config
	cache    *catalog.Cache
	limiter  *LoadLimiter
	sessions *sessionStore

	mu        sync.RWMutex
	defaultID uuid.UUID
}

// NewService creates a Service around cache. A nil cache gets a default-sized one.
func NewService(cfg Config, cache *catalog.Cache) *Service {
	if cache == nil {
		cache = catalog.NewCache(catalog.DefaultCacheSize)
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	return &Service{
		cfg:      cfg,
		cache:    cache,
		limiter:  NewLoadLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		sessions: newSessionStore(cfg.MaxSessions),
	}
}

// LoadPath loads a file source. Unchanged files (same path, size and
// modification time) are served from the cache.
func (s *Service) LoadPath(ctx context.Context, path string) *Session {
	return s.loadPath(ctx, path, false)
}

func (s *Service) loadPath(ctx context.Context, path string, pin bool) *Session {
	key := ""
	if info, err := os.Stat(path); err == nil {
		abs, _ := filepath.Abs(path)
		key = fmt.Sprintf("file:%s:%d:%d", abs, info.Size(), info.ModTime().UnixNano())
	}

	return s.load(ctx, SourceFile, filepath.Base(path), key, pin, func(ctx context.Context) (any, error) {
		return source.DecodeFile(ctx, path, s.cfg.Source)
	})
}

// LoadUpload loads an uploaded bundle. The upload is rejected with an error
// and no session when it is missing or larger than the configured limit.
// Identical content is served from the cache.
func (s *Service) LoadUpload(ctx context.Context, filename string, r io.Reader) (*Session, error) {
	if filename == "" || r == nil {
		return nil, ErrNoFile
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.cfg.MaxUploadSize)
	}
	if len(data) == 0 {
		return nil, ErrNoFile
	}

	key := "upload:" + filepath.Ext(filename) + ":" + strconv.FormatUint(xxhash.Sum64(data), 16)

	sess := s.load(ctx, SourceUpload, filepath.Base(filename), key, false, func(ctx context.Context) (any, error) {
		return source.Decode(ctx, filename, bytes.NewReader(data), s.cfg.Source)
	})
	return sess, nil
}

// LoadPostgres loads every base table of schema. Database reads bypass the
// cache since table contents change underneath.
func (s *Service) LoadPostgres(ctx context.Context, db source.DBTX, schema string) *Session {
	return s.load(ctx, SourcePostgres, "postgres:"+schema, "", true, func(ctx context.Context) (any, error) {
		if db == nil {
			return nil, fmt.Errorf("postgres %w", ErrNotConfigured)
		}
		return source.LoadPostgres(ctx, db, schema, s.cfg.Database)
	})
}

// LoadMySQL loads every base table of the connection's database. Like
// Postgres sessions, the result is pinned.
func (s *Service) LoadMySQL(ctx context.Context, db *sql.DB, label string) *Session {
	if label == "" {
		label = "mysql"
	}
	return s.load(ctx, SourceMySQL, label, "", true, func(ctx context.Context) (any, error) {
		if db == nil {
			return nil, fmt.Errorf("mysql %w", ErrNotConfigured)
		}
		return source.LoadMySQL(ctx, db, s.cfg.Database)
	})
}

// AutoLoad loads the first supported file in dir and makes it the default
// session. It returns nil when dir holds no supported file.
func (s *Service) AutoLoad(ctx context.Context, dir string) (*Session, error) {
	path, err := source.DiscoverFirst(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		logging.FromContext(ctx).Info("no source found to auto-load", "dir", dir)
		return nil, nil
	}
	return s.LoadDefault(ctx, path), nil
}

// LoadDefault loads path and makes it the default session. The default
// session is pinned so uploads never evict it.
func (s *Service) LoadDefault(ctx context.Context, path string) *Session {
	sess := s.loadPath(ctx, path, true)

	s.mu.Lock()
	s.defaultID = sess.ID
	s.mu.Unlock()

	return sess
}

// load runs one source through decode and catalog construction, records
// the session and logs the outcome. Failures never leave a partial catalog.
func (s *Service) load(ctx context.Context, kind SourceKind, label, key string, pin bool, decode func(context.Context) (any, error)) *Session {
	start := time.Now()
	logger := logging.WithFields(ctx, append([]any{"source", string(kind), "label", label}, clientFields(ctx)...)...)

	sess := &Session{
		ID:     uuid.New(),
		Kind:   kind,
		Label:  label,
		Pinned: pin,
	}

	cat, cached, err := s.buildCatalog(ctx, key, decode)
	sess.LoadedAt = time.Now()
	sess.Duration = time.Since(start)

	if err != nil {
		logger.Warn("source load failed",
			"error", err,
			"code", MapError(err).Code,
			"duration_ms", sess.Duration.Milliseconds(),
		)
		sess.Catalog = catalog.Empty()
		sess.Err = err
	} else {
		logger.Info("source loaded",
			"session", sess.ID.String(),
			"datasets", cat.Len(),
			"cached", cached,
			"duration_ms", sess.Duration.Milliseconds(),
		)
		sess.Catalog = cat
		sess.Cached = cached
	}

	s.sessions.add(sess)
	return sess
}

func (s *Service) buildCatalog(ctx context.Context, key string, decode func(context.Context) (any, error)) (*catalog.Catalog, bool, error) {
	build := func(ctx context.Context) (*catalog.Catalog, error) {
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer s.limiter.Release()

		loadCtx := ctx
		if s.cfg.LoadTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
			defer cancel()
		}

		raw, err := decode(loadCtx)
		if err != nil {
			return nil, catalog.NewLoadError(err)
		}
		return catalog.Construct(raw)
	}

	if key == "" {
		cat, err := build(ctx)
		return cat, false, err
	}

	// Concurrent callers share one build, so it must not end with the
	// request that happened to start it.
	shared := context.WithoutCancel(ctx)
	return s.cache.GetOrLoad(key, func() (*catalog.Catalog, error) {
		return build(shared)
	})
}

// Session returns the session with the given textual ID.
func (s *Service) Session(id string) (*Session, error) {
	uid, err := parseSessionID(id)
	if err != nil {
		return nil, err
	}
	sess, ok := s.sessions.get(uid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// DefaultSession returns the auto-loaded session, if it is still kept.
func (s *Service) DefaultSession() (*Session, bool) {
	s.mu.RLock()
	id := s.defaultID
	s.mu.RUnlock()

	if id == uuid.Nil {
		return nil, false
	}
	return s.sessions.get(id)
}

// Resolve returns the session named by id, or the default session when id
// is empty. With neither, it returns a placeholder session over the empty
// catalog so the viewer still renders.
func (s *Service) Resolve(id string) (*Session, error) {
	if id != "" {
		return s.Session(id)
	}
	if sess, ok := s.DefaultSession(); ok {
		return sess, nil
	}
	return &Session{Label: "No source loaded", Catalog: catalog.Empty()}, nil
}

// Sessions lists kept sessions, newest first.
func (s *Service) Sessions() []*Session {
	return s.sessions.list()
}

// Dataset resolves a session and looks up one of its datasets.
func (s *Service) Dataset(sessionID, name string) (*Session, catalog.Dataset, error) {
	sess, err := s.Resolve(sessionID)
	if err != nil {
		return nil, catalog.Dataset{}, err
	}
	ds, err := sess.Catalog.Lookup(name)
	if err != nil {
		return sess, catalog.Dataset{}, err
	}
	return sess, ds, nil
}

// FrameOf returns the concrete frame behind ds, when it has one.
func FrameOf(ds catalog.Dataset) (*frame.Frame, bool) {
	f, ok := ds.Contents().(*frame.Frame)
	return f, ok
}

// LimiterStatus reports load concurrency.
func (s *Service) LimiterStatus() LoadLimiterStatus {
	return s.limiter.Status()
}

// CachedCatalogs returns the number of cached catalogs.
func (s *Service) CachedCatalogs() int {
	return s.cache.Len()
}

// WaitForLoads blocks until in-flight loads finish or ctx is done.
func (s *Service) WaitForLoads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
