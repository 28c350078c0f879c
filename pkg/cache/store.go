package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/storefront/pkg/logging"
	"github.com/rs/zerolog"
)

const (
	// DefaultTTL is used when neither the store nor the entry sets a TTL.
	DefaultTTL = 600 * time.Second

	// DisabledDir is the sentinel directory value that turns caching off.
	DisabledDir = "DISABLED"
)

var (
	// ErrCacheMiss indicates the entry does not exist, is stale, or caching is disabled.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Config holds the file store configuration.
type Config struct {
	// Dir is the root directory holding one file per key.
	// Empty or DisabledDir disables caching.
	Dir string

	// DefaultTTL applies to entries opened without an override (default: DefaultTTL).
	DefaultTTL time.Duration
}

// FileStore is a TTL-expiring key/value store backed by a single directory.
//
// Freshness is taken from the file modification time. No locking is
// performed: concurrent writers race and the last one wins, and a reader may
// observe a partially written file. Cached values must therefore always be
// recomputable and are never a source of truth.
type FileStore struct {
	dir        string
	defaultTTL time.Duration
	enabled    bool
	now        func() time.Time
	logger     zerolog.Logger
}

// NewFileStore creates a file store. The directory is created if caching is enabled.
func NewFileStore(cfg Config) (*FileStore, error) {
	s := &FileStore{
		dir:        cfg.Dir,
		defaultTTL: cfg.DefaultTTL,
		enabled:    cfg.Dir != "" && cfg.Dir != DisabledDir,
		now:        time.Now,
		logger:     logging.NewLogger("cache"),
	}
	if s.defaultTTL <= 0 {
		s.defaultTTL = DefaultTTL
	}

	if s.enabled {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return s, nil
}

// Enabled reports whether reads and writes reach the filesystem.
func (s *FileStore) Enabled() bool {
	return s.enabled
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Open prepares an entry for key. A ttlOverride <= 0 selects the store default.
// Open never touches storage.
func (s *FileStore) Open(key any, ttlOverride time.Duration) (*Entry, error) {
	canonical, err := Canonicalize(key)
	if err != nil {
		return nil, err
	}

	ttl := ttlOverride
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	return &Entry{
		store:    s,
		key:      key,
		filename: filepath.Join(s.dir, Digest(canonical)),
		ttl:      ttl,
	}, nil
}

// Purge removes every stale file in the root directory and returns how many were removed.
func (s *FileStore) Purge() (int, error) {
	if !s.enabled {
		return 0, nil
	}

	files, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	removed := 0
	cutoff := s.now().Add(-s.defaultTTL)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, f.Name())); err != nil && !os.IsNotExist(err) {
			CacheErrors.WithLabelValues("purge").Inc()
			return removed, fmt.Errorf("remove %s: %w", f.Name(), err)
		}
		removed++
	}

	s.logger.Info().Int("removed", removed).Str("dir", s.dir).Msg("Purged stale cache files")
	return removed, nil
}
