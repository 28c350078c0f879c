package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Entry is a handle to one cached value in a FileStore.
type Entry struct {
	store    *FileStore
	key      any
	filename string
	ttl      time.Duration
}

// Key returns the key the entry was opened with.
func (e *Entry) Key() any {
	return e.key
}

// Filename returns the backing file path. It depends only on the key.
func (e *Entry) Filename() string {
	return e.filename
}

// TTL returns the freshness window of the entry.
func (e *Entry) TTL() time.Duration {
	return e.ttl
}

// IsFresh reports whether a value younger than the TTL exists.
// A stale file is deleted before false is returned.
func (e *Entry) IsFresh() bool {
	if !e.store.enabled {
		return false
	}

	info, err := os.Stat(e.filename)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	if e.store.now().Sub(info.ModTime()) >= e.ttl {
		if err := os.Remove(e.filename); err != nil && !os.IsNotExist(err) {
			CacheErrors.WithLabelValues("delete").Inc()
			e.store.logger.Warn().Err(err).Str("file", e.filename).Msg("Failed to remove stale cache file")
		}
		CacheStale.Inc()
		e.store.logger.Debug().Str("file", e.filename).Dur("ttl", e.ttl).Msg("Cache entry stale")
		return false
	}

	return true
}

// Read decodes the cached value into dst.
// Returns ErrCacheMiss if the entry is not fresh, or ErrInvalidEntry if the
// payload cannot be decoded; a corrupt file is removed.
func (e *Entry) Read(dst any) error {
	if !e.IsFresh() {
		CacheMisses.WithLabelValues("file").Inc()
		return ErrCacheMiss
	}

	data, err := os.ReadFile(e.filename)
	if err != nil {
		// Removed between stat and read by another process.
		if os.IsNotExist(err) {
			CacheMisses.WithLabelValues("file").Inc()
			return ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("read cache file: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		_ = os.Remove(e.filename)
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("file").Inc()
	return nil
}

// Write stores value, overwriting any existing file. It is a no-op when caching is disabled.
func (e *Entry) Write(value any) error {
	if !e.store.enabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := os.WriteFile(e.filename, data, 0o644); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("write cache file: %w", err)
	}

	e.store.logger.Debug().
		Str("file", e.filename).
		Int("bytes", len(data)).
		Dur("ttl", e.ttl).
		Msg("Cached value")
	return nil
}

// Delete removes the backing file. Deleting a missing entry is not an error.
func (e *Entry) Delete() error {
	if !e.store.enabled {
		return nil
	}
	if err := os.Remove(e.filename); err != nil && !os.IsNotExist(err) {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}
