// Package cache provides the storefront response cache.
//
// The FileStore keeps one file per key in a single directory:
//
// - Keys may be any JSON-serializable value; composite keys are canonicalized
// - Filenames are a fixed-length xxhash digest of the canonical key
// - Freshness comes from the file modification time, not from the content
// - Reading a stale entry deletes its file before reporting a miss
// - Dir "DISABLED" turns every read into a miss and every write into a no-op
//
// # Basic Usage
//
//	store, err := cache.NewFileStore(cache.Config{
//		Dir:        "/var/cache/storefront",
//		DefaultTTL: 10 * time.Minute,
//	})
//
//	entry, err := store.Open("/products/12", 0)
//
//	var product Product
//	if err := entry.Read(&product); err == cache.ErrCacheMiss {
//		// Fetch from the commerce API, then
//		_ = entry.Write(product)
//	}
//
// # Concurrency
//
// There is no locking. Several processes may share the directory; concurrent
// writers race and the last one wins, and a reader can see a half written
// file, which surfaces as ErrInvalidEntry and removes the file. Only cache
// values that can be recomputed from the remote API.
//
// # Shared Layer
//
// RedisStore implements the same Backend interface for deployments where
// several hosts should share one cache.
//
// # Metrics
//
//   - storefront_cache_hits_total{layer} - Cache hits (file, redis)
//   - storefront_cache_misses_total{layer} - Cache misses
//   - storefront_cache_stale_total - Stale files removed on read
//   - storefront_cache_errors_total{operation} - Cache operation errors
package cache
