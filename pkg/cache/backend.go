package cache

import (
	"context"
)

// Backend is the storage consulted by the API client's GET path.
//
// Load returns ErrCacheMiss when nothing fresh is stored for key.
// Implementations must be safe for concurrent use; values are disposable.
type Backend interface {
	Load(ctx context.Context, key any, dst any) error
	Save(ctx context.Context, key any, value any) error
}

// Load implements Backend using the store default TTL.
func (s *FileStore) Load(_ context.Context, key any, dst any) error {
	entry, err := s.Open(key, 0)
	if err != nil {
		return err
	}
	return entry.Read(dst)
}

// Save implements Backend using the store default TTL.
func (s *FileStore) Save(_ context.Context, key any, value any) error {
	entry, err := s.Open(key, 0)
	if err != nil {
		return err
	}
	return entry.Write(value)
}

var (
	_ Backend = (*FileStore)(nil)
	_ Backend = (*RedisStore)(nil)
)
