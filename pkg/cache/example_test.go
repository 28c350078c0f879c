package cache_test

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Sternrassler/storefront/pkg/cache"
)

func ExampleFileStore() {
	dir, err := os.MkdirTemp("", "storefront-cache")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	store, err := cache.NewFileStore(cache.Config{Dir: dir, DefaultTTL: time.Minute})
	if err != nil {
		panic(err)
	}

	key := map[string]any{"path": "products", "page": 2}
	entry, err := store.Open(key, 0)
	if err != nil {
		panic(err)
	}

	var items []string
	if err := entry.Read(&items); errors.Is(err, cache.ErrCacheMiss) {
		fmt.Println("miss")
	}

	if err := entry.Write([]string{"boot", "sock"}); err != nil {
		panic(err)
	}
	if err := entry.Read(&items); err == nil {
		fmt.Println(items)
	}
	// Output:
	// miss
	// [boot sock]
}
