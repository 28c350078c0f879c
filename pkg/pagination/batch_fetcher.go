package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/storefront/pkg/logging"
)

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	MaxConcurrency int

	// Timeout per page fetch.
	Timeout time.Duration

	// MaxPages caps the pages fetched per listing, whatever the API announces.
	MaxPages int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		MaxPages:       200,
	}
}

// PageFetcher fetches one page of a listing and reports the total page count.
type PageFetcher interface {
	FetchPage(ctx context.Context, path string, page int) (data json.RawMessage, totalPages int, err error)
}

// PageResult is the outcome of one page fetch.
type PageResult struct {
	PageNumber int
	Data       json.RawMessage
	Error      error
}

// BatchFetcher fetches every page of a listing with a worker pool.
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a batch fetcher. Zero config fields take their defaults.
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	def := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxPages <= 0 {
		config.MaxPages = def.MaxPages
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger("pagination"),
	}
}

// FetchAllPages fetches page 1 to learn the page count, then the remaining
// pages in parallel. On a page failure the pages fetched so far are returned
// together with the error.
func (bf *BatchFetcher) FetchAllPages(ctx context.Context, path string) (map[int]json.RawMessage, error) {
	start := time.Now()

	first, totalPages, err := bf.fetchPage(ctx, path, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}
	if totalPages > bf.config.MaxPages {
		bf.logger.Warn().
			Str("path", path).
			Int("total_pages", totalPages).
			Int("max_pages", bf.config.MaxPages).
			Msg("Page count capped")
		totalPages = bf.config.MaxPages
	}

	results := map[int]json.RawMessage{1: first}
	if totalPages <= 1 {
		bf.logger.Debug().Str("path", path).Dur("duration", time.Since(start)).Msg("Fetch complete (single page)")
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pageQueue := make(chan int)
	pageResults := make(chan PageResult)

	go func() {
		defer close(pageQueue)
		for page := 2; page <= totalPages; page++ {
			select {
			case pageQueue <- page:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, path, pageQueue, pageResults, &wg)
	}
	go func() {
		wg.Wait()
		close(pageResults)
	}()

	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", result.PageNumber, result.Error)
				cancel()
			}
			continue
		}
		results[result.PageNumber] = result.Data
	}

	if firstErr != nil {
		bf.logger.Warn().
			Err(firstErr).
			Int("fetched_pages", len(results)).
			Int("total_pages", totalPages).
			Msg("Returning partial results")
		return results, fmt.Errorf("partial data (%d/%d pages): %w", len(results), totalPages, firstErr)
	}

	bf.logger.Info().
		Str("path", path).
		Int("pages", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")
	return results, nil
}

func (bf *BatchFetcher) worker(ctx context.Context, path string, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for page := range pageQueue {
		data, _, err := bf.fetchPage(ctx, path, page)
		select {
		case results <- PageResult{PageNumber: page, Data: data, Error: err}:
		case <-ctx.Done():
			return
		}
	}
}

func (bf *BatchFetcher) fetchPage(ctx context.Context, path string, page int) (json.RawMessage, int, error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()
	return bf.fetcher.FetchPage(pageCtx, path, page)
}

// Pages returns the page numbers of results in ascending order.
func Pages(results map[int]json.RawMessage) []int {
	pages := make([]int, 0, len(results))
	for p := range results {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// Getter is the GET side of the commerce API client.
type Getter interface {
	Get(ctx context.Context, path string, useCache bool) (json.RawMessage, error)
}

// APIFetcher fetches listing pages from the commerce API through its cache.
// A listing page is a JSON object whose "pages" field holds the page count;
// responses without it count as a single page.
type APIFetcher struct {
	Client Getter

	// UseCache stores each fetched page in the client cache.
	UseCache bool
}

// FetchPage implements PageFetcher.
func (f APIFetcher) FetchPage(ctx context.Context, path string, page int) (json.RawMessage, int, error) {
	data, err := f.Client.Get(ctx, PagePath(path, page), f.UseCache)
	if err != nil {
		return nil, 0, err
	}

	var meta struct {
		Pages int `json:"pages"`
	}
	if err := json.Unmarshal(data, &meta); err != nil || meta.Pages < 1 {
		return data, 1, nil
	}
	return data, meta.Pages, nil
}

// PagePath appends the page query parameter to path. Page 1 is the bare
// path so that it shares its cache entry with unpaged requests.
func PagePath(path string, page int) string {
	if page <= 1 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "page=" + strconv.Itoa(page)
}
