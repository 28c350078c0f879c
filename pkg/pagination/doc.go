// Package pagination fetches every page of a paginated commerce API listing
// in parallel.
//
// The first page announces the page count in its "pages" field. The
// remaining pages are distributed over a small worker pool. The storefront
// uses it to warm the response cache:
//
//	fetcher := pagination.NewBatchFetcher(pagination.APIFetcher{Client: client, UseCache: true}, pagination.DefaultConfig())
//	pages, err := fetcher.FetchAllPages(ctx, "products")
//
// A failing page cancels the outstanding ones; the pages fetched so far are
// returned with the error.
package pagination
