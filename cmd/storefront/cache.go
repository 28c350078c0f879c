package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/storefront/pkg/api"
	"github.com/Sternrassler/storefront/pkg/cache"
	"github.com/Sternrassler/storefront/pkg/pagination"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the API response cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Remove stale files from the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.settings.RedisURL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "redis cache entries expire on their own; nothing to purge")
				return nil
			}

			store, err := cache.NewFileStore(cache.Config{
				Dir:        a.settings.CacheDir,
				DefaultTTL: a.settings.CacheTTL,
			})
			if err != nil {
				return err
			}
			if !store.Enabled() {
				fmt.Fprintln(cmd.OutOrStdout(), "cache disabled")
				return nil
			}

			removed, err := store.Purge()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale entries from %s\n", removed, store.Dir())
			return nil
		},
	})
	cmd.AddCommand(newCacheWarmCmd(a))
	return cmd
}

func newCacheWarmCmd(a *app) *cobra.Command {
	var (
		concurrency int
		shops       []string
	)

	cmd := &cobra.Command{
		Use:   "warm [listing...]",
		Short: "Fetch every page of the given API listings into the cache",
		Long: "Fetch every page of the given API listings into the cache, once per shop\n" +
			"in its default language. Without arguments the product catalogue is warmed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"products"}
			}

			resolver, err := a.loadShops()
			if err != nil {
				return err
			}
			if len(shops) == 0 {
				shops = resolver.ShopIDs()
			}

			backend, rdb, err := a.openCache()
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}
			pool, err := a.newPool(backend, resolver)
			if err != nil {
				return err
			}

			cfg := pagination.DefaultConfig()
			cfg.MaxConcurrency = concurrency
			cfg.Timeout = a.settings.APITimeout

			for _, id := range shops {
				settings, ok := resolver.ResolveByID(id)
				if !ok {
					return fmt.Errorf("unknown shop %q", id)
				}
				client, err := shopClient(pool, settings)
				if err != nil {
					return fmt.Errorf("shop %s: %w", id, err)
				}
				ctx := api.WithScope(cmd.Context(), api.Scope{Shop: id, Language: settings.DefaultLanguage()})
				fetcher := pagination.NewBatchFetcher(pagination.APIFetcher{Client: client, UseCache: true}, cfg)

				for _, listing := range args {
					pages, err := fetcher.FetchAllPages(ctx, listing)
					if err != nil {
						return fmt.Errorf("warm %s for shop %s: %w", listing, id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "warmed %s for shop %s: %d pages\n", listing, id, len(pages))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", pagination.DefaultConfig().MaxConcurrency, "parallel page requests")
	cmd.Flags().StringSliceVar(&shops, "shop", nil, "shop ids to warm (default all)")
	return cmd
}
