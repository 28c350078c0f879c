package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/storefront/internal/storefront"
	"github.com/Sternrassler/storefront/pkg/config"
)

func newResolveCmd(a *app) *cobra.Command {
	var shopID string

	cmd := &cobra.Command{
		Use:   "resolve [domain]",
		Short: "Print the settings a domain or shop id resolves to",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (shopID != "") {
				return fmt.Errorf("give either a domain or --id")
			}

			resolver, err := a.loadShops()
			if err != nil {
				return err
			}

			var (
				settings config.Settings
				id       = shopID
			)
			if shopID != "" {
				var ok bool
				if settings, ok = resolver.ResolveByID(shopID); !ok {
					return fmt.Errorf("unknown shop %q", shopID)
				}
			} else if settings, id, err = storefront.Resolve(resolver, args[0]); err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(map[string]any{
				"shop":     id,
				"settings": settings.Map(),
			})
		},
	}

	cmd.Flags().StringVar(&shopID, "id", "", "resolve by shop id instead of domain")
	return cmd
}
