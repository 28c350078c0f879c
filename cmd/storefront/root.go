package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/storefront/pkg/config"
	"github.com/Sternrassler/storefront/pkg/logging"
)

// app carries what the subcommands share.
type app struct {
	configFile string
	settings   *Settings
	logger     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Serve multi-tenant shop fronts backed by a commerce API",
		Long: `Serve the shop fronts configured in the shops file. Each request is
matched to a shop by its host, routed, and answered from the commerce API
with cached GET responses.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(a.configFile)
			if err != nil {
				return err
			}

			logCfg := logging.DefaultConfig()
			logCfg.Level = logging.LogLevel(s.LogLevel)
			logCfg.Pretty = s.LogPretty
			logCfg.Output = cmd.ErrOrStderr()
			logging.Setup(logCfg)

			a.settings = s
			a.logger = logging.NewLogger("cmd")
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./storefront.yaml)")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newResolveCmd(a))
	root.AddCommand(newCacheCmd(a))
	return root
}

func (a *app) loadShops() (*config.Resolver, error) {
	return config.LoadFile(a.settings.ShopsFile)
}
