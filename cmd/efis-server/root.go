package main

import (
	"github.com/signalsfoundry/efis-adapter/internal/config"
	"github.com/signalsfoundry/efis-adapter/internal/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	getenv     func(string) string
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configPath, o.getenv)
}

func newLogger(cfg config.Config) logging.Logger {
	return logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, AddSource: true})
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	opts := &rootOptions{getenv: getenv}
	root := &cobra.Command{
		Use:           "efis-server",
		Short:         "EFIS instrument readout adapter",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration file")

	root.AddCommand(
		newServeCmd(opts),
		newReadoutCmd(opts),
		newCatalogCmd(opts),
		newSimulateCmd(opts),
	)
	return root
}
