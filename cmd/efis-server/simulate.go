package main

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/efis-adapter/internal/feed"
	"github.com/signalsfoundry/efis-adapter/internal/readout"
	"github.com/signalsfoundry/efis-adapter/kb"
	"github.com/signalsfoundry/efis-adapter/timectrl"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	ticks              int
	tick               time.Duration
	instrument         string
	category           string
	sensorKey          string
	centralOutageEvery int
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the synthetic feed in-process and print one readout per tick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.ticks <= 0 {
				return fmt.Errorf("--ticks must be positive")
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			cats, err := kb.LoadCatalogFile(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			catalog, err := kb.NewCatalog(cats...)
			if err != nil {
				return err
			}
			roles, err := cfg.RolePriority()
			if err != nil {
				return err
			}
			table, err := cfg.ScalingTable()
			if err != nil {
				return err
			}

			category := opts.category
			if category == "" {
				list := catalog.List()
				if len(list) == 0 {
					return fmt.Errorf("catalog %s is empty", cfg.Catalog.Path)
				}
				category = list[0].ID
			}

			gen := feed.NewMemoryGenerator()
			ap := feed.NewMemoryAutopilot()
			synth, err := feed.NewSynthesizer(feed.SynthConfig{
				Categories:         []string{category},
				Roles:              roles,
				CentralOutageEvery: opts.centralOutageEvery,
			}, gen, ap, log)
			if err != nil {
				return err
			}
			svc, err := buildService(catalog, gen, ap, cfg, roles, table, log, nil)
			if err != nil {
				return err
			}

			clock := timectrl.NewTimeController(time.Now(), opts.tick, timectrl.Accelerated)
			synth.Attach(cmd.Context(), clock)
			for i := 0; i < opts.ticks; i++ {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				clock.Step()
				out, err := queryService(cmd.Context(), svc, opts.instrument, category, opts.sensorKey)
				if err != nil {
					return err
				}
				if err := writeJSON(cmd.OutOrStdout(), out, false); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.ticks, "ticks", 10, "number of ticks to simulate")
	cmd.Flags().DurationVar(&opts.tick, "tick", 100*time.Millisecond, "simulated time per tick")
	cmd.Flags().StringVar(&opts.instrument, "instrument", readout.InstrumentSpeed, "instrument to print each tick")
	cmd.Flags().StringVar(&opts.category, "category", "", "category to simulate (defaults to the first catalog entry)")
	cmd.Flags().StringVar(&opts.sensorKey, "sensor", "", "inclinometer sensor array key")
	cmd.Flags().IntVar(&opts.centralOutageEvery, "central-outage-every", 4, "drop the central record every N ticks (0 disables)")
	return cmd
}
