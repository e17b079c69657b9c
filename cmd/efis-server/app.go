package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/efis-adapter/core"
	"github.com/signalsfoundry/efis-adapter/internal/config"
	"github.com/signalsfoundry/efis-adapter/internal/feed"
	"github.com/signalsfoundry/efis-adapter/internal/logging"
	"github.com/signalsfoundry/efis-adapter/internal/observability"
	"github.com/signalsfoundry/efis-adapter/internal/readout"
	"github.com/signalsfoundry/efis-adapter/internal/sanitize"
	"github.com/signalsfoundry/efis-adapter/internal/store/autopilot"
	"github.com/signalsfoundry/efis-adapter/internal/store/snapshot"
	"github.com/signalsfoundry/efis-adapter/kb"
	"github.com/signalsfoundry/efis-adapter/model"
	"github.com/signalsfoundry/efis-adapter/timectrl"
)

// app holds the wired collaborators of a running server.
type app struct {
	cfg       config.Config
	log       logging.Logger
	catalog   *kb.Catalog
	snapshots *snapshot.Store
	autopilot *autopilot.Store
	service   *readout.Service
	clock     *timectrl.TimeController
	synth     *feed.Synthesizer
}

// newApp opens the stores and wires the readout pipeline. collector may be
// nil. The caller must Close the app.
func newApp(ctx context.Context, cfg config.Config, log logging.Logger, collector *observability.Collector) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	cats, err := kb.LoadCatalogFile(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	if a.catalog, err = kb.NewCatalog(cats...); err != nil {
		return nil, err
	}
	collector.SetCatalogSize(a.catalog.Len(), false)

	roles, err := cfg.RolePriority()
	if err != nil {
		return nil, err
	}
	table, err := cfg.ScalingTable()
	if err != nil {
		return nil, err
	}

	var clock timectrl.Clock = timectrl.WallClock{}
	if cfg.Simulator.Enabled {
		a.clock = timectrl.NewTimeController(time.Now(), cfg.Simulator.Tick, timectrl.RealTime)
		clock = a.clock
	}

	if a.snapshots, err = snapshot.Open(snapshot.Config{
		Path:     cfg.Snapshots.Path,
		InMemory: cfg.Snapshots.InMemory,
		MaxAge:   cfg.Snapshots.MaxAge,
		Clock:    clock,
		Logger:   log.With(logging.String("component", "badger")),
	}); err != nil {
		return nil, err
	}
	if a.autopilot, err = autopilot.Open(ctx, cfg.Autopilot.DBPath); err != nil {
		return nil, err
	}

	if cfg.Simulator.Enabled {
		categories := cfg.Simulator.Categories
		if len(categories) == 0 {
			for _, c := range a.catalog.List() {
				categories = append(categories, c.ID)
			}
		}
		a.synth, err = feed.NewSynthesizer(feed.SynthConfig{
			Categories:         categories,
			Roles:              roles,
			CentralOutageEvery: cfg.Simulator.CentralOutageEvery,
		}, a.snapshots, a.autopilot, log.With(logging.String("component", "feed")))
		if err != nil {
			return nil, err
		}
		a.synth.Attach(ctx, a.clock)
	}

	a.service, err = buildService(a.catalog, a.snapshots, a.autopilot, cfg, roles, table, log, collector)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// buildService wires the readout pipeline over the given sources.
func buildService(
	catalog *kb.Catalog,
	gen core.GeneratorReader,
	ap core.AutopilotReader,
	cfg config.Config,
	roles []model.SourceRole,
	table core.ScalingTable,
	log logging.Logger,
	collector *observability.Collector,
) (*readout.Service, error) {
	readerOpts := []core.ReaderOption{
		core.WithRolePriority(roles...),
		core.WithAttemptTimeout(cfg.Sources.AttemptTimeout),
		core.WithReaderLogger(log),
	}
	deps := readout.Deps{
		Resolver:  core.NewCategoryResolver(catalog),
		Splitter:  core.NewSplitter(table),
		NavModes:  core.NewNavModeResolver(ap, table, cfg.Autopilot.Timeout),
		Sanitizer: sanitize.NewHTML(cfg.Sanitizer.MaxLen),
		Logger:    log,
		Catalog:   catalog,
		Version:   version,
	}
	if collector != nil {
		readerOpts = append(readerOpts, core.WithAttemptRecorder(collector))
		deps.Metrics = collector
	}
	deps.Reader = core.NewRedundantReader(gen, readerOpts...)

	svc, err := readout.NewService(deps)
	if err != nil {
		return nil, fmt.Errorf("wire readout service: %w", err)
	}
	return svc, nil
}

// Close releases the stores.
func (a *app) Close() error {
	var errs []error
	if a.autopilot != nil {
		errs = append(errs, a.autopilot.Close())
	}
	if a.snapshots != nil {
		errs = append(errs, a.snapshots.Close())
	}
	return errors.Join(errs...)
}
