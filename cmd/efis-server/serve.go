package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/signalsfoundry/efis-adapter/internal/config"
	"github.com/signalsfoundry/efis-adapter/internal/logging"
	"github.com/signalsfoundry/efis-adapter/internal/observability"
	"github.com/signalsfoundry/efis-adapter/internal/readout"
	"github.com/signalsfoundry/efis-adapter/internal/sanitize"
	"github.com/signalsfoundry/efis-adapter/kb"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve instrument readouts over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Server.GRPCAddr, err)
			}
			return run(cmd.Context(), cfg, log, lis)
		},
	}
}

// run serves on lis until ctx is cancelled. It owns lis.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		_ = lis.Close()
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := observability.NewCollector(reg)
	if err != nil {
		_ = lis.Close()
		return fmt.Errorf("initialise metrics collector: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	a, err := newApp(gctx, cfg, log, collector)
	if err != nil {
		_ = lis.Close()
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			log.Warn(context.Background(), "closing stores failed", logging.Err(cerr))
		}
	}()

	if cfg.Catalog.Watch {
		unsubscribe := a.catalog.Subscribe(func(ev kb.Event) {
			collector.SetCatalogSize(ev.Count, true)
		})
		defer unsubscribe()
		stopWatch, err := kb.WatchFile(gctx, a.catalog, cfg.Catalog.Path, log)
		if err != nil {
			_ = lis.Close()
			return err
		}
		defer stopWatch()
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			readout.RequestIDUnaryServerInterceptor(log, sanitize.NewHTML(cfg.Sanitizer.MaxLen)),
			readout.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	readout.RegisterReadoutServer(server, readout.NewGRPCServer(a.service))

	g.Go(func() error {
		log.Info(gctx, "starting readout gRPC server", logging.String("addr", lis.Addr().String()))
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info(gctx, "serving Prometheus metrics", logging.String("addr", cfg.Server.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if a.clock != nil {
		g.Go(func() error {
			log.Info(gctx, "synthetic feed running", logging.Duration("tick", cfg.Simulator.Tick))
			if err := a.clock.Run(gctx, 0); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down readout server")
		server.GracefulStop()
		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	return g.Wait()
}
