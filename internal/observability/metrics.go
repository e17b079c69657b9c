package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/signalsfoundry/efis-adapter/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Collector bundles the adapter's Prometheus metrics: RPC traffic, per-role
// source attempts, readout outcomes and catalog state.
type Collector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	SourceAttempts        *prometheus.CounterVec
	SourceAttemptDuration *prometheus.HistogramVec
	Readouts              *prometheus.CounterVec

	CatalogCategories prometheus.Gauge
	CatalogReloads    prometheus.Counter
}

// NewCollector registers the adapter metrics against reg, defaulting to the
// global Prometheus registry when nil. Registering twice against the same
// registry returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.RPCRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "efis_rpc_requests_total",
		Help: "Total number of handled readout RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "efis_rpc_requests_total"); err != nil {
		return nil, err
	}
	if c.RPCDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "efis_rpc_request_duration_seconds",
		Help:    "Readout RPC latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"service", "method"}), "efis_rpc_request_duration_seconds"); err != nil {
		return nil, err
	}
	if c.SourceAttempts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "efis_source_attempts_total",
		Help: "Airframe generator read attempts, labeled by source role and outcome.",
	}, []string{"role", "outcome"}), "efis_source_attempts_total"); err != nil {
		return nil, err
	}
	if c.SourceAttemptDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "efis_source_attempt_duration_seconds",
		Help:    "Latency of individual airframe generator reads.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"role"}), "efis_source_attempt_duration_seconds"); err != nil {
		return nil, err
	}
	if c.Readouts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "efis_readouts_total",
		Help: "Instrument readouts served, labeled by instrument and display status.",
	}, []string{"instrument", "status"}), "efis_readouts_total"); err != nil {
		return nil, err
	}
	if c.CatalogCategories, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "efis_catalog_categories",
		Help: "Number of categories in the active catalog.",
	}), "efis_catalog_categories"); err != nil {
		return nil, err
	}
	if c.CatalogReloads, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "efis_catalog_reloads_total",
		Help: "Successful category catalog reloads.",
	}), "efis_catalog_reloads_total"); err != nil {
		return nil, err
	}
	return c, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *Collector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		c.RPCRequests.WithLabelValues(service, method, code).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// ObserveSourceAttempt implements core.AttemptRecorder.
func (c *Collector) ObserveSourceAttempt(role model.SourceRole, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.SourceAttempts.WithLabelValues(role.String(), outcome).Inc()
	c.SourceAttemptDuration.WithLabelValues(role.String()).Observe(elapsed.Seconds())
}

// ObserveReadout counts a served readout.
func (c *Collector) ObserveReadout(instrument, status string) {
	if c == nil {
		return
	}
	c.Readouts.WithLabelValues(instrument, status).Inc()
}

// SetCatalogSize records the active catalog size; reloaded marks a reload.
func (c *Collector) SetCatalogSize(n int, reloaded bool) {
	if c == nil {
		return
	}
	c.CatalogCategories.Set(float64(n))
	if reloaded {
		c.CatalogReloads.Inc()
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components, returning "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
