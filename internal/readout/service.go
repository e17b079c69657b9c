// Package readout is the instrument readout boundary: it resolves a category,
// reads through the redundant sources and returns one scaled instrument view
// with the caller's identifiers sanitized for echo.
package readout

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/efis-adapter/core"
	"github.com/signalsfoundry/efis-adapter/internal/logging"
	"github.com/signalsfoundry/efis-adapter/internal/sanitize"
	"github.com/signalsfoundry/efis-adapter/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Status describes how a readout was served. Anything other than StatusOK
// must be rendered as "no data", never as stale values.
type Status string

const (
	StatusOK             Status = "ok"
	StatusNoData         Status = "no_data"
	StatusSourcesFailed  Status = "sources_failed"
	StatusNavUnavailable Status = "nav_unavailable"
	StatusRejected       Status = "rejected"
)

// Instrument names used for metrics, spans and the CLI.
const (
	InstrumentHSI          = "hsi"
	InstrumentVSI          = "vsi"
	InstrumentSpeed        = "speed"
	InstrumentNavMode      = "nav_mode"
	InstrumentInclinometer = "inclinometer"
)

// Instruments lists every instrument the service can serve.
var Instruments = []string{InstrumentHSI, InstrumentVSI, InstrumentSpeed, InstrumentNavMode, InstrumentInclinometer}

// Readout is the result of one instrument request. CategoryID and SensorKey
// are always the sanitized forms. View is nil unless Status is StatusOK, so a
// degraded readout never carries zero values a client could draw. Role is set
// only when View came from an airframe source.
type Readout[V any] struct {
	CategoryID string           `json:"category_id"`
	SensorKey  string           `json:"sensor_key,omitempty"`
	Status     Status           `json:"status"`
	Role       model.SourceRole `json:"role,omitempty"`
	View       *V               `json:"view,omitempty"`
}

// RejectedError reports a category that did not resolve. It carries only the
// sanitized identifier.
type RejectedError struct {
	CategoryID string
	Err        error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("category %q rejected: %v", e.CategoryID, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// Recorder counts served readouts by instrument and status.
type Recorder interface {
	ObserveReadout(instrument, status string)
}

// About describes the running service.
type About struct {
	Service     string   `json:"service"`
	Version     string   `json:"version"`
	Roles       []string `json:"roles"`
	Instruments []string `json:"instruments"`
	Categories  int      `json:"categories"`
}

// CategoryCounter reports the number of configured categories.
type CategoryCounter interface {
	Len() int
}

// Deps are the collaborators of a Service. Resolver, Reader, Splitter and
// Sanitizer are required.
type Deps struct {
	Resolver  *core.CategoryResolver
	Reader    *core.RedundantReader
	Splitter  *core.Splitter
	NavModes  *core.NavModeResolver
	Sanitizer sanitize.Sanitizer
	Logger    logging.Logger
	Metrics   Recorder
	Catalog   CategoryCounter
	Version   string
}

// Service serves instrument readouts. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	resolver  *core.CategoryResolver
	reader    *core.RedundantReader
	splitter  *core.Splitter
	navModes  *core.NavModeResolver
	sanitizer sanitize.Sanitizer
	log       logging.Logger
	metrics   Recorder
	catalog   CategoryCounter
	version   string
}

// NewService wires a Service from d.
func NewService(d Deps) (*Service, error) {
	var missing []error
	if d.Resolver == nil {
		missing = append(missing, errors.New("category resolver is required"))
	}
	if d.Reader == nil {
		missing = append(missing, errors.New("redundant reader is required"))
	}
	if d.Splitter == nil {
		missing = append(missing, errors.New("splitter is required"))
	}
	if d.Sanitizer == nil {
		missing = append(missing, errors.New("sanitizer is required"))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}
	if d.Logger == nil {
		d.Logger = logging.Noop()
	}
	if d.Version == "" {
		d.Version = "dev"
	}
	return &Service{
		resolver:  d.Resolver,
		reader:    d.Reader,
		splitter:  d.Splitter,
		navModes:  d.NavModes,
		sanitizer: d.Sanitizer,
		log:       d.Logger,
		metrics:   d.Metrics,
		catalog:   d.Catalog,
		version:   d.Version,
	}, nil
}

// HSI serves the heading/situation view.
func (s *Service) HSI(ctx context.Context, categoryID string) (Readout[model.HSIView], error) {
	return readAirframe(ctx, s, InstrumentHSI, categoryID, "", func(r core.Reading) model.HSIView {
		return s.splitter.SplitHSI(r.Data)
	})
}

// VSI serves the vertical speed view.
func (s *Service) VSI(ctx context.Context, categoryID string) (Readout[model.VSIView], error) {
	return readAirframe(ctx, s, InstrumentVSI, categoryID, "", func(r core.Reading) model.VSIView {
		return s.splitter.SplitVSI(r.Data)
	})
}

// Speed serves the airspeed view.
func (s *Service) Speed(ctx context.Context, categoryID string) (Readout[model.VelocityView], error) {
	return readAirframe(ctx, s, InstrumentSpeed, categoryID, "", func(r core.Reading) model.VelocityView {
		return s.splitter.SplitVelocity(r.Data)
	})
}

// Inclinometer serves the slip/skid samples of the sensor array named by
// sensorKey, or of every array when sensorKey is empty. A key matching no
// array reads as no data.
func (s *Service) Inclinometer(ctx context.Context, categoryID, sensorKey string) (Readout[[]model.InclinometerView], error) {
	out, err := readAirframe(ctx, s, InstrumentInclinometer, categoryID, sensorKey, func(r core.Reading) []model.InclinometerView {
		return s.splitter.SplitInclinometer(r.Data, sensorKey)
	})
	if err == nil && out.Status == StatusOK && (out.View == nil || len(*out.View) == 0) {
		out.Status = StatusNoData
		out.Role = ""
		out.View = nil
	}
	return out, err
}

// NavMode serves the autopilot mode annunciation. It reads the autopilot
// source only; airframe roles are not consulted.
func (s *Service) NavMode(ctx context.Context, categoryID string) (Readout[model.NavModeView], error) {
	out := Readout[model.NavModeView]{CategoryID: s.sanitizer.ForDisplay(categoryID)}
	ctx, log := s.requestLogger(ctx, InstrumentNavMode, out.CategoryID, "")

	cat, err := s.resolve(ctx, log, categoryID, out.CategoryID)
	if err != nil {
		out.Status = StatusRejected
		s.observe(InstrumentNavMode, out.Status)
		return out, err
	}

	ctx, span := StartChildSpan(ctx, "readout."+InstrumentNavMode, InstrumentNavMode, out.CategoryID)
	defer span.End()

	st, err := s.navModes.ReadNavMode(ctx, cat)
	switch {
	case ctx.Err() != nil:
		span.RecordError(ctx.Err())
		return out, ctx.Err()
	case errors.Is(err, core.ErrNavDataUnavailable):
		log.Warn(ctx, "navigation data unavailable", logging.Err(err))
		out.Status = StatusNavUnavailable
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "nav mode read failed")
		return out, err
	default:
		out.Status = StatusOK
		view := s.navModes.View(st)
		out.View = &view
	}
	span.SetAttributes(attribute.String("readout.status", string(out.Status)))
	s.observe(InstrumentNavMode, out.Status)
	return out, nil
}

// About returns service metadata.
func (s *Service) About() About {
	roles := s.reader.Roles()
	a := About{
		Service:     "efis-adapter",
		Version:     s.version,
		Roles:       make([]string, 0, len(roles)),
		Instruments: append([]string(nil), Instruments...),
	}
	for _, r := range roles {
		a.Roles = append(a.Roles, r.String())
	}
	if s.catalog != nil {
		a.Categories = s.catalog.Len()
	}
	return a
}

func readAirframe[V any](ctx context.Context, s *Service, instrument, categoryID, sensorKey string, project func(core.Reading) V) (Readout[V], error) {
	out := Readout[V]{CategoryID: s.sanitizer.ForDisplay(categoryID)}
	if sensorKey != "" {
		out.SensorKey = s.sanitizer.ForDisplay(sensorKey)
	}
	ctx, log := s.requestLogger(ctx, instrument, out.CategoryID, out.SensorKey)

	cat, err := s.resolve(ctx, log, categoryID, out.CategoryID)
	if err != nil {
		out.Status = StatusRejected
		s.observe(instrument, out.Status)
		return out, err
	}

	ctx, span := StartChildSpan(ctx, "readout."+instrument, instrument, out.CategoryID)
	defer span.End()

	reading, ok, err := s.reader.Read(ctx, cat)
	switch {
	case ctx.Err() != nil:
		span.RecordError(ctx.Err())
		return out, ctx.Err()
	case errors.Is(err, core.ErrAllSourcesFailed):
		log.Error(ctx, "every airframe source failed", logging.Err(err))
		out.Status = StatusSourcesFailed
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "airframe read failed")
		return out, err
	case !ok:
		out.Status = StatusNoData
	default:
		out.Status = StatusOK
		out.Role = reading.Role
		view := project(reading)
		out.View = &view
		span.SetAttributes(attribute.String("source.role", reading.Role.String()))
	}
	span.SetAttributes(attribute.String("readout.status", string(out.Status)))
	s.observe(instrument, out.Status)
	return out, nil
}

func (s *Service) resolve(ctx context.Context, log logging.Logger, raw, display string) (model.Category, error) {
	cat, err := s.resolver.Resolve(raw)
	if err != nil {
		log.Warn(ctx, "category rejected", logging.Err(err))
		return model.Category{}, &RejectedError{CategoryID: display, Err: err}
	}
	return cat, nil
}

// requestLogger returns ctx carrying a logger annotated with the sanitized
// identifiers, so the reader's logs are attributable.
func (s *Service) requestLogger(ctx context.Context, instrument, categoryID, sensorKey string) (context.Context, logging.Logger) {
	base := logging.LoggerFromContext(ctx)
	if base == nil {
		base = s.log
	}
	fields := []logging.Field{
		logging.String("instrument", instrument),
		logging.String("category_id", categoryID),
	}
	if sensorKey != "" {
		fields = append(fields, logging.String("sensor_key", sensorKey))
	}
	log := base.With(fields...)
	return logging.ContextWithLogger(ctx, log), log
}

func (s *Service) observe(instrument string, st Status) {
	if s.metrics != nil {
		s.metrics.ObserveReadout(instrument, string(st))
	}
}
