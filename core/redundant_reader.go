package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/efis-adapter/internal/logging"
	"github.com/signalsfoundry/efis-adapter/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/efis-adapter/core"

// DefaultAttemptTimeout bounds a single role read.
const DefaultAttemptTimeout = 250 * time.Millisecond

// Attempt outcomes reported to an AttemptRecorder.
const (
	OutcomeData      = "data"
	OutcomeAbsent    = "absent"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// GeneratorReader performs a role-scoped airframe read. ok=false with a nil
// error means the role has no data; a non-nil error means the read itself
// failed.
type GeneratorReader interface {
	ReadAirframe(ctx context.Context, role model.SourceRole, cat model.Category) (data model.AirframeData, ok bool, err error)
}

// AttemptRecorder receives one observation per role attempt.
type AttemptRecorder interface {
	ObserveSourceAttempt(role model.SourceRole, outcome string, elapsed time.Duration)
}

// Reading is a successful redundant read, tagged with the role that produced
// it.
type Reading struct {
	Role model.SourceRole
	Data model.AirframeData
}

// RedundantReader reads airframe data from an ordered list of generator
// roles, falling back to the next role when one is absent or fails.
type RedundantReader struct {
	gen            GeneratorReader
	roles          []model.SourceRole
	attemptTimeout time.Duration
	log            logging.Logger
	metrics        AttemptRecorder
	tracer         trace.Tracer
}

// ReaderOption configures a RedundantReader.
type ReaderOption func(*RedundantReader)

// WithRolePriority sets the failover order. An empty list keeps the default.
func WithRolePriority(roles ...model.SourceRole) ReaderOption {
	return func(r *RedundantReader) {
		if len(roles) > 0 {
			r.roles = append([]model.SourceRole(nil), roles...)
		}
	}
}

// WithAttemptTimeout bounds each role read. Zero or negative disables the
// per-attempt bound.
func WithAttemptTimeout(d time.Duration) ReaderOption {
	return func(r *RedundantReader) { r.attemptTimeout = d }
}

// WithReaderLogger sets the fallback logger used when the request context
// carries none.
func WithReaderLogger(l logging.Logger) ReaderOption {
	return func(r *RedundantReader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithAttemptRecorder reports each attempt to m.
func WithAttemptRecorder(m AttemptRecorder) ReaderOption {
	return func(r *RedundantReader) { r.metrics = m }
}

// NewRedundantReader builds a reader over gen using DefaultRolePriority and
// DefaultAttemptTimeout unless overridden.
func NewRedundantReader(gen GeneratorReader, opts ...ReaderOption) *RedundantReader {
	r := &RedundantReader{
		gen:            gen,
		roles:          append([]model.SourceRole(nil), model.DefaultRolePriority...),
		attemptTimeout: DefaultAttemptTimeout,
		log:            logging.Noop(),
		tracer:         otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Roles returns a copy of the failover order.
func (r *RedundantReader) Roles() []model.SourceRole {
	return append([]model.SourceRole(nil), r.roles...)
}

// Read returns the first role's record, trying roles strictly in priority
// order. It returns ok=false with a nil error when no role has data and at
// least one role reported absence, and ErrAllSourcesFailed only when every
// role errored. Cancellation of ctx abandons the in-flight attempt and stops
// the iteration.
func (r *RedundantReader) Read(ctx context.Context, cat model.Category) (Reading, bool, error) {
	if cat.ID == "" || !cat.Valid {
		return Reading{}, false, fmt.Errorf("%w: category must be resolved before reading", ErrUnknownCategory)
	}
	log := r.logger(ctx)

	var roleErrs []error
	absent := 0
	for _, role := range r.roles {
		if err := ctx.Err(); err != nil {
			return Reading{}, false, err
		}

		data, ok, err := r.attempt(ctx, role, cat)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reading{}, false, ctxErr
		}

		switch {
		case err != nil:
			roleErrs = append(roleErrs, &RoleError{Role: role, Err: err})
			log.Warn(ctx, "airframe source read failed",
				logging.String("role", role.String()),
				logging.String("error", err.Error()),
			)
		case !ok:
			absent++
			log.Debug(ctx, "airframe source has no data", logging.String("role", role.String()))
		default:
			if len(roleErrs) > 0 || absent > 0 {
				log.Info(ctx, "airframe read served by fallback role", logging.String("role", role.String()))
			}
			return Reading{Role: role, Data: data}, true, nil
		}
	}

	if absent == 0 && len(roleErrs) > 0 {
		return Reading{}, false, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(roleErrs...))
	}
	return Reading{}, false, nil
}

type attemptResult struct {
	data model.AirframeData
	ok   bool
	err  error
}

func (r *RedundantReader) attempt(ctx context.Context, role model.SourceRole, cat model.Category) (model.AirframeData, bool, error) {
	actx := ctx
	cancel := func() {}
	if r.attemptTimeout > 0 {
		actx, cancel = context.WithTimeout(ctx, r.attemptTimeout)
	}
	defer cancel()

	actx, span := r.tracer.Start(actx, "airframe.read", trace.WithAttributes(
		attribute.String("source.role", role.String()),
	))
	defer span.End()

	start := time.Now()
	resCh := make(chan attemptResult, 1)
	go func() {
		data, ok, err := r.gen.ReadAirframe(actx, role, cat)
		resCh <- attemptResult{data: data, ok: ok, err: err}
	}()

	var res attemptResult
	select {
	case res = <-resCh:
	case <-actx.Done():
		if ctx.Err() != nil {
			res.err = ctx.Err()
		} else {
			res.err = fmt.Errorf("attempt timed out after %s: %w", r.attemptTimeout, context.DeadlineExceeded)
		}
	}

	outcome := OutcomeData
	switch {
	case ctx.Err() != nil:
		outcome = OutcomeCancelled
	case res.err != nil && errors.Is(res.err, context.DeadlineExceeded):
		outcome = OutcomeTimeout
	case res.err != nil:
		outcome = OutcomeError
	case !res.ok:
		outcome = OutcomeAbsent
	}
	span.SetAttributes(attribute.String("source.outcome", outcome))
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, outcome)
	}
	if r.metrics != nil {
		r.metrics.ObserveSourceAttempt(role, outcome, time.Since(start))
	}
	return res.data, res.ok, res.err
}

func (r *RedundantReader) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return r.log
}
