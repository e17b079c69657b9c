package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/signalsfoundry/efis-adapter/internal/logging"
	"github.com/signalsfoundry/efis-adapter/model"
	"github.com/signalsfoundry/efis-adapter/timectrl"
)

// AirframeSink accepts generator records. Implemented by MemoryGenerator and
// the badger snapshot store.
type AirframeSink interface {
	Put(ctx context.Context, role model.SourceRole, rec model.AirframeData) error
	Delete(ctx context.Context, role model.SourceRole, categoryID string) error
}

// AutopilotSink accepts autopilot state. Implemented by MemoryAutopilot and
// the sqlite autopilot store.
type AutopilotSink interface {
	Upsert(ctx context.Context, st model.APSystemState) error
}

// navCycle is the order in which the synthetic autopilot walks through modes.
var navCycle = []model.NavMode{
	model.NavModeHDG,
	model.NavModeLNAV,
	model.NavModeVNAV,
	model.NavModeLOC,
	model.NavModeAPR,
	model.NavModeVOR,
	model.NavModeOff,
}

// SynthConfig configures a Synthesizer.
type SynthConfig struct {
	// Categories receive one record per role on every tick.
	Categories []string
	// Roles are the generator roles written; defaults to DefaultRolePriority.
	Roles []model.SourceRole
	// CentralOutageEvery drops the central record on every Nth tick so the
	// reader falls back to the next role. Zero disables outages.
	CentralOutageEvery int
	// ModeDwell is the number of ticks the autopilot stays in each mode.
	ModeDwell int
}

// Synthesizer writes plausible, deterministic airframe and autopilot data
// for each tick of a TimeController.
type Synthesizer struct {
	cfg       SynthConfig
	airframes AirframeSink
	autopilot AutopilotSink
	log       logging.Logger

	mu  sync.Mutex
	seq uint64
}

// NewSynthesizer builds a synthesizer writing to airframes and, when non-nil,
// autopilot.
func NewSynthesizer(cfg SynthConfig, airframes AirframeSink, autopilot AutopilotSink, log logging.Logger) (*Synthesizer, error) {
	if airframes == nil {
		return nil, errors.New("synthesizer needs an airframe sink")
	}
	if len(cfg.Categories) == 0 {
		return nil, errors.New("synthesizer needs at least one category")
	}
	if cfg.CentralOutageEvery < 0 {
		return nil, fmt.Errorf("central outage interval must be >= 0, got %d", cfg.CentralOutageEvery)
	}
	if len(cfg.Roles) == 0 {
		cfg.Roles = append([]model.SourceRole(nil), model.DefaultRolePriority...)
	}
	if cfg.ModeDwell <= 0 {
		cfg.ModeDwell = 20
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Synthesizer{cfg: cfg, airframes: airframes, autopilot: autopilot, log: log}, nil
}

// Attach registers the synthesizer as a listener on tc. Write failures are
// logged; ctx bounds every write.
func (s *Synthesizer) Attach(ctx context.Context, tc *timectrl.TimeController) {
	tc.AddListener(func(now time.Time) {
		if err := s.Tick(ctx, now); err != nil && ctx.Err() == nil {
			s.log.Warn(ctx, "synthetic feed write failed", logging.Err(err))
		}
	})
}

// Sequence returns the number of ticks written so far.
func (s *Synthesizer) Sequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Tick writes one frame for every category and role at time now.
func (s *Synthesizer) Tick(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	outage := s.cfg.CentralOutageEvery > 0 && seq%uint64(s.cfg.CentralOutageEvery) == 0

	var errs []error
	for ci, cat := range s.cfg.Categories {
		for ri, role := range s.cfg.Roles {
			if outage && role == model.RoleCentral {
				if err := s.airframes.Delete(ctx, role, cat); err != nil {
					errs = append(errs, fmt.Errorf("clear %s record: %w", role, err))
				}
				continue
			}
			rec := Frame(cat, seq, now, ci, ri)
			if err := s.airframes.Put(ctx, role, rec); err != nil {
				errs = append(errs, fmt.Errorf("write %s record: %w", role, err))
			}
		}
		if s.autopilot != nil {
			if err := s.autopilot.Upsert(ctx, s.autopilotState(cat, seq, now)); err != nil {
				errs = append(errs, fmt.Errorf("write autopilot state: %w", err))
			}
		}
	}
	if outage {
		s.log.Debug(ctx, "synthetic central outage", logging.Int("sequence", int(seq)))
	}
	return errors.Join(errs...)
}

func (s *Synthesizer) autopilotState(cat string, seq uint64, now time.Time) model.APSystemState {
	mode := navCycle[int(seq/uint64(s.cfg.ModeDwell))%len(navCycle)]
	st := model.APSystemState{
		Category: cat,
		Engaged:  mode != model.NavModeOff,
		NavMode:  mode,
		Updated:  now,
	}
	if mode == model.NavModeLNAV {
		st.VerticalGuidanceValid = seq%4 != 0
		st.VerticalDeviationRaw = int32(math.Round(150 * math.Sin(float64(seq)/7)))
	}
	return st
}

// Frame synthesises the record a generator would publish for category at
// tick seq. Category and role indices offset the signal slightly so that a
// failover is visible on the display.
func Frame(category string, seq uint64, now time.Time, categoryIdx, roleIdx int) model.AirframeData {
	phase := float64(seq)/10 + float64(categoryIdx)
	wobble := int32(roleIdx)

	heading := int32((int64(seq)*15 + int64(categoryIdx)*900) % 3600)
	return model.AirframeData{
		Category:  category,
		Sequence:  seq,
		Timestamp: now,
		Situation: model.SituationGroup{
			HeadingRaw:             heading + wobble,
			CourseRaw:              heading,
			TrackRaw:               heading + int32(math.Round(20*math.Sin(phase))),
			CourseDeviationRaw:     int32(math.Round(120 * math.Sin(phase/3))),
			GlideslopeDeviationRaw: int32(math.Round(80 * math.Cos(phase/3))),
		},
		Vertical: model.VerticalGroup{
			VerticalSpeedRaw:         int32(math.Round(150*math.Sin(phase/2))) + wobble,
			SelectedVerticalSpeedRaw: 100,
			AltitudeRaw:              8000 + int32(math.Round(500*math.Sin(phase/5))),
		},
		Velocity: model.VelocityGroup{
			AirSpeedRaw:     1400 + int32(math.Round(60*math.Sin(phase))) + wobble,
			TrueAirSpeedRaw: 1550 + int32(math.Round(60*math.Sin(phase))),
			GroundSpeedRaw:  1500 + int32(math.Round(80*math.Cos(phase))),
			MachRaw:         230 + int32(math.Round(10*math.Sin(phase))),
		},
		Inclinometer: []model.InclinometerSample{
			{SensorArray: "left", BallDeflectionRaw: int32(math.Round(300 * math.Sin(phase/4))), TurnRateRaw: int32(math.Round(30 * math.Sin(phase/4)))},
			{SensorArray: "right", BallDeflectionRaw: int32(math.Round(290 * math.Sin(phase/4))), TurnRateRaw: int32(math.Round(30 * math.Sin(phase/4)))},
		},
	}
}
