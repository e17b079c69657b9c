package core

import "github.com/signalsfoundry/efis-adapter/model"

// Splitter decomposes an AirframeData record into per-instrument views.
// It holds only an immutable scaling table, so a single Splitter may be used
// from any number of goroutines, and views derived from the same record are
// independent of each other.
type Splitter struct {
	table ScalingTable
}

// NewSplitter returns a Splitter using table for display conversion.
func NewSplitter(table ScalingTable) *Splitter {
	return &Splitter{table: table}
}

// Table returns the scaling table in use.
func (s *Splitter) Table() ScalingTable { return s.table }

// SplitHSI extracts the heading/situation group.
func (s *Splitter) SplitHSI(d model.AirframeData) model.HSIView {
	g := d.Situation
	return model.HSIView{
		Heading:             s.table.Apply(FieldHeading, g.HeadingRaw),
		Course:              s.table.Apply(FieldCourse, g.CourseRaw),
		Track:               s.table.Apply(FieldTrack, g.TrackRaw),
		CourseDeviation:     s.table.Apply(FieldCourseDeviation, g.CourseDeviationRaw),
		GlideslopeDeviation: s.table.Apply(FieldGlideslopeDeviation, g.GlideslopeDeviationRaw),
	}
}

// SplitVSI extracts the vertical speed group.
func (s *Splitter) SplitVSI(d model.AirframeData) model.VSIView {
	g := d.Vertical
	return model.VSIView{
		VerticalSpeed:         s.table.Apply(FieldVerticalSpeed, g.VerticalSpeedRaw),
		SelectedVerticalSpeed: s.table.Apply(FieldSelectedVerticalSpeed, g.SelectedVerticalSpeedRaw),
		Altitude:              s.table.Apply(FieldAltitude, g.AltitudeRaw),
	}
}

// SplitVelocity extracts the velocity group.
func (s *Splitter) SplitVelocity(d model.AirframeData) model.VelocityView {
	g := d.Velocity
	return model.VelocityView{
		AirSpeed:     s.table.Apply(FieldAirSpeed, g.AirSpeedRaw),
		TrueAirSpeed: s.table.Apply(FieldTrueAirSpeed, g.TrueAirSpeedRaw),
		GroundSpeed:  s.table.Apply(FieldGroundSpeed, g.GroundSpeedRaw),
		Mach:         s.table.Apply(FieldMach, g.MachRaw),
	}
}

// SplitInclinometer returns the samples for the sensor array matching
// sensorKey, in record order. An empty key selects every array.
func (s *Splitter) SplitInclinometer(d model.AirframeData, sensorKey string) []model.InclinometerView {
	out := make([]model.InclinometerView, 0, len(d.Inclinometer))
	for _, smp := range d.Inclinometer {
		if sensorKey != "" && smp.SensorArray != sensorKey {
			continue
		}
		out = append(out, model.InclinometerView{
			SensorArray:    smp.SensorArray,
			BallDeflection: s.table.Apply(FieldBallDeflection, smp.BallDeflectionRaw),
			TurnRate:       s.table.Apply(FieldTurnRate, smp.TurnRateRaw),
		})
	}
	return out
}
