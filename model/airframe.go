package model

import "time"

// AirframeData is one generator's snapshot of flight-relevant sensor state for
// a category. Raw fields carry the generator's integer units; see
// core.DefaultScalingTable for the conversion to display units.
type AirframeData struct {
	Category  string
	Sequence  uint64
	Timestamp time.Time

	Situation    SituationGroup
	Vertical     VerticalGroup
	Velocity     VelocityGroup
	Inclinometer []InclinometerSample
}

// SituationGroup feeds the horizontal situation indicator.
type SituationGroup struct {
	HeadingRaw             int32 // 0.1 deg
	CourseRaw              int32 // 0.1 deg
	TrackRaw               int32 // 0.1 deg
	CourseDeviationRaw     int32 // 0.01 dot
	GlideslopeDeviationRaw int32 // 0.01 dot
}

// VerticalGroup feeds the vertical speed indicator.
type VerticalGroup struct {
	VerticalSpeedRaw         int32 // 10 fpm
	SelectedVerticalSpeedRaw int32 // 10 fpm
	AltitudeRaw              int32 // ft
}

// VelocityGroup feeds the airspeed tape.
type VelocityGroup struct {
	AirSpeedRaw     int32 // 0.1 kt
	TrueAirSpeedRaw int32 // 0.1 kt
	GroundSpeedRaw  int32 // 0.1 kt
	MachRaw         int32 // 0.001 M
}

// InclinometerSample is a single slip/skid sensor array reading.
type InclinometerSample struct {
	SensorArray       string
	BallDeflectionRaw int32 // 0.01 deg
	TurnRateRaw       int32 // 0.1 deg/s
}
