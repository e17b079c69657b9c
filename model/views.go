package model

// HSIView is the heading/situation projection in display units.
type HSIView struct {
	Heading             float64 `json:"heading_deg"`
	Course              float64 `json:"course_deg"`
	Track               float64 `json:"track_deg"`
	CourseDeviation     float64 `json:"course_deviation_dots"`
	GlideslopeDeviation float64 `json:"glideslope_deviation_dots"`
}

// VSIView is the vertical speed projection in display units.
type VSIView struct {
	VerticalSpeed         float64 `json:"vertical_speed_fpm"`
	SelectedVerticalSpeed float64 `json:"selected_vertical_speed_fpm"`
	Altitude              float64 `json:"altitude_ft"`
}

// VelocityView is the airspeed projection in display units.
type VelocityView struct {
	AirSpeed     float64 `json:"airspeed_kt"`
	TrueAirSpeed float64 `json:"true_airspeed_kt"`
	GroundSpeed  float64 `json:"ground_speed_kt"`
	Mach         float64 `json:"mach"`
}

// InclinometerView is one sensor array's slip/skid reading.
type InclinometerView struct {
	SensorArray    string  `json:"sensor_array"`
	BallDeflection float64 `json:"ball_deflection_deg"`
	TurnRate       float64 `json:"turn_rate_dps"`
}

// NavModeView is the autopilot mode annunciation.
type NavModeView struct {
	Mode    string  `json:"mode"`
	Code    float64 `json:"code"`
	Engaged bool    `json:"engaged"`

	// VerticalDeviation is populated for LNAV with valid vertical guidance.
	HasVerticalGuidance bool    `json:"has_vertical_guidance"`
	VerticalDeviation   float64 `json:"vertical_deviation_ft"`
}
