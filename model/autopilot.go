package model

import "time"

// NavMode is the autopilot lateral/vertical navigation mode.
type NavMode int

const (
	NavModeOff NavMode = iota
	NavModeHDG
	NavModeLNAV
	NavModeVNAV
	NavModeLOC
	NavModeAPR
	NavModeVOR
)

var navModeNames = [...]string{"OFF", "HDG", "LNAV", "VNAV", "LOC", "APR", "VOR"}

func (m NavMode) String() string {
	if m < 0 || int(m) >= len(navModeNames) {
		return "UNKNOWN"
	}
	return navModeNames[m]
}

// Known reports whether m is one of the defined modes.
func (m NavMode) Known() bool { return m >= 0 && int(m) < len(navModeNames) }

// APSystemState is the autopilot state for a category. It is read through its
// own source, independent of the airframe role failover.
type APSystemState struct {
	Category string
	Engaged  bool
	NavMode  NavMode

	// VerticalDeviationRaw is the vertical guidance deviation in feet; only
	// meaningful when VerticalGuidanceValid is set.
	VerticalDeviationRaw  int32
	VerticalGuidanceValid bool

	Updated time.Time
}
