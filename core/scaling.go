package core

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Field names a raw AirframeData or APSystemState quantity that has a display
// scaling.
type Field string

const (
	FieldHeading               Field = "heading"
	FieldCourse                Field = "course"
	FieldTrack                 Field = "track"
	FieldCourseDeviation       Field = "course_deviation"
	FieldGlideslopeDeviation   Field = "glideslope_deviation"
	FieldVerticalSpeed         Field = "vertical_speed"
	FieldSelectedVerticalSpeed Field = "selected_vertical_speed"
	FieldAltitude              Field = "altitude"
	FieldAirSpeed              Field = "airspeed"
	FieldTrueAirSpeed          Field = "true_airspeed"
	FieldGroundSpeed           Field = "ground_speed"
	FieldMach                  Field = "mach"
	FieldBallDeflection        Field = "ball_deflection"
	FieldTurnRate              Field = "turn_rate"
	FieldNavMode               Field = "nav_mode"
	FieldVerticalDeviation     Field = "vertical_deviation"
)

// Bound selects how out-of-range display values are treated.
type Bound string

const (
	BoundPass  Bound = "pass"
	BoundClamp Bound = "clamp"
	BoundWrap  Bound = "wrap"
)

// FieldScale converts a raw integer reading to display units:
//
//	display = raw * Multiplier / Divisor + Offset
//
// then applies Bound over [Min, Max]. Wrapped ranges are half-open.
// Multiplier and Divisor must be non-zero; an empty Bound means BoundPass.
type FieldScale struct {
	Multiplier float64 `yaml:"multiplier" json:"multiplier" validate:"required"`
	Divisor    float64 `yaml:"divisor" json:"divisor" validate:"required"`
	Offset     float64 `yaml:"offset" json:"offset"`
	Min        float64 `yaml:"min" json:"min"`
	Max        float64 `yaml:"max" json:"max"`
	Bound      Bound   `yaml:"bound" json:"bound" validate:"omitempty,oneof=pass clamp wrap"`
	Unit       string  `yaml:"unit" json:"unit" validate:"max=16"`
}

func (s FieldScale) normalized() FieldScale {
	if s.Bound == "" {
		s.Bound = BoundPass
	}
	return s
}

func (s FieldScale) apply(raw float64) float64 {
	v := raw*s.Multiplier/s.Divisor + s.Offset
	switch s.Bound {
	case BoundClamp:
		if v < s.Min {
			return s.Min
		}
		if v > s.Max {
			return s.Max
		}
	case BoundWrap:
		span := s.Max - s.Min
		v = math.Mod(v-s.Min, span)
		if v < 0 {
			v += span
		}
		v += s.Min
	}
	return v
}

var scaleValidate = validator.New()

func (s FieldScale) validate(f Field) error {
	if err := scaleValidate.Struct(s); err != nil {
		return fmt.Errorf("scaling %s: %w", f, err)
	}
	if (s.Bound == BoundClamp || s.Bound == BoundWrap) && !(s.Min < s.Max) {
		return fmt.Errorf("scaling %s: %s bound needs min < max, got [%g, %g]", f, s.Bound, s.Min, s.Max)
	}
	return nil
}

// DefaultScalingTable returns the documented raw-to-display conversions.
func DefaultScalingTable() ScalingTable {
	return ScalingTable{fields: defaultScales()}
}

func defaultScales() map[Field]FieldScale {
	angle := FieldScale{Multiplier: 1, Divisor: 10, Min: 0, Max: 360, Bound: BoundWrap, Unit: "deg"}
	dots := FieldScale{Multiplier: 1, Divisor: 100, Min: -2.5, Max: 2.5, Bound: BoundClamp, Unit: "dot"}
	fpm := FieldScale{Multiplier: 10, Divisor: 1, Min: -6000, Max: 6000, Bound: BoundClamp, Unit: "fpm"}
	knots := FieldScale{Multiplier: 1, Divisor: 10, Min: 0, Max: 999.9, Bound: BoundClamp, Unit: "kt"}

	return map[Field]FieldScale{
		FieldHeading:               angle,
		FieldCourse:                angle,
		FieldTrack:                 angle,
		FieldCourseDeviation:       dots,
		FieldGlideslopeDeviation:   dots,
		FieldVerticalSpeed:         fpm,
		FieldSelectedVerticalSpeed: fpm,
		FieldAltitude:              {Multiplier: 1, Divisor: 1, Bound: BoundPass, Unit: "ft"},
		FieldAirSpeed:              knots,
		FieldTrueAirSpeed:          knots,
		FieldGroundSpeed:           knots,
		FieldMach:                  {Multiplier: 1, Divisor: 1000, Min: 0, Max: 4, Bound: BoundClamp, Unit: "M"},
		FieldBallDeflection:        {Multiplier: 1, Divisor: 100, Min: -15, Max: 15, Bound: BoundClamp, Unit: "deg"},
		FieldTurnRate:              {Multiplier: 1, Divisor: 10, Min: -20, Max: 20, Bound: BoundClamp, Unit: "deg/s"},
		FieldNavMode:               {Multiplier: 1, Divisor: 1, Bound: BoundPass, Unit: "code"},
		FieldVerticalDeviation:     {Multiplier: 1, Divisor: 1, Min: -500, Max: 500, Bound: BoundClamp, Unit: "ft"},
	}
}

// ScalingTable is an immutable per-field scaling configuration. The zero value
// passes raw values through unchanged.
type ScalingTable struct {
	fields map[Field]FieldScale
}

// NewScalingTable layers overrides on top of the default table. Each override
// replaces the whole entry for its field. Unknown field names and zero
// multipliers or divisors are rejected.
func NewScalingTable(overrides map[Field]FieldScale) (ScalingTable, error) {
	fields := defaultScales()
	names := make([]string, 0, len(overrides))
	for f := range overrides {
		names = append(names, string(f))
	}
	sort.Strings(names)

	for _, name := range names {
		f := Field(name)
		if _, known := fields[f]; !known {
			return ScalingTable{}, fmt.Errorf("scaling: unknown field %q", name)
		}
		s := overrides[f].normalized()
		if err := s.validate(f); err != nil {
			return ScalingTable{}, err
		}
		fields[f] = s
	}
	return ScalingTable{fields: fields}, nil
}

// Apply converts a raw value for field f. Fields without an entry pass
// through.
func (t ScalingTable) Apply(f Field, raw int32) float64 {
	s, ok := t.fields[f]
	if !ok {
		return float64(raw)
	}
	return s.apply(float64(raw))
}

// Scale returns the entry configured for f.
func (t ScalingTable) Scale(f Field) (FieldScale, bool) {
	s, ok := t.fields[f]
	return s, ok
}
