// Package weather holds the domain types shared by every fetch, fusion,
// and layout component: the fused timeline point, a radar cell reading,
// the running cache, and the station configuration that parameterises a
// refresh cycle.
package weather

import "time"

// ConditionSource tags which upstream produced a Condition code, since
// POI, forecast and synoptic report each use a different lookup table for
// the same integer range.
type ConditionSource int

const (
	ConditionNone ConditionSource = iota
	ConditionPOI
	ConditionForecast
	ConditionSynop
)

func (s ConditionSource) String() string {
	switch s {
	case ConditionPOI:
		return "poi"
	case ConditionForecast:
		return "forecast"
	case ConditionSynop:
		return "synop"
	default:
		return "none"
	}
}

// Condition is the weather-condition sum type. The source is the
// provenance tag and must travel with the code: the same integer means
// different things depending on which table produced it.
type Condition struct {
	Source ConditionSource
	Code   int
}

// IsNone reports whether no source has supplied a condition code.
func (c Condition) IsNone() bool {
	return c.Source == ConditionNone
}

// Datapoint is one point on the fused timeline. Every scalar is optional;
// a nil pointer means "not provided by the sources merged into this
// point", never zero.
type Datapoint struct {
	InstantUTC   time.Time
	InstantLocal time.Time
	Condition    Condition

	Temperature      *float64 // degrees Celsius
	Precipitation    *float64 // mm/h
	PPrecipitation   *float64 // probability of precipitation, %
	CloudCover       *float64 // %
	RelativeHumidity *float64 // %
	MeanWind         *float64 // km/h
	WindGusts        *float64 // km/h
	WindDir          *float64 // degrees

	// IsReport is true iff this point originated from observed data (the
	// POI report or a synoptic BUFR subset); forecast-only points are
	// always false.
	IsReport bool
}

// RadarReading is a single 5-minute precipitation-rate sample for the
// configured grid cell.
type RadarReading struct {
	InstantUTC   time.Time
	InstantLocal time.Time
	Value        float64 // mm/h
}

// Config parameterises one refresh cycle: the POI station id, the radar
// grid cell computed once at start-up from the station's lat/long, and
// the WIGOS-local station identifiers eligible for synoptic fusion.
type Config struct {
	Station       uint16
	RadarX        int
	RadarY        int
	SynopStations []string
}

func f64(v float64) *float64 { return &v }

// F64 returns a pointer to v, for building Datapoint literals in tests
// and parsers without a local variable per field.
func F64(v float64) *float64 { return f64(v) }
