// Package fusion implements the series merger (C9) and the cache +
// refresh orchestrator (C8): merging two ascending Datapoint series on
// timestamp, and coordinating the four independent fetch workers that
// keep a weather.Cache current.
package fusion

import (
	"sort"

	"github.com/dwdfusion/dwdfusion/internal/weather"
)

// MergePoint fuses two Datapoints that share a timestamp: every
// optional scalar takes the first non-empty value in the order a then
// b; condition is kept from a unless a has none, in which case b's is
// adopted; is_report is the logical OR of both.
func MergePoint(a, b weather.Datapoint) weather.Datapoint {
	out := a
	out.Temperature = firstNonNil(a.Temperature, b.Temperature)
	out.Precipitation = firstNonNil(a.Precipitation, b.Precipitation)
	out.PPrecipitation = firstNonNil(a.PPrecipitation, b.PPrecipitation)
	out.CloudCover = firstNonNil(a.CloudCover, b.CloudCover)
	out.RelativeHumidity = firstNonNil(a.RelativeHumidity, b.RelativeHumidity)
	out.MeanWind = firstNonNil(a.MeanWind, b.MeanWind)
	out.WindGusts = firstNonNil(a.WindGusts, b.WindGusts)
	out.WindDir = firstNonNil(a.WindDir, b.WindDir)
	if a.Condition.IsNone() {
		out.Condition = b.Condition
	} else {
		out.Condition = a.Condition
	}
	out.IsReport = a.IsReport || b.IsReport
	return out
}

func firstNonNil(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

// Merge performs a sorted merge-join on timestamp of two ascending
// Datapoint series (P1/P2). Equal timestamps are fused with
// MergePoint; unequal timestamps pass through verbatim. Every input
// timestamp appears exactly once in the ascending output.
func Merge(a, b []weather.Datapoint) []weather.Datapoint {
	out := make([]weather.Datapoint, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].InstantUTC.Equal(b[j].InstantUTC):
			out = append(out, MergePoint(a[i], b[j]))
			i++
			j++
		case a[i].InstantUTC.Before(b[j].InstantUTC):
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// SortByTimestamp sorts a Datapoint series ascending in place, used by
// parsers whose upstream does not guarantee ordering (report rows,
// forecast time steps). Radar readings use SortRadarByTimestamp.
func SortByTimestamp(points []weather.Datapoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].InstantUTC.Before(points[j].InstantUTC)
	})
}

// SortRadarByTimestamp sorts a RadarReading series ascending in place.
func SortRadarByTimestamp(readings []weather.RadarReading) {
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].InstantUTC.Before(readings[j].InstantUTC)
	})
}
