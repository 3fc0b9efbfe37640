package fusion

import (
	"testing"
	"time"

	"github.com/dwdfusion/dwdfusion/internal/weather"
)

func mkPoint(t time.Time, temp *float64, isReport bool) weather.Datapoint {
	return weather.Datapoint{InstantUTC: t, Temperature: temp, IsReport: isReport}
}

func TestMergePointFirstNonNilWins(t *testing.T) {
	a := weather.Datapoint{
		Temperature: weather.F64(10),
		MeanWind:    nil,
		IsReport:    true,
	}
	b := weather.Datapoint{
		Temperature: weather.F64(99),
		MeanWind:    weather.F64(5),
		IsReport:    false,
	}
	out := MergePoint(a, b)
	if *out.Temperature != 10 {
		t.Errorf("Temperature = %v, want 10 (a wins)", *out.Temperature)
	}
	if *out.MeanWind != 5 {
		t.Errorf("MeanWind = %v, want 5 (from b, a was nil)", *out.MeanWind)
	}
	if !out.IsReport {
		t.Errorf("IsReport = false, want true (logical OR)")
	}
}

func TestMergePointConditionPrefersA(t *testing.T) {
	a := weather.Datapoint{Condition: weather.Condition{Source: weather.ConditionPOI, Code: 1}}
	b := weather.Datapoint{Condition: weather.Condition{Source: weather.ConditionForecast, Code: 2}}
	out := MergePoint(a, b)
	if out.Condition.Source != weather.ConditionPOI || out.Condition.Code != 1 {
		t.Errorf("Condition = %+v, want a's condition kept", out.Condition)
	}

	none := weather.Datapoint{}
	out2 := MergePoint(none, b)
	if out2.Condition.Source != weather.ConditionForecast {
		t.Errorf("Condition = %+v, want b's condition adopted when a has none", out2.Condition)
	}
}

func TestMergeEveryTimestampOnce(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := []weather.Datapoint{
		mkPoint(base, weather.F64(1), true),
		mkPoint(base.Add(time.Hour), weather.F64(2), true),
	}
	b := []weather.Datapoint{
		mkPoint(base, weather.F64(10), false),
		mkPoint(base.Add(2*time.Hour), weather.F64(3), false),
	}
	out := Merge(a, b)
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3 (P1: dedup shared timestamp)", len(out))
	}
	for i := 1; i < len(out); i++ {
		if !out[i].InstantUTC.After(out[i-1].InstantUTC) {
			t.Errorf("output not strictly ascending at index %d", i)
		}
	}
	if *out[0].Temperature != 1 {
		t.Errorf("shared timestamp: Temperature = %v, want 1 (a wins)", *out[0].Temperature)
	}
	if !out[0].IsReport {
		t.Errorf("shared timestamp: IsReport should be true (a was a report)")
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := []weather.Datapoint{mkPoint(base, weather.F64(1), true)}
	if out := Merge(a, nil); len(out) != 1 {
		t.Errorf("Merge(a, nil) len = %d, want 1", len(out))
	}
	if out := Merge(nil, a); len(out) != 1 {
		t.Errorf("Merge(nil, a) len = %d, want 1", len(out))
	}
	if out := Merge(nil, nil); len(out) != 0 {
		t.Errorf("Merge(nil, nil) len = %d, want 0", len(out))
	}
}

func TestSortByTimestamp(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []weather.Datapoint{
		mkPoint(base.Add(2*time.Hour), nil, false),
		mkPoint(base, nil, false),
		mkPoint(base.Add(time.Hour), nil, false),
	}
	SortByTimestamp(points)
	for i := 1; i < len(points); i++ {
		if !points[i].InstantUTC.After(points[i-1].InstantUTC) {
			t.Errorf("not ascending at index %d", i)
		}
	}
}
