package layout

import (
	"testing"
	"time"

	"github.com/dwdfusion/dwdfusion/internal/weather"
)

func TestAxisToXTwoScaleBoundaries(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rect := Rect{X: 0, Y: 0, Width: 900, Height: 480}
	ax := newAxis(rect, now)

	if got := ax.toX(ax.nearStart); got != rect.X {
		t.Errorf("toX(nearStart) = %v, want %v", got, rect.X)
	}
	if got, want := ax.toX(ax.nearEnd), rect.X+rect.Width*2/3; diff(got, want) > 1e-9 {
		t.Errorf("toX(nearEnd) = %v, want %v (end of the 2/3-width near region)", got, want)
	}
	if got, want := ax.toX(ax.farEnd), rect.X+rect.Width; diff(got, want) > 1e-9 {
		t.Errorf("toX(farEnd) = %v, want %v (full rect width)", got, want)
	}

	if got, want := ax.nearEnd.Sub(ax.nearStart), 20*time.Hour; got != want {
		t.Errorf("near span = %v, want %v", got, want)
	}
	if got, want := ax.farEnd.Sub(ax.nearEnd), 84*time.Hour; got != want {
		t.Errorf("far span = %v, want %v", got, want)
	}
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestInWindowFiltersOutsideRange(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []weather.Datapoint{
		{InstantUTC: base.Add(-time.Hour)},
		{InstantUTC: base},
		{InstantUTC: base.Add(time.Hour)},
		{InstantUTC: base.Add(2 * time.Hour)},
	}
	out := inWindow(points, base, base.Add(time.Hour))
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if !out[0].InstantUTC.Equal(base) || !out[1].InstantUTC.Equal(base.Add(time.Hour)) {
		t.Errorf("unexpected window contents: %+v", out)
	}
}

func TestBuildProducesTemperaturePlanWhenDataPresent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rect := Rect{Width: 800, Height: 480}
	points := []weather.Datapoint{
		{InstantUTC: now.Add(-2 * time.Hour), Temperature: weather.F64(10)},
		{InstantUTC: now, Temperature: weather.F64(12)},
		{InstantUTC: now.Add(2 * time.Hour), Temperature: weather.F64(14)},
	}
	plan := Build(rect, points, nil, now)
	if plan.Temperature == nil {
		t.Fatalf("Temperature plan is nil, want non-nil given temperature data in window")
	}
	if len(plan.Temperature.Path) == 0 {
		t.Errorf("Temperature plan has an empty path")
	}
}

func TestBuildOmitsRainPlanWhenNoPrecipitation(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rect := Rect{Width: 800, Height: 480}
	points := []weather.Datapoint{
		{InstantUTC: now, Temperature: weather.F64(12)},
	}
	plan := Build(rect, points, nil, now)
	if plan.Rain != nil {
		t.Errorf("Rain plan = %+v, want nil when no point carries precipitation", plan.Rain)
	}
}
