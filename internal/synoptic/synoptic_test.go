package synoptic

import (
	"testing"
	"time"

	"github.com/dwdfusion/dwdfusion/internal/weather"
)

func TestVisitedNewerWithinSameDay(t *testing.T) {
	earlier := visited{day: 15, hour: 6, minute: 0}
	later := visited{day: 15, hour: 6, minute: 30}
	if !later.newer(earlier) {
		t.Errorf("later.newer(earlier) = false, want true")
	}
	if earlier.newer(later) {
		t.Errorf("earlier.newer(later) = true, want false")
	}
}

func TestVisitedNewerMonthWrapDayOneAlwaysWins(t *testing.T) {
	// A day=1 bulletin always outranks a day=28..31 bulletin, even
	// though 1 < 28 numerically, since the file only ever holds the
	// latest cycle's bulletins and a new month has begun.
	endOfMonth := visited{day: 31, hour: 23, minute: 0}
	startOfNextMonth := visited{day: 1, hour: 0, minute: 0}

	if !startOfNextMonth.newer(endOfMonth) {
		t.Errorf("day=1 bulletin should outrank day=31, want newer() = true")
	}
	if endOfMonth.newer(startOfNextMonth) {
		t.Errorf("day=31 bulletin should not outrank day=1, want newer() = false")
	}
}

func TestVisitedNewerSameDayDifferentHour(t *testing.T) {
	a := visited{day: 5, hour: 10, minute: 0}
	b := visited{day: 5, hour: 9, minute: 59}
	if !a.newer(b) {
		t.Errorf("hour 10 should be newer than hour 9:59")
	}
}

func TestIndexOfFindsAndMisses(t *testing.T) {
	stations := []string{"0-20008-0-10379", "0-20008-0-10865"}
	if idx := indexOf(stations, "0-20008-0-10865"); idx != 1 {
		t.Errorf("indexOf found station = %d, want 1", idx)
	}
	if idx := indexOf(stations, "not-present"); idx != -1 {
		t.Errorf("indexOf missing station = %d, want -1", idx)
	}
}

func TestLastObservationIsOldNilIsAlwaysOld(t *testing.T) {
	if !LastObservationIsOld(nil, time.Now()) {
		t.Errorf("LastObservationIsOld(nil, now) = false, want true")
	}
}

func TestLastObservationIsOldThreshold(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := &weather.Datapoint{InstantUTC: now.Add(-30 * time.Minute)}
	if LastObservationIsOld(fresh, now) {
		t.Errorf("LastObservationIsOld: 30min-old observation should not be old")
	}
	stale := &weather.Datapoint{InstantUTC: now.Add(-61 * time.Minute)}
	if !LastObservationIsOld(stale, now) {
		t.Errorf("LastObservationIsOld: 61min-old observation should be old")
	}
}
