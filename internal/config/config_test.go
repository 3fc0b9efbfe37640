package config

import "testing"

// TestLatLongToRadarIdxIsMonotonicEastAndSouth checks the projection's
// orientation rather than an exact pixel, since the closed-form
// formulas are sensitive to floating point rounding: moving a station
// east should increase its column index, and moving it south should
// increase its row index (DWD's grid has row 0 at the north).
func TestLatLongToRadarIdxIsMonotonicEastAndSouth(t *testing.T) {
	baseX, baseY := latLongToRadarIdx(51.0, 10.0)
	eastX, eastY := latLongToRadarIdx(51.0, 12.0)
	southX, southY := latLongToRadarIdx(49.0, 10.0)

	if eastX <= baseX {
		t.Errorf("moving east: column %d, want > base column %d", eastX, baseX)
	}
	if southY <= baseY {
		t.Errorf("moving south: row %d, want > base row %d", southY, baseY)
	}
	_ = eastY
	_ = southX
}

// TestLatLongToRadarIdxWithinGridBounds sanity-checks that a station
// roughly at the center of Germany lands within the grid's published
// extent (spec §6: 1100x1200 one-km cells).
func TestLatLongToRadarIdxWithinGridBounds(t *testing.T) {
	x, y := latLongToRadarIdx(51.1657, 10.4515) // geographic center of Germany
	if x < 0 || x >= 1100 {
		t.Errorf("x = %d, want within [0, 1100)", x)
	}
	if y < 0 || y >= 1200 {
		t.Errorf("y = %d, want within [0, 1200)", y)
	}
}
