package radar

import (
	"encoding/binary"
	"testing"
)

// buildTile constructs a synthetic 91-byte header + ETX + full-size
// raster tile, with every raster sample set to the same value so the
// 3x3 kernel sum is independent of tx/ty placement away from the edges.
func buildTile(day, hour, minute, month, yearOffset, pr, interval, vv, extLen int, sample uint16) []byte {
	header := make([]byte, headerLen)
	for i := range header {
		header[i] = ' '
	}
	putASCII := func(start int, width int, v int) {
		s := []byte(padInt(v, width))
		copy(header[start:start+width], s)
	}
	putASCII(2, 2, day)
	putASCII(4, 2, hour)
	putASCII(6, 2, minute)
	putASCII(13, 2, month)
	putASCII(15, 2, yearOffset)
	copy(header[49:54], []byte(padPrecision(pr)))
	putASCII(54, 4, interval)
	putASCII(71, 4, vv)
	putASCII(88, 3, extLen)

	body := make([]byte, headerLen+extLen+1+gridWidth*gridHeight*sampleSize)
	copy(body, header)
	body[headerLen+extLen] = etxByte

	raster := body[headerLen+extLen+1:]
	for i := 0; i < gridWidth*gridHeight; i++ {
		binary.LittleEndian.PutUint16(raster[i*sampleSize:], sample)
	}
	return body
}

func padInt(v, width int) string {
	s := itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func padPrecision(pr int) string {
	s := "E-" + padInt(pr, 2)
	for len(s) < 5 {
		s = s + " "
	}
	return s
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// TestParseTileScenario1 matches the spec's worked example: pr=1,
// interval=5 minutes, every sample in the 3x3 kernel set to 200 ->
// 240.0 mm/h.
func TestParseTileScenario1(t *testing.T) {
	body := buildTile(15, 12, 0, 6, 26, 1, 5, 0, 0, 200)
	reading, ok, err := parseTile(body, 500, 500)
	if err != nil {
		t.Fatalf("parseTile: %v", err)
	}
	if !ok {
		t.Fatalf("parseTile: ok = false, want true")
	}
	const want = 240.0
	if diff := reading.Value - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Value = %v, want %v", reading.Value, want)
	}
}

func TestParseTileEdgeOfGridSkipsOutOfBoundsNeighbors(t *testing.T) {
	body := buildTile(1, 0, 0, 1, 0, 0, 5, 0, 0, 16)
	reading, ok, err := parseTile(body, 0, 0)
	if err != nil {
		t.Fatalf("parseTile: %v", err)
	}
	if !ok {
		t.Fatalf("parseTile: ok = false, want true")
	}
	// At the corner only 4 of 9 kernel cells exist: center (weight 8)
	// plus 3 neighbors (weight 1 each) = 11 * 16 = 176; /16 * 10^0 *
	// (60/5) = 11 * 12 = 132.
	const want = 132.0
	if diff := reading.Value - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Value = %v, want %v (corner cell, fewer kernel neighbors)", reading.Value, want)
	}
}

func TestParseTileRejectsMissingETX(t *testing.T) {
	body := buildTile(1, 0, 0, 1, 0, 0, 5, 0, 0, 0)
	body[headerLen] = 0x00 // corrupt the ETX terminator
	if _, _, err := parseTile(body, 0, 0); err == nil {
		t.Errorf("parseTile: want error for missing ETX terminator")
	}
}

func TestParseTileRejectsTruncatedRaster(t *testing.T) {
	body := buildTile(1, 0, 0, 1, 0, 0, 5, 0, 0, 0)
	body = body[:len(body)-10]
	if _, _, err := parseTile(body, 0, 0); err == nil {
		t.Errorf("parseTile: want error for truncated raster")
	}
}
