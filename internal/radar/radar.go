// Package radar decodes the DWD RV composite: a BZ2-compressed TAR
// archive of fixed-grid precipitation raster tiles. Archive unwrapping
// uses mholt/archiver/v3, matching the compression-format library the
// rest of this module standardises on for the forecast ZIP (C5).
package radar

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mholt/archiver/v3"

	"github.com/dwdfusion/dwdfusion/internal/fusion"
	"github.com/dwdfusion/dwdfusion/internal/weather"
)

const (
	gridWidth  = 1100
	gridHeight = 1200

	headerLen  = 91
	etxByte    = 0x03
	sampleSize = 2 // bytes per little-endian uint16 sample
)

// Parse reads a BZ2(TAR(tiles)) archive from r and returns the sampled
// RadarReading at (tx, ty) for every tile, sorted ascending by
// timestamp.
func Parse(r io.Reader, tx, ty int) ([]weather.RadarReading, error) {
	var readings []weather.RadarReading

	tarbz2 := archiver.NewTarBz2()
	if err := tarbz2.Open(r, 0); err != nil {
		return nil, fmt.Errorf("radar: open tar.bz2: %w", err)
	}
	defer tarbz2.Close()

	for {
		entry, err := tarbz2.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("radar: read tar entry: %w", err)
		}
		body, err := io.ReadAll(entry.ReadCloser)
		entry.Close()
		if err != nil {
			return nil, fmt.Errorf("radar: read tile body: %w", err)
		}
		reading, ok, err := parseTile(body, tx, ty)
		if err != nil {
			return nil, err
		}
		if ok {
			readings = append(readings, reading)
		}
	}

	fusion.SortRadarByTimestamp(readings)
	return readings, nil
}

func parseTile(body []byte, tx, ty int) (weather.RadarReading, bool, error) {
	if len(body) < headerLen {
		return weather.RadarReading{}, false, fmt.Errorf("radar: tile header too short")
	}
	header := body[:headerLen]

	day, err := asciiInt(header[2:4])
	if err != nil {
		return weather.RadarReading{}, false, fmt.Errorf("radar: bad day: %w", err)
	}
	hour, err := asciiInt(header[4:6])
	if err != nil {
		return weather.RadarReading{}, false, fmt.Errorf("radar: bad hour: %w", err)
	}
	minute, err := asciiInt(header[6:8])
	if err != nil {
		return weather.RadarReading{}, false, fmt.Errorf("radar: bad minute: %w", err)
	}
	month, err := asciiInt(header[13:15])
	if err != nil {
		return weather.RadarReading{}, false, fmt.Errorf("radar: bad month: %w", err)
	}
	yearOffset, err := asciiInt(header[15:17])
	if err != nil {
		return weather.RadarReading{}, false, fmt.Errorf("radar: bad year: %w", err)
	}

	prField := strings.TrimPrefix(strings.TrimSpace(string(header[49:54])), "E-")
	pr, err := strconv.Atoi(strings.TrimSpace(prField))
	if err != nil {
		return weather.RadarReading{}, false, fmt.Errorf("radar: bad precision exponent: %w", err)
	}
	interval, err := asciiInt(header[54:58])
	if err != nil {
		return weather.RadarReading{}, false, fmt.Errorf("radar: bad interval: %w", err)
	}
	vv, err := asciiInt(header[71:75])
	if err != nil {
		return weather.RadarReading{}, false, fmt.Errorf("radar: bad forecast offset: %w", err)
	}

	extLen, err := asciiInt(header[88:91])
	if err != nil {
		return weather.RadarReading{}, false, fmt.Errorf("radar: bad extension length: %w", err)
	}

	pos := headerLen + extLen
	if pos >= len(body) || body[pos] != etxByte {
		return weather.RadarReading{}, false, fmt.Errorf("radar: missing ETX terminator")
	}
	pos++

	raster := body[pos:]
	want := gridWidth * gridHeight * sampleSize
	if len(raster) < want {
		return weather.RadarReading{}, false, fmt.Errorf("radar: raster truncated: got %d want %d", len(raster), want)
	}

	sum := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := tx+dx, ty+dy
			if x < 0 || x >= gridWidth || y < 0 || y >= gridHeight {
				continue
			}
			weight := 1
			if dx == 0 && dy == 0 {
				weight = 8
			}
			// The raster is stored south-to-north (spec §4.6) while tx/ty
			// come from the north-origin projection config.latLongToRadarIdx
			// uses, so the row must be flipped before indexing — matching
			// original_source/src/dwd/radar.rs's xy_to_idx.
			offset := ((gridHeight-1-y)*gridWidth + x) * sampleSize
			sum += weight * int(binary.LittleEndian.Uint16(raster[offset:offset+sampleSize]))
		}
	}

	valueMmPerH := (float64(sum) / 16.0) * pow10(-pr) * (60.0 / float64(interval))

	instant := time.Date(2000+yearOffset, time.Month(month), day, hour, minute, 0, 0, time.UTC).
		Add(time.Duration(vv) * time.Minute)

	return weather.RadarReading{
		InstantUTC:   instant,
		InstantLocal: instant,
		Value:        valueMmPerH,
	}, true, nil
}

func asciiInt(b []byte) (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

func pow10(exp int) float64 {
	v := 1.0
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			v *= 10
		}
		return v
	}
	for i := 0; i < -exp; i++ {
		v /= 10
	}
	return v
}
