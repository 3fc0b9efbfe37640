// Package synoptic drives the GTS/BUFR decoders over the multi-station
// synoptic report file (C7): deduplicates bulletins, matches WIGOS
// station identifiers, and folds each matched subset's readings into
// one Datapoint per configured station. Grounded on
// original_source/src/dwd/synoptic.rs, reimplemented with Go's
// goroutine/channel idioms in place of Rust's iterator combinators.
package synoptic

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/dwdfusion/dwdfusion/internal/bufr"
	"github.com/dwdfusion/dwdfusion/internal/fusion"
	"github.com/dwdfusion/dwdfusion/internal/gts"
	"github.com/dwdfusion/dwdfusion/internal/weather"
)

const (
	URL        = "https://opendata.dwd.de/weather/weather_reports/synoptic/germany/Z__C_EDZW_latest_bda01%2Csynop_bufr_GER_999999_999999__MW_XXX.bin"
	ListingURL = "https://opendata.dwd.de/weather/weather_reports/synoptic/germany"

	desiredHeightM = 2.0
)

var (
	wigosLocalID              = bufr.FXY{F: 0, X: 1, Y: 128}
	dateSeq                   = bufr.FXY{F: 3, X: 1, Y: 11}
	timeSeq                   = bufr.FXY{F: 3, X: 1, Y: 12}
	temperature               = bufr.FXY{F: 0, X: 12, Y: 101}
	cloudCover                = bufr.FXY{F: 0, X: 20, Y: 10}
	relativeHumidityA         = bufr.FXY{F: 0, X: 13, Y: 3}
	relativeHumidityB         = bufr.FXY{F: 0, X: 13, Y: 9}
	totalPrecipitation        = bufr.FXY{F: 0, X: 13, Y: 11}
	significantWeather        = bufr.FXY{F: 0, X: 20, Y: 3}
	sensorHeightAboveGround   = bufr.FXY{F: 0, X: 7, Y: 32}
	timePeriodOrDisplacement = bufr.FXY{F: 0, X: 4, Y: 25}
	windSpeed                 = bufr.FXY{F: 0, X: 11, Y: 2}
	windDirection              = bufr.FXY{F: 0, X: 11, Y: 1}
	maxWindGustSpeed          = bufr.FXY{F: 0, X: 11, Y: 41}

	hrefRegexp = regexp.MustCompile(`href\s*=\s*"(Z[^"]+)"`)
)

// visited tracks the most recently seen (day, hour, minute) for a
// (product-id, source) pair, with day=1 treated as greater than any
// other day to resolve month-wrap ordering (spec P6 / scenario 5).
type visited struct{ day, hour, minute uint8 }

func newVisited(h gts.Header) visited {
	return visited{day: h.Day, hour: h.Hour, minute: h.Minute}
}

// newer reports whether v is strictly newer than other under the
// month-wrap-aware ordering: day=1 always outranks any other day, then
// day, hour, minute compare normally.
func (v visited) newer(other visited) bool {
	if v.day != other.day {
		if v.day == 1 {
			return true
		}
		if other.day == 1 {
			return false
		}
		return v.day > other.day
	}
	if v.hour != other.hour {
		return v.hour > other.hour
	}
	return v.minute > other.minute
}

type dedupKey struct{ productID, source string }

// Fetcher pulls and decodes the synoptic BUFR file, using fetch for the
// HTTP round trips so tests can substitute fixtures.
type Fetcher struct {
	fetch func(url string) (io.ReadCloser, error)
}

// NewFetcher builds a Fetcher whose fetch function opens the given URL
// over plain HTTP; pass a stub in tests.
func NewFetcher(fetch func(url string) (io.ReadCloser, error)) *Fetcher {
	return &Fetcher{fetch: fetch}
}

// ReadFile decodes one synoptic BUFR file (already fetched by the
// caller, typically via the revalidating HTTP client so its ETag can
// be tracked) and returns the fused Datapoint across all configured
// stations' matched subsets, or nil if none appeared in the file.
func ReadFile(r io.Reader, stations []string) (*weather.Datapoint, error) {
	return readFileToPoint(r, stations)
}

// ReadFallback walks the directory listing newest-first, trying each
// prior file until one yields a datapoint or the list is exhausted —
// the freshness fallback of spec §4.7.
func (f *Fetcher) ReadFallback(stations []string) *weather.Datapoint {
	rc, err := f.fetch(ListingURL)
	if err != nil {
		return nil
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}

	var files []string
	for _, m := range hrefRegexp.FindAllSubmatch(body, -1) {
		files = append(files, string(m[1]))
	}
	for i := len(files) - 1; i >= 0; i-- {
		url := ListingURL + "/" + files[i]
		frc, err := f.fetch(url)
		if err != nil {
			continue
		}
		point, err := readFileToPoint(frc, stations)
		frc.Close()
		if err == nil && point != nil {
			return point
		}
	}
	return nil
}

// LastObservationIsOld reports whether the cache's last fused
// observation is missing or older than 60 minutes, per spec §4.7.
func LastObservationIsOld(obs *weather.Datapoint, now time.Time) bool {
	if obs == nil {
		return true
	}
	return now.Sub(obs.InstantUTC) >= 60*time.Minute
}

func readFileToPoint(r io.Reader, stations []string) (*weather.Datapoint, error) {
	points := make([]*weather.Datapoint, len(stations))
	seen := make(map[dedupKey]visited)
	latest := make(map[dedupKey][]byte)
	var order []dedupKey

	gr := gts.NewReader(r)
	for {
		msg, err := gr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if msg.IsNil {
			continue
		}

		key := dedupKey{productID: msg.Header.ProductID, source: msg.Header.Source}
		v := newVisited(msg.Header)
		prev, ok := seen[key]
		if ok && !v.newer(prev) {
			continue
		}
		if !ok {
			order = append(order, key)
		}
		seen[key] = v
		latest[key] = msg.Payload
	}

	for _, key := range order {
		bm, err := bufr.ParseMessage(latest[key])
		if err != nil {
			// Decoder invariants are not fatal to the whole refresh;
			// skip this bulletin and keep scanning.
			continue
		}
		if err := scanSubsets(bm, stations, points); err != nil {
			continue
		}
	}

	var merged *weather.Datapoint
	for _, p := range points {
		if p == nil {
			continue
		}
		if merged == nil {
			cp := *p
			merged = &cp
		} else {
			fused := fusion.MergePoint(*merged, *p)
			merged = &fused
		}
	}
	return merged, nil
}

func scanSubsets(msg *bufr.Message, stations []string, points []*weather.Datapoint) error {
	dr := bufr.NewDataReader(msg)
	defer dr.Close()

	for {
		ev, err := dr.ReadEvent()
		if err != nil {
			return err
		}
		if ev.Kind == bufr.EvEof {
			return nil
		}
		if ev.Kind != bufr.EvData || ev.FXY != wigosLocalID || ev.Value.Kind != bufr.ValString {
			continue
		}
		ident := string(bytes.TrimRight(ev.Value.Bytes, " \x00"))
		idx := indexOf(stations, ident)
		if idx < 0 {
			continue
		}
		point, err := readDatapoint(dr)
		if err != nil {
			return err
		}
		if point == nil {
			continue
		}
		if points[idx] == nil {
			points[idx] = point
		} else {
			fused := fusion.MergePoint(*points[idx], *point)
			points[idx] = &fused
		}
	}
}

func indexOf(ss []string, v string) int {
	for i, s := range ss {
		if s == v {
			return i
		}
	}
	return -1
}

func readDatapoint(dr *bufr.DataReader) (*weather.Datapoint, error) {
	year, month, day, ok, err := forwardUntilDate(dr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	hour, minute, ok, err := forwardUntilTime(dr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	instant := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	point := &weather.Datapoint{
		InstantUTC:   instant,
		InstantLocal: instant,
		IsReport:     true,
	}

	var lastHeightAboveGround *float64
	var lastTimePeriod *float64
	var heightOfTemp *float64
	repeatLevel := 0

	for {
		ev, err := dr.ReadEvent()
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case bufr.EvSubsetEnd, bufr.EvEof:
			return point, nil
		case bufr.EvReplicationStart:
			repeatLevel++
		case bufr.EvReplicationEnd:
			repeatLevel--
		case bufr.EvData:
			applyElement(point, ev, repeatLevel, &lastHeightAboveGround, &lastTimePeriod, &heightOfTemp)
		}
	}
}

func applyElement(point *weather.Datapoint, ev bufr.Event, repeatLevel int, lastHeight, lastTimePeriod, heightOfTemp **float64) {
	switch ev.FXY {
	case sensorHeightAboveGround:
		if f, ok := ev.Value.Float(); ok {
			*lastHeight = weather.F64(f)
		}
	case timePeriodOrDisplacement:
		if ev.Value.Kind == bufr.ValInteger {
			v := ev.Value.Integer
			if v < 0 {
				v = -v
			}
			*lastTimePeriod = weather.F64(float64(v))
		}
	case temperature:
		f, ok := ev.Value.Float()
		if !ok {
			return
		}
		celsius := f // TableB's reference already bakes in the Kelvin offset
		curHeight := 0.0
		if *lastHeight != nil {
			curHeight = **lastHeight
		}
		if *heightOfTemp == nil {
			point.Temperature = weather.F64(celsius)
			*heightOfTemp = weather.F64(curHeight)
		} else if absF(**heightOfTemp-desiredHeightM) > absF(curHeight-desiredHeightM) {
			point.Temperature = weather.F64(celsius)
			*heightOfTemp = weather.F64(curHeight)
		}
	case totalPrecipitation:
		if repeatLevel > 0 {
			return
		}
		f, ok := ev.Value.Float()
		if !ok || *lastTimePeriod == nil || **lastTimePeriod == 0 {
			return
		}
		point.Precipitation = weather.F64(f * 60.0 / **lastTimePeriod)
	case cloudCover:
		if f, ok := ev.Value.Float(); ok {
			point.CloudCover = weather.F64(f)
		}
	case significantWeather:
		if ev.Value.Kind == bufr.ValInteger {
			point.Condition = weather.Condition{Source: weather.ConditionSynop, Code: int(ev.Value.Integer)}
		}
	case relativeHumidityA, relativeHumidityB:
		if f, ok := ev.Value.Float(); ok {
			point.RelativeHumidity = weather.F64(f)
		}
	case windSpeed:
		if f, ok := ev.Value.Float(); ok {
			point.MeanWind = weather.F64(f)
		}
	case windDirection:
		if f, ok := ev.Value.Float(); ok {
			point.WindDir = weather.F64(f)
		}
	case maxWindGustSpeed:
		if f, ok := ev.Value.Float(); ok {
			point.WindGusts = weather.F64(f)
		}
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func forwardUntilDate(dr *bufr.DataReader) (year, month, day int, ok bool, err error) {
	if !forwardUntilSequence(dr, dateSeq) {
		return 0, 0, 0, false, nil
	}
	y, ok1, err := readInt(dr)
	if err != nil {
		return 0, 0, 0, false, err
	}
	m, ok2, err := readInt(dr)
	if err != nil {
		return 0, 0, 0, false, err
	}
	d, ok3, err := readInt(dr)
	if err != nil {
		return 0, 0, 0, false, err
	}
	if !ok1 || !ok2 || !ok3 {
		return 0, 0, 0, false, nil
	}
	return y, m, d, true, nil
}

func forwardUntilTime(dr *bufr.DataReader) (hour, minute int, ok bool, err error) {
	forwardUntilSequence(dr, timeSeq)
	h, ok1, err := readInt(dr)
	if err != nil {
		return 0, 0, false, err
	}
	mi, ok2, err := readInt(dr)
	if err != nil {
		return 0, 0, false, err
	}
	if !ok1 || !ok2 {
		return 0, 0, false, nil
	}
	return h, mi, true, nil
}

func forwardUntilSequence(dr *bufr.DataReader, target bufr.FXY) bool {
	for {
		ev, err := dr.ReadEvent()
		if err != nil {
			return false
		}
		if ev.Kind == bufr.EvSequenceStart && ev.FXY == target {
			return true
		}
		if ev.Kind == bufr.EvEof {
			return false
		}
	}
}

func readInt(dr *bufr.DataReader) (int, bool, error) {
	ev, err := dr.ReadEvent()
	if err != nil {
		return 0, false, err
	}
	if ev.Kind == bufr.EvData && ev.Value.Kind == bufr.ValInteger {
		return int(ev.Value.Integer), true, nil
	}
	return 0, false, nil
}
