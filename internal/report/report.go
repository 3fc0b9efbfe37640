// Package report parses the DWD POI hourly-observation CSV: two
// metadata rows, a header row whose column names are the parsing key,
// and one data row per hour. Grounded on the teacher's CSV column
// discovery style (request_forecast.go reads JSON by field name rather
// than positional index; this applies the same "look up by name, not
// position" discipline to a CSV header).
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dwdfusion/dwdfusion/internal/fusion"
	"github.com/dwdfusion/dwdfusion/internal/weather"
)

// column names the parser recognises, keyed by the exact header text
// DWD's POI feed uses (spec §4.4: "surface observations" = date,
// "Parameter description" = time; the rest ported verbatim from
// original_source/src/dwd/report.rs's Datapoint::from_report).
const (
	colSurfaceDate = "surface observations"
	colTime        = "Parameter description"
	colTemperature = "dry_bulb_temperature_at_2_meter_above_ground"
	colPrecip      = "precipitation_amount_last_hour"
	colCloudCover  = "cloud_cover_total"
	colHumidity    = "relative_humidity"
	colWindSpeed   = "mean_wind_speed_during last_10_min_at_10_meters_above_ground"
	colWindGust    = "maximum_wind_speed_last_hour"
	colWindDir     = "mean_wind_direction_during_last_10 min_at_10_meters_above_ground"
	colCondition   = "present_weather"
)

// Parse reads the POI CSV format from r and returns Datapoints sorted
// ascending by timestamp. Rows that cannot be parsed (bad date/time,
// wrong column count) are silently skipped, per spec §4.4.
func Parse(r io.Reader) ([]weather.Datapoint, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	// Two metadata rows precede the header.
	for i := 0; i < 2; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("report: truncated before header row")
		}
	}
	if !scanner.Scan() {
		return nil, fmt.Errorf("report: missing header row")
	}
	header := splitRow(scanner.Text())
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}

	dateIdx, hasDate := colIndex[colSurfaceDate]
	timeIdx, hasTime := colIndex[colTime]
	if !hasDate || !hasTime {
		return nil, fmt.Errorf("report: header missing date/time columns")
	}

	var points []weather.Datapoint
	for scanner.Scan() {
		row := splitRow(scanner.Text())
		if len(row) <= dateIdx || len(row) <= timeIdx {
			continue
		}
		instant, err := parseInstant(row[dateIdx], row[timeIdx])
		if err != nil {
			continue
		}
		point := weather.Datapoint{
			InstantUTC:   instant,
			InstantLocal: instant,
			IsReport:     true,
		}
		point.Temperature = numericField(row, colIndex, colTemperature)
		point.Precipitation = numericField(row, colIndex, colPrecip)
		point.CloudCover = numericField(row, colIndex, colCloudCover)
		point.RelativeHumidity = numericField(row, colIndex, colHumidity)
		point.MeanWind = numericField(row, colIndex, colWindSpeed)
		point.WindGusts = numericField(row, colIndex, colWindGust)
		point.WindDir = numericField(row, colIndex, colWindDir)
		if code := numericField(row, colIndex, colCondition); code != nil {
			point.Condition = weather.Condition{Source: weather.ConditionPOI, Code: int(*code)}
		}
		points = append(points, point)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("report: scan: %w", err)
	}

	fusion.SortByTimestamp(points)
	return points, nil
}

func splitRow(line string) []string {
	return strings.Split(line, ";")
}

func parseInstant(dateCol, timeCol string) (time.Time, error) {
	d := strings.TrimSpace(dateCol)
	t := strings.TrimSpace(timeCol)
	parsed, err := time.Parse("02.01.06", d)
	if err != nil {
		return time.Time{}, err
	}
	hm := strings.Split(t, ":")
	if len(hm) != 2 {
		return time.Time{}, fmt.Errorf("report: bad time %q", t)
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil {
		return time.Time{}, err
	}
	minute, err := strconv.Atoi(hm[1])
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), hour, minute, 0, 0, time.UTC), nil
}

func numericField(row []string, colIndex map[string]int, name string) *float64 {
	idx, ok := colIndex[name]
	if !ok || idx >= len(row) {
		return nil
	}
	raw := strings.TrimSpace(row[idx])
	raw = strings.ReplaceAll(raw, ",", ".")
	if raw == "" || raw == "---" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return weather.F64(v)
}
