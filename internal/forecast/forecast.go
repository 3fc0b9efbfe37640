// Package forecast pulls station forecasts out of DWD's MOSMIX KML
// bundles: a ZIP archive (unpacked via mholt/archiver/v3) holding one
// large KML document, which is scanned with a streaming encoding/xml
// decoder rather than loaded into a DOM, since the all-stations
// variant is large enough that unmarshalling it whole would be
// wasteful.
package forecast

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mholt/archiver/v3"

	"github.com/dwdfusion/dwdfusion/internal/fusion"
	"github.com/dwdfusion/dwdfusion/internal/weather"
)

// field maps a recognised dwd:Forecast elementName to the Datapoint
// target it fills and the unit conversion it needs.
type field int

const (
	fieldCondition field = iota
	fieldPrecipitation
	fieldPProbability
	fieldCloudCover
	fieldTemperature
	fieldWindDir
	fieldMeanWind
	fieldWindGusts
)

var elementFields = map[string]field{
	"ww":   fieldCondition,
	"RR1c": fieldPrecipitation,
	"wwP":  fieldPProbability,
	"Neff": fieldCloudCover,
	"TTT":  fieldTemperature,
	"DD":   fieldWindDir,
	"FF":   fieldMeanWind,
	"FX1":  fieldWindGusts,
}

// Parse extracts a ZIP-wrapped KML file from r, locates the named
// station, and returns its forecast series sorted ascending by
// timestamp.
func Parse(r io.Reader, station string) ([]weather.Datapoint, error) {
	kmlReader, err := openKML(r)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(kmlReader)

	timeSteps, err := scanTimeSteps(dec)
	if err != nil {
		return nil, err
	}
	if len(timeSteps) == 0 {
		return nil, fmt.Errorf("forecast: no ForecastTimeSteps found")
	}

	points := make([]weather.Datapoint, len(timeSteps))
	for i, ts := range timeSteps {
		points[i] = weather.Datapoint{InstantUTC: ts, InstantLocal: ts, IsReport: false}
	}

	if err := scanStationData(dec, station, points); err != nil {
		return nil, err
	}

	fusion.SortByTimestamp(points)
	return points, nil
}

// openKML unzips r and returns a reader over its single KML member.
// mholt/archiver/v3's Zip type streams entries without extracting to
// disk, matching the in-memory processing the rest of this module
// uses for the other compressed upstreams.
func openKML(r io.Reader) (io.Reader, error) {
	z := archiver.NewZip()
	if err := z.Open(r, 0); err != nil {
		return nil, fmt.Errorf("forecast: open zip: %w", err)
	}
	for {
		entry, err := z.Read()
		if err == io.EOF {
			z.Close()
			return nil, fmt.Errorf("forecast: no KML entry found in archive")
		}
		if err != nil {
			z.Close()
			return nil, fmt.Errorf("forecast: read zip entry: %w", err)
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".kml") {
			body, err := io.ReadAll(entry.ReadCloser)
			entry.Close()
			z.Close()
			if err != nil {
				return nil, fmt.Errorf("forecast: read kml body: %w", err)
			}
			return newByteReader(body), nil
		}
		entry.Close()
	}
}

// newByteReader avoids importing bytes solely for a Reader literal in
// its one call site; kept tiny and local.
func newByteReader(b []byte) io.Reader {
	return &sliceReader{data: b}
}

type sliceReader struct {
	data []byte
	pos  int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

// scanTimeSteps advances dec to the first <dwd:ForecastTimeSteps> and
// returns its whitespace-separated ISO-8601 instants.
func scanTimeSteps(dec *xml.Decoder) ([]time.Time, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("forecast: ForecastTimeSteps not found")
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "ForecastTimeSteps" {
			continue
		}
		text, err := elementText(dec)
		if err != nil {
			return nil, err
		}
		var steps []time.Time
		for _, tok := range strings.Fields(text) {
			t, err := time.Parse(time.RFC3339, tok)
			if err != nil {
				continue
			}
			steps = append(steps, t.UTC())
		}
		return steps, nil
	}
}

// scanStationData advances dec past the matching <kml:name>, then
// reads every <dwd:Forecast> under the enclosing ExtendedData and
// fills points in place.
func scanStationData(dec *xml.Decoder, station string, points []weather.Datapoint) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return fmt.Errorf("forecast: station %q not found", station)
		}
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "name" {
			continue
		}
		text, err := elementText(dec)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) != station {
			continue
		}
		return readForecastBlock(dec, points)
	}
}

func readForecastBlock(dec *xml.Decoder, points []weather.Datapoint) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil // ExtendedData may be the outermost remaining content
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Placemark" && depth == 0 {
				// A second Placemark begins before ExtendedData closed in
				// some malformed feeds; treat as end of this station's data.
				return nil
			}
			if t.Name.Local == "Forecast" {
				elementName := attr(t, "elementName")
				fld, ok := elementFields[elementName]
				if !ok {
					if err := dec.Skip(); err != nil {
						return err
					}
					continue
				}
				text, err := elementText(dec)
				if err != nil {
					return err
				}
				applyField(fld, text, points)
				continue
			}
			depth++
		case xml.EndElement:
			if t.Name.Local == "ExtendedData" {
				return nil
			}
			depth--
			if depth < 0 {
				return nil
			}
		}
	}
}

func attr(start xml.StartElement, local string) string {
	for _, a := range start.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// elementText reads character data up to the matching end element,
// assuming the decoder has just consumed the corresponding start tag.
func elementText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return sb.String(), nil
			}
			depth--
		}
	}
}

func applyField(fld field, text string, points []weather.Datapoint) {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if i >= len(points) {
			break
		}
		if tok == "-" {
			continue
		}
		switch fld {
		case fieldCondition:
			code := strings.TrimSuffix(tok, ".00")
			v, err := strconv.Atoi(code)
			if err != nil {
				continue
			}
			points[i].Condition = weather.Condition{Source: weather.ConditionForecast, Code: v}
		default:
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				continue
			}
			switch fld {
			case fieldPrecipitation:
				points[i].Precipitation = weather.F64(v)
			case fieldPProbability:
				points[i].PPrecipitation = weather.F64(v)
			case fieldCloudCover:
				points[i].CloudCover = weather.F64(v)
			case fieldTemperature:
				points[i].Temperature = weather.F64(v - 273.15)
			case fieldWindDir:
				points[i].WindDir = weather.F64(v)
			case fieldMeanWind:
				points[i].MeanWind = weather.F64(v)
			case fieldWindGusts:
				points[i].WindGusts = weather.F64(v)
			}
		}
	}
}
