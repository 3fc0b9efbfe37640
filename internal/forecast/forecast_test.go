package forecast

import (
	"archive/zip"
	"bytes"
	"testing"
)

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml:kml xmlns:kml="http://www.opengis.net/kml/2.2" xmlns:dwd="https://opendata.dwd.de/weather/lib/pointforecast_dwd_extension_V1.0.xsd">
  <kml:Document>
    <kml:ExtendedData>
      <dwd:ProductDefinition>
        <dwd:ForecastTimeSteps>
          <dwd:TimeStep>2026-03-01T00:00:00.000Z</dwd:TimeStep>
          <dwd:TimeStep>2026-03-01T01:00:00.000Z</dwd:TimeStep>
        </dwd:ForecastTimeSteps>
      </dwd:ProductDefinition>
    </kml:ExtendedData>
    <kml:Placemark>
      <kml:name>10379</kml:name>
      <kml:ExtendedData>
        <dwd:Forecast dwd:elementName="TTT">
          <dwd:value> 283.15 284.25</dwd:value>
        </dwd:Forecast>
        <dwd:Forecast dwd:elementName="RR1c">
          <dwd:value> 0.0 1.2</dwd:value>
        </dwd:Forecast>
        <dwd:Forecast dwd:elementName="ww">
          <dwd:value> 61.00 -</dwd:value>
        </dwd:Forecast>
      </kml:ExtendedData>
    </kml:Placemark>
  </kml:Document>
</kml:kml>
`

func buildFixtureZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("MOSMIX_S_LATEST_10379.kml")
	if err != nil {
		t.Fatalf("zip.Create: %v", err)
	}
	if _, err := w.Write([]byte(sampleKML)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Close: %v", err)
	}
	return buf.Bytes()
}

func TestParseExtractsStationForecast(t *testing.T) {
	points, err := Parse(bytes.NewReader(buildFixtureZip(t)), "10379")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}

	if points[0].Temperature == nil || *points[0].Temperature != 10.0 {
		t.Errorf("Temperature[0] = %v, want 10.0 (283.15K - 273.15)", points[0].Temperature)
	}
	if points[1].Temperature == nil {
		t.Errorf("Temperature[1] = nil, want 11.1 (284.25K - 273.15)")
	} else if diff := *points[1].Temperature - 11.1; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Temperature[1] = %v, want 11.1 (284.25K - 273.15)", *points[1].Temperature)
	}
	if points[0].Precipitation == nil || *points[0].Precipitation != 0.0 {
		t.Errorf("Precipitation[0] = %v, want 0.0", points[0].Precipitation)
	}
	if points[1].Precipitation == nil || *points[1].Precipitation != 1.2 {
		t.Errorf("Precipitation[1] = %v, want 1.2", points[1].Precipitation)
	}
	if points[0].Condition.Code != 61 {
		t.Errorf("Condition.Code[0] = %d, want 61 (trailing .00 stripped)", points[0].Condition.Code)
	}
	if !points[1].Condition.IsNone() {
		t.Errorf("Condition[1] should remain unset for a '-' token, got %+v", points[1].Condition)
	}
	for _, p := range points {
		if p.IsReport {
			t.Errorf("IsReport = true, want false for every forecast point")
		}
	}
}

func TestParseStationNotFoundReturnsError(t *testing.T) {
	if _, err := Parse(bytes.NewReader(buildFixtureZip(t)), "99999"); err == nil {
		t.Errorf("Parse: want error for an unknown station id")
	}
}
