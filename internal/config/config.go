// Package config loads and validates the station configuration the core
// needs for one refresh cycle: the POI station id, the radar grid cell
// derived once from latitude/longitude via the upstream's fixed polar
// stereographic grid, and the WIGOS-local station identifiers eligible
// for synoptic fusion. Modeled on the teacher's api_config.go (godotenv
// plus getRequiredEnv/getEnv/getEnvAsInt helpers); struct-tag validation
// follows de-bkg-gognss's pkg/site.ValidateAndClean use of
// go-playground/validator.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/go-playground/validator/v10"

	"github.com/dwdfusion/dwdfusion/internal/weather"
)

// germanyLatMin/Max and LonMin/Max bound the area the upstream actually
// covers; a station outside this box is almost certainly a typo, so
// validation fails fast at start-up per spec §7 ("Configuration
// errors... fatal at start-up").
const (
	germanyLatMin, germanyLatMax = 47.0, 55.5
	germanyLonMin, germanyLonMax = 5.5, 15.5
)

// raw is the struct-tag-validated shape configuration is parsed into
// before being turned into a weather.Config (which carries the derived
// radar grid cell instead of raw lat/long).
type raw struct {
	Station       uint16   `validate:"required"`
	Latitude      float64  `validate:"required,gte=47,lte=55.5"`
	Longitude     float64  `validate:"required,gte=5.5,lte=15.5"`
	SynopStations []string `validate:"required,min=1,dive,required"`
}

// App bundles the station configuration with the ambient settings
// cmd/dwdfusiond needs: cache file path, HTTP listen address, and the
// shared telemetry secret/bearer token.
type App struct {
	Weather weather.Config

	CacheFile       string
	ListenAddr      string
	TelemetrySecret [512]byte
	AccessToken     string
	DevMode         bool
}

var validate = validator.New()

// Load reads the process environment (via a .env file in dev, same as
// the teacher's config() constructor) and returns a validated App, or
// an error describing the first configuration problem found. The
// caller is expected to treat any error here as fatal at start-up.
func Load(logger *slog.Logger) (*App, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("could not load .env file, proceeding with environment variables")
	}

	devMode, _ := strconv.ParseBool(os.Getenv("DEV_MODE"))

	station, err := getRequiredEnvAsInt("DWD_STATION", logger)
	if err != nil {
		return nil, err
	}
	lat, err := getRequiredEnvAsFloat("DWD_LATITUDE", logger)
	if err != nil {
		return nil, err
	}
	lon, err := getRequiredEnvAsFloat("DWD_LONGITUDE", logger)
	if err != nil {
		return nil, err
	}
	synopRaw := getRequiredEnv("DWD_SYNOP_STATIONS", logger)
	var stations []string
	for _, s := range strings.Split(synopRaw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			stations = append(stations, s)
		}
	}

	r := raw{
		Station:       uint16(station),
		Latitude:      lat,
		Longitude:     lon,
		SynopStations: stations,
	}
	if err := validate.Struct(r); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	rx, ry := latLongToRadarIdx(lat, lon)

	secretHex := getEnv("DWD_TELEMETRY_SECRET", "", logger)
	var secret [512]byte
	copy(secret[:], secretHex)

	app := &App{
		Weather: weather.Config{
			Station:       r.Station,
			RadarX:        rx,
			RadarY:        ry,
			SynopStations: r.SynopStations,
		},
		CacheFile:       getEnv("DWD_CACHE_FILE", "dwdfusion-cache.gob", logger),
		ListenAddr:      getEnv("DWD_LISTEN_ADDR", ":8080", logger),
		TelemetrySecret: secret,
		AccessToken:     getEnv("DWD_ACCESS_TOKEN", "", logger),
		DevMode:         devMode,
	}
	return app, nil
}

func getRequiredEnv(key string, logger *slog.Logger) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		logger.Error("environment variable must be set", "key", key)
	}
	return val
}

func getRequiredEnvAsInt(key string, logger *slog.Logger) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return 0, fmt.Errorf("config: %s must be set", key)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getRequiredEnvAsFloat(key string, logger *slog.Logger) (float64, error) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return 0, fmt.Errorf("config: %s must be set", key)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number: %w", key, err)
	}
	return f, nil
}

func getEnv(key, fallback string, logger *slog.Logger) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	logger.Info("environment variable not set, using fallback", "key", key, "fallback", fallback)
	return fallback
}

// Polar stereographic projection parameters for DWD's fixed radar
// composite grid (spec §6): lat_0=90 (north pole aspect), lat_ts=60
// (latitude of true scale), lon_0=10, the WGS84 ellipsoid a/b, and a
// false easting/northing; rows count from the grid's north edge once
// latLongToRadarIdx flips the sign of the northing.
const (
	projA    = 6378137.0
	projB    = 6356752.3142451802
	projLon0 = 10.0 * math.Pi / 180
	projLat0 = 60.0 * math.Pi / 180 // lat_ts, the standard parallel
	projX0   = 543196.835217764
	projY0   = 3622588.8619310018

	radarCellKM = 1.0
)

// latLongToRadarIdx projects a WGS84-ish latitude/longitude into DWD's
// fixed 1km polar-stereographic radar grid, returning the (column,
// row) index of the enclosing cell. Grounded on original_source's
// config.rs latlong_to_idx (proj4rs polar stereographic), reimplemented
// here as the closed-form EPSG "Polar Stereographic (variant B)"
// formulas since no cartographic-projection library appears anywhere
// in the examples pack (see DESIGN.md).
func latLongToRadarIdx(lat, lon float64) (x, y int) {
	e2 := 1 - (projB*projB)/(projA*projA)
	e := math.Sqrt(e2)

	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180

	t := func(phiVal float64) float64 {
		sinPhi := math.Sin(phiVal)
		return math.Tan(math.Pi/4-phiVal/2) /
			math.Pow((1-e*sinPhi)/(1+e*sinPhi), e/2)
	}

	mF := math.Cos(projLat0) / math.Sqrt(1-e2*math.Sin(projLat0)*math.Sin(projLat0))
	tF := t(projLat0)
	tPhi := t(phi)

	rho := projA * mF * tPhi / tF

	easting := projX0 + rho*math.Sin(lambda-projLon0)
	northing := projY0 - rho*math.Cos(lambda-projLon0)

	// The projected northing comes out negative for this hemisphere and
	// false-northing combination (original_source/config.rs notes the
	// same "for some reason, y is negative" and flips its sign); negate
	// it to land on a positive row index.
	return int(math.Round(easting / 1000.0 / radarCellKM)), int(math.Round(-northing / 1000.0 / radarCellKM))
}
