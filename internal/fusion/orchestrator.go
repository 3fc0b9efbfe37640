package fusion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dwdfusion/dwdfusion/internal/dwdhttp"
	"github.com/dwdfusion/dwdfusion/internal/forecast"
	"github.com/dwdfusion/dwdfusion/internal/radar"
	"github.com/dwdfusion/dwdfusion/internal/report"
	"github.com/dwdfusion/dwdfusion/internal/synoptic"
	"github.com/dwdfusion/dwdfusion/internal/weather"
)

func newReader(body []byte) io.Reader { return bytes.NewReader(body) }

const (
	reportURLTemplate        = "https://opendata.dwd.de/weather/weather_reports/poi/%05d-BEOB.csv"
	shortForecastURLTemplate = "https://opendata.dwd.de/weather/local_forecasts/mos/MOSMIX_S/all_stations/kml/MOSMIX_S_LATEST.kmz"
	longForecastURLTemplate  = "https://opendata.dwd.de/weather/local_forecasts/mos/MOSMIX_L/single_stations/%05d/kml/MOSMIX_L_LATEST_%05d.kmz"
	radarURLTemplate         = "https://opendata.dwd.de/weather/radar/composite/rv/raa01-rv_10000-latest-dwd---bin.bz2"
)

// Orchestrator drives the four concurrent refresh workers (C8) against
// one weather.Cache, using an HTTP client for revalidation and fetch,
// a logger in the teacher's structured-logging style (api_config.go's
// slog setup), and a synoptic fetcher for the BUFR station file.
type Orchestrator struct {
	Client    *dwdhttp.Client
	Log       *slog.Logger
	Synoptic  *synoptic.Fetcher
	CachePath string
	Hot       *HotCache

	// Observe, if set, is called once per worker per refresh cycle with
	// its name, wall-clock duration and outcome — the hook
	// cmd/dwdfusiond uses to feed the refresh-cycle Prometheus metrics
	// without internal/fusion importing the metrics library itself.
	Observe func(worker string, d time.Duration, updated bool)
}

// NewOrchestrator wires an Orchestrator whose synoptic fetcher shares
// the same revalidating HTTP client as the other three workers.
func NewOrchestrator(client *dwdhttp.Client, log *slog.Logger, cachePath string) *Orchestrator {
	fetch := func(url string) (io.ReadCloser, error) {
		resp, err := client.HTTP.Get(url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("synoptic: unexpected status %s", resp.Status)
		}
		return resp.Body, nil
	}
	return &Orchestrator{
		Client:    client,
		Log:       log,
		Synoptic:  synoptic.NewFetcher(fetch),
		CachePath: cachePath,
	}
}

// Refresh runs the four workers concurrently and reports whether any
// of them committed a change to cache. Matches spec §4.8: workers
// never propagate a partial failure upward, and the cache is persisted
// only after a successful update.
func (o *Orchestrator) Refresh(cache *weather.Cache, cfg weather.Config) bool {
	var wg sync.WaitGroup
	results := make([]bool, 4)

	wg.Add(4)
	go func() { defer wg.Done(); results[0] = o.runWorker("report", func() (bool, error) { return o.refreshReport(cache, cfg) }) }()
	go func() { defer wg.Done(); results[1] = o.runWorker("forecast", func() (bool, error) { return o.refreshForecast(cache, cfg) }) }()
	go func() { defer wg.Done(); results[2] = o.runWorker("radar", func() (bool, error) { return o.refreshRadar(cache, cfg) }) }()
	go func() { defer wg.Done(); results[3] = o.runWorker("synoptic", func() (bool, error) { return o.refreshSynoptic(cache, cfg) }) }()
	wg.Wait()

	updated := false
	for _, r := range results {
		updated = updated || r
	}
	if updated {
		if err := cache.ToFile(o.CachePath); err != nil {
			o.Log.Error("persist cache", "error", err)
		}
		merged := Merge(cache.Report(), cache.Forecast())
		if err := o.Hot.Publish(context.Background(), merged, cache.Observation()); err != nil {
			o.Log.Warn("publish hot cache", "error", err)
		}
	}
	return updated
}

// runWorker times one worker invocation and emits the single structured
// log line every worker owes per cycle (worker, updated, err), then
// forwards the outcome to Observe if the caller wired one
// (cmd/dwdfusiond's Prometheus metrics hook), mirroring the teacher's
// one-line-per-request logging in middleware.go. ErrNotUpdated is
// logged as a plain "not updated" outcome, not a failure.
func (o *Orchestrator) runWorker(name string, fn func() (bool, error)) bool {
	start := time.Now()
	updated, err := fn()
	d := time.Since(start)
	if errors.Is(err, ErrNotUpdated) {
		err = nil
	}
	o.Log.Info("worker finished", "worker", name, "updated", updated, "err", err)
	if o.Observe != nil {
		o.Observe(name, d, updated)
	}
	return updated
}

func (o *Orchestrator) refreshReport(cache *weather.Cache, cfg weather.Config) (bool, error) {
	url := fmt.Sprintf(reportURLTemplate, cfg.Station)
	prevETag := cache.ReportETag()
	if !o.Client.NeedsFetch(url, prevETag) {
		return false, ErrNotUpdated
	}
	body, etag, err := o.Client.Fetch(url)
	if err != nil {
		return false, fmt.Errorf("report fetch: %w", err)
	}
	points, err := report.Parse(newReader(body))
	if err != nil {
		return false, fmt.Errorf("report parse: %w", err)
	}
	cache.CommitReport(points, etag)
	return true, nil
}

func (o *Orchestrator) refreshForecast(cache *weather.Cache, cfg weather.Config) (bool, error) {
	var wg sync.WaitGroup
	var shortPoints, longPoints []weather.Datapoint
	var shortErr, longErr error
	var shortETag, longETag string
	prevShort := cache.ShortForecastETag()
	prevLong := cache.LongForecastETag()

	wg.Add(2)
	go func() {
		defer wg.Done()
		if !o.Client.NeedsFetch(shortForecastURLTemplate, prevShort) {
			shortErr = ErrNotUpdated
			return
		}
		body, etag, err := o.Client.Fetch(shortForecastURLTemplate)
		if err != nil {
			shortErr = err
			return
		}
		pts, err := forecast.Parse(newReader(body), stationName(cfg.Station))
		if err != nil {
			shortErr = err
			return
		}
		shortPoints, shortETag = pts, etag
	}()
	go func() {
		defer wg.Done()
		url := fmt.Sprintf(longForecastURLTemplate, cfg.Station, cfg.Station)
		if !o.Client.NeedsFetch(url, prevLong) {
			longErr = ErrNotUpdated
			return
		}
		body, etag, err := o.Client.Fetch(url)
		if err != nil {
			longErr = err
			return
		}
		pts, err := forecast.Parse(newReader(body), stationName(cfg.Station))
		if err != nil {
			longErr = err
			return
		}
		longPoints, longETag = pts, etag
	}()
	wg.Wait()

	shortOK := shortErr == nil
	longOK := longErr == nil
	if !shortOK && !longOK {
		if shortErr != ErrNotUpdated {
			return false, fmt.Errorf("short forecast: %w", shortErr)
		}
		return false, fmt.Errorf("long forecast: %w", longErr)
	}

	merged := cache.Forecast()
	if shortOK {
		merged = Merge(shortPoints, merged)
	}
	if longOK {
		merged = Merge(merged, longPoints)
	}
	etag := prevShort
	if shortOK {
		etag = shortETag
	}
	longTag := prevLong
	if longOK {
		longTag = longETag
	}
	cache.CommitForecast(merged, etag, longTag)
	return true, nil
}

func (o *Orchestrator) refreshRadar(cache *weather.Cache, cfg weather.Config) (bool, error) {
	prevETag := cache.RadarETag()
	if !o.Client.NeedsFetch(radarURLTemplate, prevETag) {
		return false, ErrNotUpdated
	}
	body, etag, err := o.Client.Fetch(radarURLTemplate)
	if err != nil {
		return false, fmt.Errorf("radar fetch: %w", err)
	}
	readings, err := radar.Parse(newReader(body), cfg.RadarX, cfg.RadarY)
	if err != nil {
		return false, fmt.Errorf("radar parse: %w", err)
	}
	cache.CommitRadar(readings, etag)
	return true, nil
}

func (o *Orchestrator) refreshSynoptic(cache *weather.Cache, cfg weather.Config) (bool, error) {
	prevETag := cache.SynopticETag()
	etag := prevETag
	var point *weather.Datapoint
	var fetchErr error

	if o.Client.NeedsFetch(synoptic.URL, prevETag) {
		body, newETag, err := o.Client.Fetch(synoptic.URL)
		if err != nil {
			fetchErr = fmt.Errorf("synoptic fetch: %w", err)
		} else {
			pt, err := synoptic.ReadFile(newReader(body), cfg.SynopStations)
			if err != nil {
				fetchErr = fmt.Errorf("synoptic parse: %w", err)
			} else {
				point, etag = pt, newETag
			}
		}
	}

	if point == nil && synoptic.LastObservationIsOld(cache.Observation(), time.Now()) {
		point = o.Synoptic.ReadFallback(cfg.SynopStations)
	}
	if point == nil {
		if fetchErr != nil {
			return false, fetchErr
		}
		return false, ErrNotUpdated
	}
	cache.CommitObservation(point, etag)
	return true, nil
}

// stationName maps a 5-digit POI station identifier to the station
// name MOSMIX KML carries under <kml:name>. The two upstreams key
// stations differently (numeric POI id vs. 5-char MOSMIX id); callers
// configure Config.Station as the MOSMIX identifier so both lookups
// agree.
func stationName(station uint16) string {
	return fmt.Sprintf("%05d", station)
}

// ErrNotUpdated is the sentinel a worker's fetch step returns when
// revalidation found nothing new — not a failure, so runWorker logs it
// as err=nil and callers can still distinguish it via errors.Is.
var ErrNotUpdated = errors.New("fusion: not updated")
