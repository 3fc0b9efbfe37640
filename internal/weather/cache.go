package weather

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"sync"
)

// Cache holds the fused state of every upstream: a retained ETag per
// source, the decoded series ordered ascending by timestamp, and the
// most recently fused synoptic observation. It is a single-writer,
// many-reader value — readers take the lock only for the duration of a
// copy, writers take it only around committing a finished (series, etag)
// pair, never while fetching or parsing (see CommitReport).
type Cache struct {
	mu sync.RWMutex

	reportETag         string
	shortForecastETag  string
	longForecastETag   string
	radarETag          string
	synopticETag       string

	report      []Datapoint
	forecast    []Datapoint
	radar       []RadarReading
	observation *Datapoint
}

// New returns an empty cache, ready for refresh.
func New() *Cache {
	return &Cache{}
}

// snapshot is the gob-encodable shape of a Cache: plain data, no mutex.
// ToFile/FromFile round-trip through this type.
type snapshot struct {
	ReportETag        string
	ShortForecastETag string
	LongForecastETag  string
	RadarETag         string
	SynopticETag      string

	Report      []Datapoint
	Forecast    []Datapoint
	Radar       []RadarReading
	Observation *Datapoint
}

// ReportETag returns the retained ETag for the POI report source.
func (c *Cache) ReportETag() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reportETag
}

// ShortForecastETag returns the retained ETag for the short-horizon
// MOSMIX forecast source.
func (c *Cache) ShortForecastETag() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shortForecastETag
}

// LongForecastETag returns the retained ETag for the long-horizon MOSMIX
// forecast source.
func (c *Cache) LongForecastETag() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.longForecastETag
}

// RadarETag returns the retained ETag for the radar tile archive.
func (c *Cache) RadarETag() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.radarETag
}

// SynopticETag returns the retained ETag for the synoptic GTS/BUFR file.
func (c *Cache) SynopticETag() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synopticETag
}

// Report returns a copy of the current report series.
func (c *Cache) Report() []Datapoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Datapoint(nil), c.report...)
}

// Forecast returns a copy of the current forecast series.
func (c *Cache) Forecast() []Datapoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Datapoint(nil), c.forecast...)
}

// Radar returns a copy of the current radar series.
func (c *Cache) Radar() []RadarReading {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]RadarReading(nil), c.radar...)
}

// Observation returns the most recently fused synoptic observation, or
// nil if none has ever been committed.
func (c *Cache) Observation() *Datapoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.observation == nil {
		return nil
	}
	cp := *c.observation
	return &cp
}

// CommitReport atomically replaces the report series and its ETag. The
// lock is held only for this assignment, never while the caller fetched
// or parsed the new series.
func (c *Cache) CommitReport(series []Datapoint, etag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = series
	c.reportETag = etag
}

// CommitForecast atomically replaces the forecast series and the ETags
// of both contributing horizons.
func (c *Cache) CommitForecast(series []Datapoint, shortETag, longETag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forecast = series
	c.shortForecastETag = shortETag
	c.longForecastETag = longETag
}

// CommitRadar atomically replaces the radar series and its ETag.
func (c *Cache) CommitRadar(series []RadarReading, etag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radar = series
	c.radarETag = etag
}

// CommitObservation atomically replaces the fused synoptic observation
// and its source file's ETag.
func (c *Cache) CommitObservation(obs *Datapoint, etag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observation = obs
	c.synopticETag = etag
}

func (c *Cache) toSnapshot() snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return snapshot{
		ReportETag:        c.reportETag,
		ShortForecastETag: c.shortForecastETag,
		LongForecastETag:  c.longForecastETag,
		RadarETag:         c.radarETag,
		SynopticETag:      c.synopticETag,
		Report:            c.report,
		Forecast:          c.forecast,
		Radar:             c.radar,
		Observation:       c.observation,
	}
}

func (c *Cache) fromSnapshot(s snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportETag = s.ReportETag
	c.shortForecastETag = s.ShortForecastETag
	c.longForecastETag = s.LongForecastETag
	c.radarETag = s.RadarETag
	c.synopticETag = s.SynopticETag
	c.report = s.Report
	c.forecast = s.Forecast
	c.radar = s.Radar
	c.observation = s.Observation
}

// ToFile writes the cache as a self-describing gob-encoded binary
// record. Local I/O failures here are non-fatal to the caller; the
// cache keeps serving from memory regardless (spec's "Local I/O"
// error class).
func (c *Cache) ToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("weather: create cache file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := gob.NewEncoder(w).Encode(c.toSnapshot()); err != nil {
		return fmt.Errorf("weather: encode cache: %w", err)
	}
	return w.Flush()
}

// FromFile loads a cache previously written by ToFile. Any read or
// decode error (including a format evolved since the file was written)
// is returned so the caller can discard the file and start from an
// empty cache — the snapshot format carries no explicit version.
func FromFile(path string) (*Cache, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("weather: open cache file: %w", err)
	}
	defer f.Close()

	var s snapshot
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&s); err != nil {
		return nil, fmt.Errorf("weather: decode cache: %w", err)
	}
	c := New()
	c.fromSnapshot(s)
	return c, nil
}
