package main

import (
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dwdfusion/dwdfusion/internal/config"
	"github.com/dwdfusion/dwdfusion/internal/dwdhttp"
	"github.com/dwdfusion/dwdfusion/internal/fusion"
	"github.com/dwdfusion/dwdfusion/internal/scheduler"
	"github.com/dwdfusion/dwdfusion/internal/telemetry"
	"github.com/dwdfusion/dwdfusion/internal/weather"
)

// refreshInterval is the cadence original_source's picolini-srv poll
// loop used for its own Cache::refetch call.
const refreshInterval = 30 * time.Second

// app bundles everything a request handler needs, mirroring the
// teacher's apiConfig: cache, orchestrator, logger and the telemetry
// side-channel's bounded history plus latched state blob.
type app struct {
	cfg          *config.App
	logger       *slog.Logger
	cache        *weather.Cache
	orchestrator *fusion.Orchestrator
	scheduler    *scheduler.Scheduler
	history      *telemetry.History

	// state holds the most recently posted sensor-state blob, served
	// back verbatim by GET /state. atomic.Value keeps reads off the
	// refresh-cycle hot path without a dedicated mutex.
	state atomic.Value // []byte
}

// newApp wires the dependencies the way the teacher's config()
// constructor does: load settings, fail fast on any fatal
// misconfiguration, then build the long-lived service objects.
func newApp() (*app, error) {
	logger := newLogger(parseDevMode())

	cfg, err := config.Load(logger)
	if err != nil {
		return nil, err
	}

	cache, err := weather.FromFile(cfg.CacheFile)
	if err != nil {
		logger.Info("no usable cache file, starting from an empty cache", "error", err)
		cache = weather.New()
	}

	client := dwdhttp.New()
	orch := fusion.NewOrchestrator(client, logger, cfg.CacheFile)
	orch.Observe = func(worker string, d time.Duration, updated bool) {
		refreshDuration.WithLabelValues(worker).Observe(d.Seconds())
		outcome := "not_updated"
		if updated {
			outcome = "updated"
		}
		refreshesTotal.WithLabelValues(worker, outcome).Inc()
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		if opt, err := redis.ParseURL(redisURL); err != nil {
			logger.Warn("could not parse REDIS_URL, hot cache disabled", "error", err)
		} else {
			orch.Hot = fusion.NewHotCache(redis.NewClient(opt))
		}
	}

	a := &app{
		cfg:          cfg,
		logger:       logger,
		cache:        cache,
		orchestrator: orch,
		history:      telemetry.NewHistory(),
	}
	a.state.Store([]byte(nil))

	a.scheduler = scheduler.New(logger, refreshInterval, a.runRefresh)
	return a, nil
}

// runRefresh is the Job the scheduler ticks, tagging each cycle with a
// correlation id in the teacher's uuid-keyed style (types.go's
// Location.ID) so log lines from the same cycle can be grepped
// together.
func (a *app) runRefresh() bool {
	cycleID := uuid.New()
	log := a.logger.With("cycle", cycleID)
	log.Debug("refresh cycle starting")
	updated := a.orchestrator.Refresh(a.cache, a.cfg.Weather)
	log.Debug("refresh cycle done", "updated", updated)
	return updated
}

func parseDevMode() bool {
	v := os.Getenv("DEV_MODE")
	return v == "1" || v == "true" || v == "TRUE"
}

// newLogger picks the dev/prod handler the same way the teacher's
// config() does: a human-readable debug-level text handler locally, a
// JSON handler otherwise.
func newLogger(devMode bool) *slog.Logger {
	if devMode {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// server builds the http.Server with the full middleware chain applied,
// matching the teacher's mux-plus-wrap pattern in main.go.
func (a *app) server() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/refresh", a.handlerRefresh)
	mux.HandleFunc("/state", a.handlerState)
	mux.HandleFunc("/history", a.handlerHistory)
	mux.HandleFunc("/layout", a.handlerLayout)
	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = a.isNightMiddleware(handler)
	handler = metricsMiddleware(handler)
	handler = corsMiddleware(handler)

	return &http.Server{
		Addr:    a.cfg.ListenAddr,
		Handler: handler,
	}
}
