package main

import (
	"net/http"
	"strconv"
	"time"
)

// This file mirrors the teacher's middleware.go: a responseWriter
// wrapper to observe the status code, a metrics middleware, and a CORS
// middleware, plus the night-mode header this service adds.

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records every response's path, method and status
// code as a Prometheus counter, exactly as the teacher's does.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		httpRequestsTotal.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rw.statusCode)).Inc()
	})
}

// corsMiddleware allows cross-origin requests from any domain, same as
// the teacher's.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// stationTZ is the fixed local time zone of the DWD station this core
// fuses data for; original_source/bin/picolini-srv pins the same zone
// ("Europe/Berlin") rather than deriving it per request.
const stationTZ = "Europe/Berlin"

// isNightMiddleware sets X-Is-Night: 1 on every response outside the
// station's daytime hours, reimplementing web.rs's is_night() weekday
// rule (night ends at 07:00 on weekdays and 08:00 on weekends, and
// starts at 23:00 every day) as a response header instead of a
// rendering hint.
func (a *app) isNightMiddleware(next http.Handler) http.Handler {
	loc, err := time.LoadLocation(stationTZ)
	if err != nil {
		a.logger.Warn("could not load station time zone, night-mode header disabled", "error", err)
		loc = time.UTC
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isNight(time.Now().In(loc)) {
			w.Header().Set("X-Is-Night", "1")
		}
		next.ServeHTTP(w, r)
	})
}

func isNight(now time.Time) bool {
	hour := now.Hour()
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return hour < 8 || hour >= 23
	default:
		return hour < 7 || hour >= 23
	}
}
