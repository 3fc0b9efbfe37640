package main

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dwdfusion/dwdfusion/internal/fusion"
	"github.com/dwdfusion/dwdfusion/internal/layout"
	"github.com/dwdfusion/dwdfusion/internal/telemetry"
)

// maxTelemetryBody bounds the POST /refresh body; a genuine Record is
// always exactly telemetry's fixed record length, so anything wildly
// larger is not worth reading to find out.
const maxTelemetryBody = 4096

// handlerRefresh accepts one binary telemetry record from the indoor
// sensor node (original_source/bin/picolini-srv/src/web.rs's `refresh`
// handler): verify the shared secret in constant time, latch the
// sensor-state blob, append to the bounded history, and kick the
// orchestrator's refresh cycle instead of waiting on the regular
// 30-second tick.
func (a *app) handlerRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.respondWithError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTelemetryBody))
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, "could not read body", err)
		return
	}

	rec, err := telemetry.DecodeRecord(body)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, "malformed telemetry record", err)
		return
	}
	if !telemetry.SecretMatches(rec.Secret, a.cfg.TelemetrySecret) {
		a.respondWithError(w, http.StatusUnauthorized, "invalid secret", nil)
		return
	}

	a.state.Store(append([]byte(nil), rec.State[:]...))
	a.history.Push(telemetry.DataItem{
		TimestampMS: telemetry.NowMillis(time.Now()),
		Temperature: rec.Temperature,
		IAQ:         rec.IAQ,
		CO2:         rec.CO2,
	})

	a.scheduler.TriggerNow()
	a.respondWithJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

// handlerState returns the most recently latched sensor-state blob
// verbatim, the binary-state counterpart to web.rs's state.bin file.
func (a *app) handlerState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.respondWithError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	blob, _ := a.state.Load().([]byte)
	if len(blob) == 0 {
		a.respondWithError(w, http.StatusNotFound, "no sensor state recorded yet", nil)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, bytes.NewReader(blob)); err != nil {
		a.logger.Error("error writing state response", "error", err)
	}
}

// handlerHistory returns the last HistoryCapacity telemetry samples as
// JSON, gated by the same bearer-token check as web.rs's `history`
// handler.
func (a *app) handlerHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.respondWithError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || !telemetry.BearerMatches(presented, a.cfg.AccessToken) {
		a.respondWithError(w, http.StatusUnauthorized, "invalid or missing bearer token", nil)
		return
	}
	a.respondWithJSON(w, http.StatusOK, a.history.Snapshot())
}

// handlerLayout runs the layout planner over the current cache and
// returns the plan as JSON: the "cache output consumed by the
// renderer" of spec §6, made observable over HTTP since this repo has
// no Skia-backed renderer to consume it in-process.
func (a *app) handlerLayout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.respondWithError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	rect := layout.Rect{Width: 800, Height: 480}
	if v := r.URL.Query().Get("width"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			rect.Width = n
		}
	}
	if v := r.URL.Query().Get("height"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			rect.Height = n
		}
	}

	merged := fusion.Merge(a.cache.Report(), a.cache.Forecast())
	plan := layout.Build(rect, merged, a.cache.Radar(), time.Now())
	a.respondWithJSON(w, http.StatusOK, plan)
}
