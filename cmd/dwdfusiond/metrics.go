package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// This file defines the Prometheus metrics this service exposes,
// mirroring the teacher's metrics.go (one file, package-level
// promauto vars) but covering the refresh cycle instead of per-location
// API calls.

// refreshDuration tracks how long each orchestrator worker takes,
// partitioned by worker name.
var refreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "dwdfusion_refresh_duration_seconds",
	Help: "Duration of each refresh worker, in seconds.",
}, []string{"worker"})

// refreshesTotal counts refresh worker outcomes, partitioned by worker
// name and outcome (updated/not_updated; a worker that failed counts as
// not_updated).
var refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dwdfusion_refreshes_total",
	Help: "Total refresh worker outcomes by worker and outcome.",
}, []string{"worker", "outcome"})

// httpRequestsTotal tracks HTTP requests by path, method and status
// code, identical in shape to the teacher's own httpRequestsTotal.
var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dwdfusion_http_requests_total",
	Help: "Total number of HTTP requests by path, method and code.",
}, []string{"path", "method", "code"})
