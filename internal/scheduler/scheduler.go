// Package scheduler runs the refresh cycle on a ticker, generalised
// from the teacher's scheduler.go (three independent interval tickers
// selected in one goroutine's select loop) down to the single interval
// this core's orchestrator needs (spec §12: "runs refresh every 30
// seconds").
package scheduler

import (
	"log/slog"
	"sync"
	"time"
)

// Job is one refresh cycle invocation. It returns whether the cycle
// updated the cache, mirroring fusion.Orchestrator.Refresh's signature
// so callers can wire it in directly.
type Job func() bool

// Scheduler runs a Job on a fixed interval until stopped, and supports
// being triggered out of band (e.g. from an HTTP endpoint) without
// disturbing the regular cadence.
type Scheduler struct {
	log      *slog.Logger
	job      Job
	interval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
}

// New builds a Scheduler that will call job every interval once
// started.
func New(log *slog.Logger, interval time.Duration, job Job) *Scheduler {
	return &Scheduler{
		log:      log,
		job:      job,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the ticker loop in its own goroutine. Calling Start
// twice on the same Scheduler is a programmer error.
func (s *Scheduler) Start() {
	s.ticker = time.NewTicker(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ticker.C:
				s.runOnce()
			case <-s.stop:
				s.ticker.Stop()
				return
			}
		}
	}()
}

// TriggerNow runs the job immediately on the calling goroutine's
// behalf (spawned in its own goroutine so the caller, typically an
// HTTP handler, is never blocked on a refresh cycle) and resets the
// ticker so the next regular tick is a full interval away.
func (s *Scheduler) TriggerNow() {
	if s.ticker != nil {
		s.ticker.Reset(s.interval)
	}
	go s.runOnce()
}

func (s *Scheduler) runOnce() {
	updated := s.job()
	s.log.Info("refresh cycle finished", "updated", updated)
}

// Stop signals the ticker loop to exit and waits for it to return.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}
