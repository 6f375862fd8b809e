package provision

import (
	"sync/atomic"
	"time"
)

// Metrics counts provisioning runs by outcome. Advisory, like the run
// registry; exposed on the ops endpoint.
type Metrics struct {
	runsStarted   int64
	runsReady     int64
	runsFailed    int64
	runsTimedOut  int64
	runsFaulted   int64
	totalDuration int64 // nanoseconds across finished runs
}

var globalMetrics = &Metrics{}

// GetMetrics returns the current metrics snapshot.
func GetMetrics() Metrics {
	return Metrics{
		runsStarted:   atomic.LoadInt64(&globalMetrics.runsStarted),
		runsReady:     atomic.LoadInt64(&globalMetrics.runsReady),
		runsFailed:    atomic.LoadInt64(&globalMetrics.runsFailed),
		runsTimedOut:  atomic.LoadInt64(&globalMetrics.runsTimedOut),
		runsFaulted:   atomic.LoadInt64(&globalMetrics.runsFaulted),
		totalDuration: atomic.LoadInt64(&globalMetrics.totalDuration),
	}
}

// ResetMetrics resets all counters (useful for testing).
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.runsStarted, 0)
	atomic.StoreInt64(&globalMetrics.runsReady, 0)
	atomic.StoreInt64(&globalMetrics.runsFailed, 0)
	atomic.StoreInt64(&globalMetrics.runsTimedOut, 0)
	atomic.StoreInt64(&globalMetrics.runsFaulted, 0)
	atomic.StoreInt64(&globalMetrics.totalDuration, 0)
}

func recordRunStarted() {
	atomic.AddInt64(&globalMetrics.runsStarted, 1)
}

func recordRunFinished(outcome Outcome, duration time.Duration) {
	atomic.AddInt64(&globalMetrics.totalDuration, duration.Nanoseconds())
	switch outcome {
	case OutcomeReady:
		atomic.AddInt64(&globalMetrics.runsReady, 1)
	case OutcomeTimeout:
		atomic.AddInt64(&globalMetrics.runsTimedOut, 1)
	case OutcomeFault:
		atomic.AddInt64(&globalMetrics.runsFaulted, 1)
	default:
		atomic.AddInt64(&globalMetrics.runsFailed, 1)
	}
}

func (m Metrics) RunsStarted() int64  { return m.runsStarted }
func (m Metrics) RunsReady() int64    { return m.runsReady }
func (m Metrics) RunsFailed() int64   { return m.runsFailed }
func (m Metrics) RunsTimedOut() int64 { return m.runsTimedOut }
func (m Metrics) RunsFaulted() int64  { return m.runsFaulted }

// Finished is the count of runs that reached a terminal outcome.
func (m Metrics) Finished() int64 {
	return m.runsReady + m.runsFailed + m.runsTimedOut + m.runsFaulted
}

// AverageDuration returns the mean run duration in milliseconds.
func (m Metrics) AverageDuration() float64 {
	finished := m.Finished()
	if finished == 0 {
		return 0
	}
	return float64(m.totalDuration) / float64(finished) / 1e6
}
