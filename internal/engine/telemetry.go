package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
)

// latencyWindow bounds the submit-latency sample buffer; older samples fall
// off so percentiles track recent behavior.
const latencyWindow = 512

// minAlertSamples is how many submits must exist before the spike evaluator
// fires; small samples produce meaningless rates.
const minAlertSamples = 20

// Collector accumulates process-wide counters and submit latencies feeding
// the periodic telemetry_snapshot and the spike evaluator.
type Collector struct {
	mu        sync.Mutex
	loops     int64
	submits   int64
	rejects   int64
	latencies []float64 // ms, most recent last

	maxRejectRate float64
	maxP95Ms      float64
}

// NewCollector creates a collector with the given alert bounds. A bound of
// zero disables that alert.
func NewCollector(maxRejectRate, maxP95Ms float64) *Collector {
	return &Collector{maxRejectRate: maxRejectRate, maxP95Ms: maxP95Ms}
}

// TickDone counts one completed pipeline loop.
func (c *Collector) TickDone() {
	c.mu.Lock()
	c.loops++
	c.mu.Unlock()
}

// RecordSubmit counts one submit attempt. Rejected submits carry no latency
// sample; filled ones record the decision-to-submit time.
func (c *Collector) RecordSubmit(latency time.Duration, rejected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.submits++
	if rejected {
		c.rejects++
		return
	}
	c.latencies = append(c.latencies, float64(latency.Microseconds())/1000.0)
	if len(c.latencies) > latencyWindow {
		c.latencies = c.latencies[len(c.latencies)-latencyWindow:]
	}
}

// Snapshot assembles the current telemetry payload. PnL and position counts
// come from the caller since the collector does not read the ledger.
func (c *Collector) Snapshot(realized, unrealized float64, openPositions int, killSwitch bool, killReason string) domain.TelemetrySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	sorted := append([]float64(nil), c.latencies...)
	sort.Float64s(sorted)

	return domain.TelemetrySnapshot{
		Loops:         c.loops,
		Submits:       c.submits,
		Rejects:       c.rejects,
		RejectRate:    c.rejectRate(),
		P50SubmitMs:   percentile(sorted, 0.50),
		P95SubmitMs:   percentile(sorted, 0.95),
		P99SubmitMs:   percentile(sorted, 0.99),
		RealizedPnL:   realized,
		UnrealizedPnL: unrealized,
		OpenPositions: openPositions,
		KillSwitch:    killSwitch,
		KillReason:    killReason,
	}
}

// Alert evaluates the spike conditions and returns the trip reason when one
// fires. Requires a minimum sample count.
func (c *Collector) Alert() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submits < minAlertSamples {
		return "", false
	}
	if c.maxRejectRate > 0 && c.rejectRate() > c.maxRejectRate {
		return "reject_spike", true
	}
	if c.maxP95Ms > 0 && len(c.latencies) >= minAlertSamples {
		sorted := append([]float64(nil), c.latencies...)
		sort.Float64s(sorted)
		if percentile(sorted, 0.95) > c.maxP95Ms {
			return "submit_latency", true
		}
	}
	return "", false
}

func (c *Collector) rejectRate() float64 {
	if c.submits == 0 {
		return 0
	}
	return float64(c.rejects) / float64(c.submits)
}

// percentile reads the nearest-rank percentile from an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
