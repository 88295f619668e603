package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations so reporting goroutines can read while the hotpath writes.
type Metrics struct {
	// Counters
	recordsProcessed   atomic.Uint64
	parseErrors        atomic.Uint64
	stateErrors        atomic.Uint64
	logicErrors        atomic.Uint64
	snapshotsPublished atomic.Uint64
	crossedDeferrals   atomic.Uint64
	verifyFailures     atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	lastLine atomic.Uint64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordProcessed records one applied feed record with its latency.
func (m *Metrics) RecordProcessed(line uint64, latencyNs int64) {
	m.recordsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
	m.lastLine.Store(line)
}

// RecordParseError records a malformed or out-of-range field.
func (m *Metrics) RecordParseError() {
	m.parseErrors.Add(1)
}

// RecordStateError records a message rejected by the order lifecycle.
func (m *Metrics) RecordStateError() {
	m.stateErrors.Add(1)
}

// RecordLogicError records an event the book manager could not place.
func (m *Metrics) RecordLogicError() {
	m.logicErrors.Add(1)
}

// RecordSnapshot records a published market snapshot.
func (m *Metrics) RecordSnapshot() {
	m.snapshotsPublished.Add(1)
}

// RecordCrossed records an extraction deferred because the book was crossed.
func (m *Metrics) RecordCrossed() {
	m.crossedDeferrals.Add(1)
}

// RecordVerifyFailure records a failed book sanity check.
func (m *Metrics) RecordVerifyFailure() {
	m.verifyFailures.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	RecordsProcessed   uint64
	ParseErrors        uint64
	StateErrors        uint64
	LogicErrors        uint64
	SnapshotsPublished uint64
	CrossedDeferrals   uint64
	VerifyFailures     uint64
	AvgLatencyNs       int64
	LastLine           uint64
	Timestamp          time.Time
}

// Errors returns the total of all dropped-record errors.
func (s MetricsSnapshot) Errors() uint64 {
	return s.ParseErrors + s.StateErrors + s.LogicErrors
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		RecordsProcessed:   m.recordsProcessed.Load(),
		ParseErrors:        m.parseErrors.Load(),
		StateErrors:        m.stateErrors.Load(),
		LogicErrors:        m.logicErrors.Load(),
		SnapshotsPublished: m.snapshotsPublished.Load(),
		CrossedDeferrals:   m.crossedDeferrals.Load(),
		VerifyFailures:     m.verifyFailures.Load(),
		AvgLatencyNs:       avgLatency,
		LastLine:           m.lastLine.Load(),
		Timestamp:          time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.recordsProcessed.Store(0)
	m.parseErrors.Store(0)
	m.stateErrors.Store(0)
	m.logicErrors.Store(0)
	m.snapshotsPublished.Store(0)
	m.crossedDeferrals.Store(0)
	m.verifyFailures.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.lastLine.Store(0)
}
