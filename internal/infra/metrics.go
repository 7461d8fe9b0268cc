package infra

import (
	"sync/atomic"
	"time"

	"netauction/internal/domain"
)

// Metrics provides lightweight run statistics without external dependencies.
// Uses atomic operations for thread-safety; trials report concurrently.
type Metrics struct {
	// Counters
	daysSimulated   atomic.Uint64
	trialsCompleted atomic.Uint64
	trades          atomic.Uint64
	buyerExits      atomic.Uint64
	sellerExits     atomic.Uint64
	sweepsWritten   atomic.Uint64

	// Trial latency tracking
	latencySumNs atomic.Int64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordDay adds one simulated day's counts.
func (m *Metrics) RecordDay(stats domain.DayStats) {
	m.daysSimulated.Add(1)
	m.trades.Add(uint64(stats.Trades))
	m.buyerExits.Add(uint64(stats.BuyerExits))
	m.sellerExits.Add(uint64(stats.SellerExits))
}

// RecordTrial records a completed trial with its wall-clock time.
func (m *Metrics) RecordTrial(elapsed time.Duration) {
	m.trialsCompleted.Add(1)
	m.latencySumNs.Add(elapsed.Nanoseconds())
}

// RecordSweep records one rho written to the sinks.
func (m *Metrics) RecordSweep() {
	m.sweepsWritten.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	DaysSimulated   uint64
	TrialsCompleted uint64
	Trades          uint64
	BuyerExits      uint64
	SellerExits     uint64
	SweepsWritten   uint64
	AvgTrialNs      int64
	Timestamp       time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avg int64
	count := m.trialsCompleted.Load()
	if count > 0 {
		avg = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		DaysSimulated:   m.daysSimulated.Load(),
		TrialsCompleted: count,
		Trades:          m.trades.Load(),
		BuyerExits:      m.buyerExits.Load(),
		SellerExits:     m.sellerExits.Load(),
		SweepsWritten:   m.sweepsWritten.Load(),
		AvgTrialNs:      avg,
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.daysSimulated.Store(0)
	m.trialsCompleted.Store(0)
	m.trades.Store(0)
	m.buyerExits.Store(0)
	m.sellerExits.Store(0)
	m.sweepsWritten.Store(0)
	m.latencySumNs.Store(0)
}
