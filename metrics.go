package authcore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint8

const (
	// MetricLoginSuccess counts completed logins, MFA or not.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts every coalesced rejection.
	MetricLoginFailure
	// MetricMFARequired counts issued MFA challenges.
	MetricMFARequired
	// MetricMFASuccess counts logins completed via TOTP or recovery code.
	MetricMFASuccess
	// MetricMFAFailure counts wrong or unusable MFA submissions.
	MetricMFAFailure
	// MetricRecoveryCodeUsed counts logins completed via a recovery code.
	MetricRecoveryCodeUsed
	// MetricSeedRotated counts opportunistic seed re-encryptions.
	MetricSeedRotated
	// MetricSeedRotationFailed counts swallowed re-encryption failures.
	MetricSeedRotationFailed
	// MetricRefreshSuccess counts completed rotations.
	MetricRefreshSuccess
	// MetricRefreshReuse counts reuse detections (family revocations).
	MetricRefreshReuse
	// MetricRefreshFailure counts other refresh rejections.
	MetricRefreshFailure
	// MetricLogout counts voluntary session ends.
	MetricLogout
	// MetricPasswordReset counts bulk revocations after password changes.
	MetricPasswordReset

	metricCount
)

// Metrics is a fixed-size set of lock-free counters. Snapshot copies are
// cheap enough for scrape loops.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

// Inc adds one to a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
