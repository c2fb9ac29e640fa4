package authcore

import (
	"sync"
	"testing"
)

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := newMetrics()

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m.Inc(MetricLoginSuccess)
				if i%2 == 0 {
					m.Inc(MetricRefreshSuccess)
				}
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != workers*perWorker {
		t.Fatalf("MetricLoginSuccess = %d, want %d", snap.Counters[MetricLoginSuccess], workers*perWorker)
	}
	if snap.Counters[MetricRefreshSuccess] != workers*perWorker/2 {
		t.Fatalf("MetricRefreshSuccess = %d, want %d", snap.Counters[MetricRefreshSuccess], workers*perWorker/2)
	}
}

func TestMetricsSnapshotIsACopy(t *testing.T) {
	m := newMetrics()
	m.Inc(MetricLogout)

	snap := m.Snapshot()
	m.Inc(MetricLogout)

	if snap.Counters[MetricLogout] != 1 {
		t.Fatalf("snapshot mutated after the fact: %d", snap.Counters[MetricLogout])
	}
	if fresh := m.Snapshot(); fresh.Counters[MetricLogout] != 2 {
		t.Fatalf("live counter = %d, want 2", fresh.Counters[MetricLogout])
	}
}

func TestMetricsNilAndOutOfRange(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("nil metrics produced counters: %v", snap.Counters)
	}

	m = newMetrics()
	m.Inc(metricCount)
	m.Inc(metricCount + 10)
	snap := m.Snapshot()
	for id, v := range snap.Counters {
		if v != 0 {
			t.Fatalf("out-of-range increment landed on %d", id)
		}
	}
}
