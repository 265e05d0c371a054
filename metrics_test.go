package authcore

import (
	"sync"
	"testing"
)

func TestMetricsDisabledIsInert(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("value = %d with metrics disabled", got)
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("snapshot not empty with metrics disabled")
	}
}

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricCSRFRejected)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("login success = %d", got)
	}

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 || snap.Counters[MetricCSRFRejected] != 1 {
		t.Fatalf("snapshot = %v", snap.Counters)
	}
	if snap.Counters[MetricLoginFailure] != 0 {
		t.Fatalf("untouched counter = %d", snap.Counters[MetricLoginFailure])
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricLoginFailure)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginFailure); got != workers*perWorker {
		t.Fatalf("value = %d, want %d", got, workers*perWorker)
	}
}

func TestMetricsOutOfRangeID(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(metricIDCount + 10)
	if got := m.Value(metricIDCount + 10); got != 0 {
		t.Fatalf("out-of-range value = %d", got)
	}
}
