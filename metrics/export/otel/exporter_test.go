package otel

import (
	"context"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	authclient "github.com/MrEthical07/goAuth-client"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot authclient.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() authclient.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := authclient.MetricsSnapshot{
		Counters:   make(map[authclient.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[authclient.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

type sessionFakeSource struct {
	*fakeSource
	session authclient.Session
}

func (f sessionFakeSource) State() authclient.Session { return f.session }

func TestExporterObservesSessionState(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("authclient-test")

	src := sessionFakeSource{
		fakeSource: &fakeSource{snapshot: authclient.MetricsSnapshot{Counters: map[authclient.MetricID]uint64{}}},
		session:    authclient.Session{Phase: authclient.PhaseAuthenticated},
	}
	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if v, ok := int64Value(rm, "authclient_session_authenticated"); !ok || v != 1 {
		t.Fatalf("session gauge = %d (found %v), want 1", v, ok)
	}
}

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// int64Value finds the single data point of an int64 sum or gauge named name.
func int64Value(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) == 1 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) == 1 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("authclient-test")

	src := &fakeSource{
		snapshot: authclient.MetricsSnapshot{
			Counters: map[authclient.MetricID]uint64{
				authclient.MetricRefreshStarted: 3,
			},
			Histograms: map[authclient.MetricID][]uint64{
				authclient.MetricRefreshLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}

	if v, ok := int64Value(rm, "authclient_refresh_started_total"); !ok || v != 3 {
		t.Fatalf("expected refresh_started=3, got %d (found=%v)", v, ok)
	}
	if v, ok := int64Value(rm, "authclient_refresh_latency_seconds_bucket_le_inf"); !ok || v != 8 {
		t.Fatalf("expected +Inf bucket=8, got %d (found=%v)", v, ok)
	}
	if v, ok := int64Value(rm, "authclient_audit_dropped_total"); !ok || v != 1 {
		t.Fatalf("expected audit_dropped=1, got %d (found=%v)", v, ok)
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	_, provider := newTestMeter()
	meter := provider.Meter("authclient-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewOTelExporter(meter, nil); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err == nil {
		t.Fatal("expected error for nil meter")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("authclient-test")

	src := &fakeSource{
		snapshot: authclient.MetricsSnapshot{
			Counters: map[authclient.MetricID]uint64{
				authclient.MetricRequestSent: 1,
			},
			Histograms: map[authclient.MetricID][]uint64{
				authclient.MetricRefreshLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[authclient.MetricRequestSent] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
