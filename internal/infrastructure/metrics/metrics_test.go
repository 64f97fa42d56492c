package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.LedgerOperations == nil || m.SpendRejections == nil || m.Transitions == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.LedgerOperations.WithLabelValues("hold", "success").Inc()
	m.Settlements.Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.LedgerOperations.WithLabelValues("hold", "success")); got != 1 {
		t.Fatalf("expected counter value 1, got %v", got)
	}
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	// Separate registries must not collide on metric names.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
