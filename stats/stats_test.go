package stats_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aerospike/aerospike-client-go/stats"
)

func TestRegistryCountersStartAtZero(t *testing.T) {
	r := stats.NewRegistry("A")
	if got := testutil.ToFloat64(r.ConnectionsOpened); got != 0 {
		t.Errorf("ConnectionsOpened = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.TendCount); got != 0 {
		t.Errorf("TendCount = %v, want 0", got)
	}
}

func TestObserveErrorIncrementsLabeledCounter(t *testing.T) {
	r := stats.NewRegistry("A")
	r.ObserveError("TIMEOUT")
	r.ObserveError("TIMEOUT")
	r.ObserveError("NOT_MASTER")

	if got := testutil.ToFloat64(r.ErrorCount.WithLabelValues("TIMEOUT")); got != 2 {
		t.Errorf("TIMEOUT errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ErrorCount.WithLabelValues("NOT_MASTER")); got != 1 {
		t.Errorf("NOT_MASTER errors = %v, want 1", got)
	}
}

func TestObserveLatencyRecordsIntoHistogram(t *testing.T) {
	r := stats.NewRegistry("A")
	r.ObserveLatency("get", 5*time.Millisecond)

	count := testutil.CollectAndCount(r.CommandLatency)
	if count == 0 {
		t.Errorf("expected at least one observed histogram series after ObserveLatency")
	}
}
