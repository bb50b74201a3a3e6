package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveMutation_IncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(mutationsTotal.WithLabelValues("block", "ok"))

	ObserveMutation("block", "ok", time.Now())

	after := testutil.ToFloat64(mutationsTotal.WithLabelValues("block", "ok"))
	if after != before+1 {
		t.Fatalf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestObserveRetry_IncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(mutationRetries.WithLabelValues("send_request"))

	ObserveRetry("send_request")
	ObserveRetry("send_request")

	after := testutil.ToFloat64(mutationRetries.WithLabelValues("send_request"))
	if after != before+2 {
		t.Fatalf("expected counter to increase by 2, got %v -> %v", before, after)
	}
}
