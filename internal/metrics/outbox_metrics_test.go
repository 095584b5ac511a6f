package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutboxMetrics_RecordAndBacklog(t *testing.T) {
	metrics := NewOutboxMetrics(prometheus.NewRegistry())

	metrics.RecordPublish(OutboxRetryError)
	metrics.RecordPublish(OutboxRetryError)
	metrics.RecordPublish(OutboxSent)
	metrics.SetBacklog(3, 90*time.Second)

	if got := counterValue(t, metrics.publishAttempts, OutboxRetryError); got != 2 {
		t.Errorf("retry_error = %f, want 2", got)
	}
	if got := counterValue(t, metrics.publishAttempts, OutboxSent); got != 1 {
		t.Errorf("sent = %f, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.pending); got != 3 {
		t.Errorf("pending = %f, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.oldestAge); got != 90 {
		t.Errorf("oldest age = %f, want 90", got)
	}

	metrics.SetBacklog(0, -time.Second)
	if got := testutil.ToFloat64(metrics.oldestAge); got != 0 {
		t.Errorf("negative age must clamp to 0, got %f", got)
	}
}

func TestOutboxMetrics_SharedRegistryAndNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewOutboxMetrics(reg)
	second := NewOutboxMetrics(reg)

	first.RecordPublish(OutboxFailed)
	second.RecordPublish(OutboxFailed)
	if got := counterValue(t, first.publishAttempts, OutboxFailed); got != 2 {
		t.Errorf("expected shared counter value 2, got %f", got)
	}

	var none *OutboxMetrics
	none.RecordPublish(OutboxDLQFailed)
	none.SetBacklog(1, time.Second)
}
