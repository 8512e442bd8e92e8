package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOutboxMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOutboxMetrics(reg)
	metrics.ObserveBatch(250*time.Millisecond, false)
	metrics.IncPublished("contract_signed")
	metrics.IncPublished("contract_signed")
	metrics.IncDeadLettered("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "outbox_events_total", map[string]string{"event_type": "contract_signed", "outcome": "published"}); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 2 {
		t.Fatalf("expected published=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_events_total", map[string]string{"event_type": "unknown", "outcome": "dead_lettered"}); err != nil {
		t.Fatalf("fetch dead lettered: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dead_lettered=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "outbox_batch_duration_seconds", map[string]string{"result": "ok"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestBookingMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewBookingMetrics(reg)
	metrics.IncPlanQuote("floral", "deposit")
	metrics.IncLockTransition("locked", "venue")
	metrics.IncLockedRejection("account")
	metrics.IncGuestCountEvent("locked", "session")
	metrics.IncCheckout("venue", "succeeded")
	metrics.ObserveCheckout("venue", time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	checks := []struct {
		name   string
		labels map[string]string
	}{
		{"payment_plan_quotes_total", map[string]string{"module": "floral", "plan_type": "deposit"}},
		{"guest_count_lock_transitions_total", map[string]string{"transition": "locked", "reason": "venue"}},
		{"guest_count_locked_rejections_total", map[string]string{"owner_kind": "account"}},
		{"guest_count_events_total", map[string]string{"event": "locked", "owner_kind": "session"}},
		{"checkout_charges_total", map[string]string{"module": "venue", "outcome": "succeeded"}},
	}
	for _, c := range checks {
		got, err := fetchCounterValue(mfs, c.name, c.labels)
		if err != nil {
			t.Fatalf("fetch %s: %v", c.name, err)
		}
		if got != 1 {
			t.Fatalf("expected %s=1, got %f", c.name, got)
		}
	}
}

func TestJobMetricsExportsRunsAndPurges(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	metrics.ObserveRun("outbox-retention", 40*time.Millisecond, false)
	metrics.ObserveRun("outbox-retention", 10*time.Millisecond, true)
	metrics.AddPurged("outbox-retention", 12)
	metrics.AddPurged("outbox-retention", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "maintenance_job_runs_total", map[string]string{"job": "outbox-retention", "result": "error"}); err != nil {
		t.Fatalf("fetch failed runs: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed runs=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "maintenance_rows_purged_total", map[string]string{"job": "outbox-retention"}); err != nil {
		t.Fatalf("fetch purged: %v", err)
	} else if got != 12 {
		t.Fatalf("expected purged=12, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var booking *BookingMetrics
	booking.IncPlanQuote("floral", "full")
	booking.ObserveCheckout("floral", time.Second)

	unregistered := NewBookingMetrics(nil)
	unregistered.IncLockTransition("locked", "venue")

	var outbox *OutboxMetrics
	outbox.IncPublished("x")
	outbox.ObserveBatch(time.Second, true)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
