package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordPage_IncrementsCounterByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("cookiecrawl_test", reg)

	m.RecordPage("failed", 1.5)
	m.RecordPage("failed", 2.0)
	m.RecordPage("completed", 0.5)

	metric := &dto.Metric{}
	if err := m.pagesTotal.WithLabelValues("failed").Write(metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 failed pages recorded, got %v", got)
	}
}

func TestRecordCandidate_PerStrategy(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("cookiecrawl_test2", reg)

	m.RecordCandidate("rules")
	m.RecordCandidate("rules")
	m.RecordCandidate("fixed-parent")

	metric := &dto.Metric{}
	if err := m.candidatesFound.WithLabelValues("rules").Write(metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 rules candidates, got %v", got)
	}
}

func TestActiveWorkers_IncDec(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("cookiecrawl_test3", reg)

	m.IncActiveWorkers()
	m.IncActiveWorkers()
	m.DecActiveWorkers()

	metric := &dto.Metric{}
	if err := m.activeWorkers.Write(metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 1 {
		t.Fatalf("expected active workers gauge = 1, got %v", got)
	}
}

func TestShutdown_NoServerIsNoop(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("cookiecrawl_test4", reg)
	if err := m.Shutdown(nil); err != nil { //nolint:staticcheck // nil ctx is fine when server is nil
		t.Fatalf("Shutdown with no server should be a no-op: %v", err)
	}
}
