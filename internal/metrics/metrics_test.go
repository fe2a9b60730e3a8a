package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SnapshotReceived()
	m.SnapshotReceived()
	if got := testutil.ToFloat64(m.snapshotsReceived); got != 2 {
		t.Fatalf("expected 2 received, got %f", got)
	}

	m.SnapshotApplied(7)
	if got := testutil.ToFloat64(m.peopleCount); got != 7 {
		t.Fatalf("expected people gauge 7, got %f", got)
	}

	m.SnapshotSkipped("no_sensor")
	if got := testutil.ToFloat64(m.snapshotsSkipped.WithLabelValues("no_sensor")); got != 1 {
		t.Fatalf("expected 1 skipped, got %f", got)
	}

	m.ActuatorWrite(nil)
	m.ActuatorWrite(errors.New("offline"))
	m.ActuatorWrite(errors.New("offline"))
	if got := testutil.ToFloat64(m.actuatorWrites.WithLabelValues("error")); got != 2 {
		t.Fatalf("expected 2 failed writes, got %f", got)
	}
	if got := testutil.ToFloat64(m.actuatorWrites.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected 1 ok write, got %f", got)
	}

	m.WSClients(1)
	m.WSClients(1)
	m.WSClients(-1)
	if got := testutil.ToFloat64(m.wsClients); got != 1 {
		t.Fatalf("expected 1 ws client, got %f", got)
	}

	m.DoorOpen(true)
	if got := testutil.ToFloat64(m.doorOpen); got != 1 {
		t.Fatalf("expected door gauge 1, got %f", got)
	}

	if n := testutil.CollectAndCount(m.redraws); n != 0 {
		t.Fatalf("expected no redraw series yet, got %d", n)
	}
	m.Redraw("io")
	if n := testutil.CollectAndCount(m.redraws); n != 1 {
		t.Fatalf("expected one redraw series, got %d", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SnapshotReceived()
	m.SnapshotApplied(1)
	m.SnapshotSkipped("x")
	m.SnapshotDropped()
	m.QueueLength(3)
	m.Redraw("io")
	m.ActuatorWrite(nil)
	m.WSClients(1)
	m.DoorOpen(true)
}
