package viewsync

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"interop-dashboard/internal/metrics"
	"interop-dashboard/internal/model"
)

func TestQueueOrder(t *testing.T) {
	q := NewQueue(4, nil)
	for i := 0; i < 3; i++ {
		if q.Offer(model.Snapshot{Sensor: &model.Sensor{Entrada: model.Int(i)}}) {
			t.Fatalf("unexpected drop at %d", i)
		}
	}
	for i := 0; i < 3; i++ {
		s := <-q.C()
		if int(*s.Sensor.Entrada) != i {
			t.Fatalf("expected entrada %d, got %d", i, *s.Sensor.Entrada)
		}
	}
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2, metrics.New(prometheus.NewRegistry()))
	q.Offer(model.Snapshot{Sensor: &model.Sensor{Entrada: model.Int(1)}})
	q.Offer(model.Snapshot{Sensor: &model.Sensor{Entrada: model.Int(2)}})
	if !q.Offer(model.Snapshot{Sensor: &model.Sensor{Entrada: model.Int(3)}}) {
		t.Fatalf("expected a drop when full")
	}
	if q.Len() != 2 {
		t.Fatalf("queue should stay at capacity, got %d", q.Len())
	}
	first, second := <-q.C(), <-q.C()
	if *first.Sensor.Entrada != 2 || *second.Sensor.Entrada != 3 {
		t.Fatalf("expected [2 3], got [%d %d]", *first.Sensor.Entrada, *second.Sensor.Entrada)
	}
}

func TestQueueMinimumCapacity(t *testing.T) {
	q := NewQueue(0, nil)
	q.Offer(model.Snapshot{})
	if q.Len() != 1 {
		t.Fatalf("zero capacity should be raised to one")
	}
}
