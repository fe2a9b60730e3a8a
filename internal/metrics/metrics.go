package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dashboard"

// Metrics groups the dashboard's Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	snapshotsReceived prometheus.Counter
	snapshotsApplied  prometheus.Counter
	snapshotsSkipped  *prometheus.CounterVec
	snapshotsDropped  prometheus.Counter
	queueLength       prometheus.Gauge
	redraws           *prometheus.CounterVec
	actuatorWrites    *prometheus.CounterVec
	wsClients         prometheus.Gauge
	peopleCount       prometheus.Gauge
	doorOpen          prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		snapshotsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_received_total",
			Help:      "Snapshots delivered by the source.",
		}),
		snapshotsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_applied_total",
			Help:      "Snapshots normalized into a new view state.",
		}),
		snapshotsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_skipped_total",
			Help:      "Snapshots not applied, by reason.",
		}, []string{"reason"}),
		snapshotsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_dropped_total",
			Help:      "Pending snapshots discarded because the queue was full.",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Snapshots waiting for the sync loop.",
		}),
		redraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_redraws_total",
			Help:      "Chart redraw requests, by chart.",
		}, []string{"chart"}),
		actuatorWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuator_writes_total",
			Help:      "Remote actuator writes, by result.",
		}, []string{"result"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected dashboard websocket clients.",
		}),
		peopleCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "people_count",
			Help:      "Current occupancy derived from the latest snapshot.",
		}),
		doorOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "door_open",
			Help:      "1 when the local door state is open.",
		}),
	}
	reg.MustRegister(
		m.snapshotsReceived, m.snapshotsApplied, m.snapshotsSkipped, m.snapshotsDropped,
		m.queueLength, m.redraws, m.actuatorWrites, m.wsClients, m.peopleCount, m.doorOpen,
	)
	return m
}

// SnapshotReceived counts a snapshot handed over by the source.
func (m *Metrics) SnapshotReceived() {
	if m != nil {
		m.snapshotsReceived.Inc()
	}
}

// SnapshotApplied counts an applied snapshot and sets the people gauge.
func (m *Metrics) SnapshotApplied(people int) {
	if m != nil {
		m.snapshotsApplied.Inc()
		m.peopleCount.Set(float64(people))
	}
}

// SnapshotSkipped counts a snapshot that left the view unchanged.
func (m *Metrics) SnapshotSkipped(reason string) {
	if m != nil {
		m.snapshotsSkipped.WithLabelValues(reason).Inc()
	}
}

// SnapshotDropped counts a snapshot evicted from a full queue.
func (m *Metrics) SnapshotDropped() {
	if m != nil {
		m.snapshotsDropped.Inc()
	}
}

// QueueLength sets the number of snapshots waiting to be applied.
func (m *Metrics) QueueLength(n int) {
	if m != nil {
		m.queueLength.Set(float64(n))
	}
}

// Redraw counts a redraw of the named chart.
func (m *Metrics) Redraw(chart string) {
	if m != nil {
		m.redraws.WithLabelValues(chart).Inc()
	}
}

// ActuatorWrite records a remote write outcome; err == nil counts as "ok".
func (m *Metrics) ActuatorWrite(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.actuatorWrites.WithLabelValues(result).Inc()
}

// WSClients adjusts the connected client gauge by delta.
func (m *Metrics) WSClients(delta int) {
	if m != nil {
		m.wsClients.Add(float64(delta))
	}
}

// DoorOpen mirrors the local door state.
func (m *Metrics) DoorOpen(open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.doorOpen.Set(v)
}
