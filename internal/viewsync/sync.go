package viewsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"interop-dashboard/internal/chart"
	"interop-dashboard/internal/metrics"
	"interop-dashboard/internal/model"
)

const defaultWriteTimeout = 10 * time.Second

// ActuatorSink persists the door actuator state upstream.
type ActuatorSink interface {
	SetActuator(ctx context.Context, open bool) error
}

// Recorder keeps a history of applied view states.
type Recorder interface {
	Record(ctx context.Context, v model.ViewState) error
}

// Notifier is told about every state change (snapshot applied, toggle, write result).
type Notifier interface {
	NotifyState(st State)
}

// State is the view as served to clients. DoorOpen is the locally held value,
// which may run ahead of the database after a toggle.
type State struct {
	model.ViewState
	HasData        bool      `json:"hasData"`
	LastWriteError string    `json:"lastWriteError,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Options configures a Sync. Every field is optional; a nil Sink makes the
// toggle local only.
type Options struct {
	Sink         ActuatorSink
	Recorder     Recorder
	Notifier     Notifier
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	WriteTimeout time.Duration
}

// Sync applies snapshots to the charts and mediates the actuator toggle.
type Sync struct {
	sink         ActuatorSink
	recorder     Recorder
	notifier     Notifier
	log          *slog.Logger
	metrics      *metrics.Metrics
	writeTimeout time.Duration

	// renderMu serializes chart mutation between the loop and AttachCharts.
	renderMu sync.Mutex

	mu           sync.Mutex
	view         model.ViewState
	hasData      bool
	doorOpen     bool
	lastWriteErr string
	updatedAt    time.Time
	lum, io      *chart.Chart

	// notifyMu keeps notifications in the same order as the state changes.
	notifyMu sync.Mutex

	pending sync.WaitGroup
}

// New returns a Sync holding the initial view. Charts are mounted later with
// AttachCharts.
func New(opts Options) *Sync {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Sync{
		sink:         opts.Sink,
		recorder:     opts.Recorder,
		notifier:     opts.Notifier,
		log:          logger.With("component", "viewsync"),
		metrics:      opts.Metrics,
		writeTimeout: timeout,
		view:         model.InitialViewState(),
	}
}

// AttachCharts mounts the chart displays. If a snapshot was already applied,
// its data is rendered right away.
func (s *Sync) AttachCharts(lum, io *chart.Chart) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	s.lum, s.io = lum, io
	view, hasData := s.view, s.hasData
	s.mu.Unlock()

	if hasData {
		s.render(lum, io, view)
	}
}

// Run drains q until ctx is done. Snapshots are applied one at a time.
func (s *Sync) Run(ctx context.Context, q *Queue) error {
	s.log.Info("sync loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sync loop stopped")
			return nil
		case snap := <-q.C():
			s.metrics.QueueLength(q.Len())
			s.OnSnapshot(ctx, snap)
		}
	}
}

// OnSnapshot normalizes snap, stores it as the current view and redraws the
// charts when they are mounted.
func (s *Sync) OnSnapshot(ctx context.Context, snap model.Snapshot) {
	v := model.Normalize(snap)
	s.log.Debug("snapshot",
		"people", v.PeopleCount,
		"door", v.DoorOpen,
		"color", v.LightColor,
		"luminosity", v.LuminositySeries,
		"io", v.IOSeries,
	)

	if !v.HasSensor {
		s.mu.Lock()
		if v.DoorKnown {
			s.doorOpen = v.DoorOpen
		}
		s.mu.Unlock()
		s.log.Warn("snapshot without sensor subtree; keeping previous view")
		s.metrics.SnapshotSkipped("no_sensor")
		if v.DoorKnown {
			s.metrics.DoorOpen(v.DoorOpen)
		}
		s.notify()
		return
	}
	if !v.DoorKnown {
		s.log.Warn("snapshot without atuador.estado; door defaults to closed")
	}

	s.renderMu.Lock()
	s.mu.Lock()
	s.view = v
	s.hasData = true
	s.doorOpen = v.DoorOpen
	s.updatedAt = time.Now()
	lum, io := s.lum, s.io
	s.mu.Unlock()
	s.render(lum, io, v)
	s.renderMu.Unlock()

	s.metrics.SnapshotApplied(v.PeopleCount)
	s.metrics.DoorOpen(v.DoorOpen)
	s.record(ctx, v)
	s.notify()
}

// ToggleActuator flips the local door state and writes it upstream without
// waiting for the result. The local state is not rolled back when the write
// fails; the error is kept in State.LastWriteError instead.
func (s *Sync) ToggleActuator(ctx context.Context) bool {
	s.mu.Lock()
	next := !s.doorOpen
	s.doorOpen = next
	s.mu.Unlock()

	s.metrics.DoorOpen(next)
	s.log.Info("actuator toggled", "estado", next)
	s.notify()

	if s.sink == nil {
		s.log.Warn("no actuator sink configured; toggle is local only")
		return next
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
		defer cancel()

		err := s.sink.SetActuator(wctx, next)
		s.metrics.ActuatorWrite(err)

		s.mu.Lock()
		if err != nil {
			s.lastWriteErr = err.Error()
		} else {
			s.lastWriteErr = ""
		}
		s.mu.Unlock()

		if err != nil {
			s.log.Error("actuator write failed", "estado", next, "err", err)
		}
		s.notify()
	}()
	return next
}

// Wait blocks until in-flight actuator writes have finished.
func (s *Sync) Wait() {
	s.pending.Wait()
}

// State returns the current view.
func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	v.DoorOpen = s.doorOpen
	return State{
		ViewState:      v,
		HasData:        s.hasData,
		LastWriteError: s.lastWriteErr,
		UpdatedAt:      s.updatedAt,
	}
}

// HasData reports whether at least one snapshot has been applied.
func (s *Sync) HasData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasData
}

// render must be called with renderMu held.
func (s *Sync) render(lum, io *chart.Chart, v model.ViewState) {
	if lum == nil || io == nil {
		return
	}
	if v.HasLuminosity {
		if err := lum.Replace(v.LuminositySeries[:]); err != nil {
			s.log.Error("luminosity chart update", "err", err)
		} else {
			lum.Redraw()
			s.metrics.Redraw(lum.Name())
		}
	}
	if err := io.Replace(v.IOSeries[:]); err != nil {
		s.log.Error("io chart update", "err", err)
		return
	}
	io.Redraw()
	s.metrics.Redraw(io.Name())
}

func (s *Sync) record(ctx context.Context, v model.ViewState) {
	if s.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.recorder.Record(rctx, v); err != nil {
		s.log.Error("record view state", "err", err)
	}
}

// notify reads and delivers the state under notifyMu, so the last state a
// notifier sees is always the current one.
func (s *Sync) notify() {
	if s.notifier == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.notifier.NotifyState(s.State())
}
