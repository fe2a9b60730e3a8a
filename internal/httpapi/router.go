package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interop-dashboard/internal/chart"
	"interop-dashboard/internal/viewsync"
)

//go:embed web/index.html
var webFS embed.FS

// Controller is the subset of viewsync.Sync the API needs.
type Controller interface {
	State() viewsync.State
	HasData() bool
	ToggleActuator(ctx context.Context) bool
}

// ChartView is a chart configuration together with its current series.
type ChartView struct {
	chart.Config
	Data []int `json:"data"`
}

type toggleResponse struct {
	Estado bool `json:"estado"`
}

// NewRouter wires every route exposed by the dashboard.
func NewRouter(logger *slog.Logger, ctl Controller, charts []*chart.Chart, ws http.Handler, gatherer prometheus.Gatherer) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", indexHandler(logger)).Methods(http.MethodGet)
	r.HandleFunc("/api/state", stateHandler(logger, ctl)).Methods(http.MethodGet)
	r.HandleFunc("/api/charts", chartsHandler(logger, charts)).Methods(http.MethodGet)
	r.HandleFunc("/api/actuator/toggle", toggleHandler(logger, ctl)).Methods(http.MethodPost)
	r.Handle("/ws", ws).Methods(http.MethodGet)
	r.HandleFunc("/health/live", liveHandler).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", readyHandler(ctl)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	var h http.Handler = r
	h = handlers.CustomLoggingHandler(io.Discard, h, accessLog(logger))
	h = handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{logger}))(h)
	return h
}

func indexHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := webFS.ReadFile("web/index.html")
		if err != nil {
			logger.Error("read index", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}
}

func stateHandler(logger *slog.Logger, ctl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, ctl.State())
	}
}

func chartsHandler(logger *slog.Logger, charts []*chart.Chart) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]ChartView, 0, len(charts))
		for _, c := range charts {
			out = append(out, ChartView{Config: c.Config(), Data: c.Data()})
		}
		writeJSON(w, logger, http.StatusOK, out)
	}
}

func toggleHandler(logger *slog.Logger, ctl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		estado := ctl.ToggleActuator(r.Context())
		writeJSON(w, logger, http.StatusAccepted, toggleResponse{Estado: estado})
	}
}

func liveHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func readyHandler(ctl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !ctl.HasData() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", "err", err)
	}
}

func accessLog(logger *slog.Logger) handlers.LogFormatter {
	return func(_ io.Writer, p handlers.LogFormatterParams) {
		logger.Info("http_request",
			slog.String("method", p.Request.Method),
			slog.String("path", p.URL.Path),
			slog.Int("status", p.StatusCode),
			slog.Int("size", p.Size),
			slog.String("duration", time.Since(p.TimeStamp).String()),
		)
	}
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("handler panic", "panic", v)
}
