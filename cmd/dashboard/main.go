package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"interop-dashboard/internal/chart"
	"interop-dashboard/internal/config"
	"interop-dashboard/internal/httpapi"
	"interop-dashboard/internal/influx"
	"interop-dashboard/internal/live"
	"interop-dashboard/internal/metrics"
	"interop-dashboard/internal/model"
	"interop-dashboard/internal/mqtt"
	"interop-dashboard/internal/rtdb"
	"interop-dashboard/internal/viewsync"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("dashboard stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

// source runs the subscription until ctx ends.
type source func(ctx context.Context) error

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	queue := viewsync.NewQueue(cfg.Queue.Capacity, m)
	subscribe, sink, closeConn, err := connect(cfg, logger, func(s model.Snapshot) { queue.Offer(s) })
	if err != nil {
		return err
	}
	defer closeConn()

	var recorder viewsync.Recorder
	if cfg.Influx.URL != "" {
		writer, err := influx.NewWriter(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket, cfg.HistorySite())
		if err != nil {
			return fmt.Errorf("influx: %w", err)
		}
		defer writer.Close()
		hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := writer.Health(hctx); err != nil {
			logger.Warn("influx not healthy; history writes may fail", "err", err)
		}
		cancel()
		recorder = writer
	}

	hub := live.NewHub(logger, m)
	defer hub.Close()

	vsync := viewsync.New(viewsync.Options{
		Sink:         sink,
		Recorder:     recorder,
		Notifier:     hub,
		Logger:       logger,
		Metrics:      m,
		WriteTimeout: cfg.Actuator.WriteTimeout,
	})
	defer vsync.Wait()

	lum := chart.New(chart.LuminosityConfig(), hub)
	ioChart := chart.New(chart.IOConfig(), hub)
	vsync.AttachCharts(lum, ioChart)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(logger, vsync, []*chart.Chart{lum, ioChart}, hub, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return subscribe(gctx) })
	g.Go(func() error { return vsync.Run(gctx, queue) })
	g.Go(func() error { return httpapi.Serve(gctx, logger, srv) })

	logger.Info("dashboard running", "source", cfg.Source, "http", cfg.HTTP.Addr)
	return g.Wait()
}

// connect opens the connection handle for the configured source. Snapshots are
// handed to onSnapshot; the returned close func releases the connection.
func connect(cfg *config.Config, logger *slog.Logger, onSnapshot func(model.Snapshot)) (source, viewsync.ActuatorSink, func(), error) {
	switch cfg.Source {
	case config.SourceMQTT:
		opts := pahomqtt.NewClientOptions().
			AddBroker(cfg.MQTT.Broker).
			SetClientID(cfg.MQTT.ClientID + "-" + uuid.NewString()[:8]).
			SetAutoReconnect(true).
			SetOnConnectHandler(func(c pahomqtt.Client) {
				// clean sessions drop subscriptions, so subscribe on every (re)connect
				if err := mqtt.Subscribe(c, cfg.MQTT.Site, logger, onSnapshot); err != nil {
					logger.Error("mqtt subscribe", "err", err)
				}
			})
		if cfg.MQTT.User != "" {
			opts.SetUsername(cfg.MQTT.User).SetPassword(cfg.MQTT.Pass)
		}
		client := pahomqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, nil, nil, fmt.Errorf("mqtt connect: %w", token.Error())
		}
		pub, err := mqtt.NewPublisher(client, cfg.MQTT.Site)
		if err != nil {
			client.Disconnect(250)
			return nil, nil, nil, err
		}
		sub := func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}
		return sub, pub, func() { client.Disconnect(250) }, nil

	default:
		client, err := rtdb.New(rtdb.Config{URL: cfg.RTDB.URL, Auth: cfg.RTDB.Auth, Logger: logger})
		if err != nil {
			return nil, nil, nil, err
		}
		sub := func(ctx context.Context) error {
			return client.Subscribe(ctx, rtdb.PathRoot, onSnapshot)
		}
		return sub, client, client.Close, nil
	}
}
