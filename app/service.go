package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/sanifleet/api"
	"github.com/kilianp07/sanifleet/config"
	"github.com/kilianp07/sanifleet/core/bookings"
	"github.com/kilianp07/sanifleet/core/decisionlog"
	"github.com/kilianp07/sanifleet/core/engine"
	"github.com/kilianp07/sanifleet/core/events"
	coremetrics "github.com/kilianp07/sanifleet/core/metrics"
	coremon "github.com/kilianp07/sanifleet/core/monitoring"
	"github.com/kilianp07/sanifleet/core/unitstatus"
	"github.com/kilianp07/sanifleet/infra/logger"
	"github.com/kilianp07/sanifleet/infra/metrics"
	"github.com/kilianp07/sanifleet/infra/monitoring"
	"github.com/kilianp07/sanifleet/infra/mqtt"
	"github.com/kilianp07/sanifleet/infra/storage/postgres"
	"github.com/kilianp07/sanifleet/infra/telemetry"
	"github.com/kilianp07/sanifleet/internal/eventbus"
)

// Service wires the decision engine to its stores, the event bus, the metrics
// sinks, MQTT and the HTTP API.
type Service struct {
	Engine *engine.Engine

	cfg       *config.Config
	bus       *eventbus.Bus[events.Event]
	sink      coremetrics.Sink
	decisions decisionlog.Store
	units     *unitstatus.MemoryStore
	client    *mqtt.PahoClient
	telemetry *telemetry.Subscriber
	notifier  *mqtt.Notifier
	server    *http.Server
	log       logger.Logger
	closers   []func() error
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	s := &Service{
		cfg:   cfg,
		bus:   eventbus.New[events.Event](eventbus.WithBuffer(256)),
		units: unitstatus.NewMemoryStore(),
		log:   logger.New("service"),
	}
	if err := s.build(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) build(ctx context.Context) error {
	cfg := s.cfg
	mon, err := monitoring.NewSentryMonitor(cfg.Monitoring)
	if err != nil {
		return fmt.Errorf("monitoring: %w", err)
	}
	coremon.Init(mon)
	s.closers = append(s.closers, func() error { mon.Flush(2 * time.Second); return nil })

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return fmt.Errorf("metrics sink: %w", err)
	}
	s.sink = sink
	if c, ok := sink.(interface{ Close() }); ok {
		s.closers = append(s.closers, func() error { c.Close(); return nil })
	}

	store, err := decisionlog.Open(cfg.DecisionLog)
	if err != nil {
		return fmt.Errorf("decision log: %w", err)
	}
	s.decisions = store
	s.closers = append(s.closers, store.Close)

	var repo bookings.Repository = bookings.NewMemoryRepository()
	if cfg.Storage.Backend == "postgres" {
		pg, err := postgres.Open(ctx, cfg.Storage.Postgres)
		if err != nil {
			return fmt.Errorf("booking storage: %w", err)
		}
		s.closers = append(s.closers, pg.Close)
		repo = pg
	}

	s.Engine, err = engine.New(cfg.Engine,
		engine.WithPublisher(s.bus),
		engine.WithDecisionLog(store),
		engine.WithUnitStore(s.units),
		engine.WithBookingRepository(repo),
		engine.WithLogger(logger.New("engine")),
		engine.WithMonitor(mon),
	)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if cfg.Telemetry.Enabled || cfg.Notify.Enabled {
		s.client, err = mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("mqtt client: %w", err)
		}
	}
	if cfg.Telemetry.Enabled {
		s.telemetry, err = telemetry.NewSubscriber(cfg.Telemetry, s.units, nil)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}
	if cfg.Notify.Enabled {
		s.notifier = mqtt.NewNotifier(s.client, cfg.Notify)
	}

	s.server = &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewRouter(s.Engine, api.Options{
			MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
			DecisionsToken: cfg.HTTP.DecisionsToken,
			RequestTimeout: cfg.HTTP.RequestTimeout,
			Logger:         logger.New("http"),
			Monitor:        mon,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	return nil
}

// Handler returns the HTTP handler served by Run.
func (s *Service) Handler() http.Handler { return s.server.Handler }

// Run starts the background workers and the HTTP server and blocks until the
// context is canceled or the server fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collected := metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.notifier != nil {
		done := s.notifier.Start(ctx, s.bus)
		defer func() { <-done }()
	}
	if s.telemetry != nil {
		go func() {
			if err := s.telemetry.Start(ctx, s.client); err != nil {
				s.log.Errorf("telemetry: %v", err)
			}
		}()
	}
	if s.cfg.Metrics.ListenAddr != "" && hasSink(s.cfg.Metrics, "prometheus") {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.ListenAddr, nil); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infof("HTTP API listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errc:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("http shutdown: %v", err)
	}
	cancel()
	<-collected
	return runErr
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.client != nil {
		s.client.Disconnect()
	}
	s.bus.Close()
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func hasSink(cfg coremetrics.Config, typ string) bool {
	for _, m := range cfg.Sinks {
		if m.Type == typ {
			return true
		}
	}
	return false
}
