package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"go-socket-hub/internal/applicatoin/facade"
	"go-socket-hub/internal/infrastructure/config"
	"go-socket-hub/internal/infrastructure/hub"
	"go-socket-hub/internal/infrastructure/logger"
	"go-socket-hub/internal/infrastructure/metrics"
	"go-socket-hub/internal/infrastructure/server"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Application struct {
	cfg     *config.Config
	logger  logger.Logger
	httpSrv server.Server
	hub     *hub.Hub
}

func newApplication(cfg *config.Config) *Application {
	log := logger.NewLogrusLogger(&cfg.Log)

	hubOpts := []hub.Option{hub.WithConfig(cfg.Hub.HubOptions())}
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		hubOpts = append(hubOpts, hub.WithMetrics(metrics.NewPrometheus(reg, cfg.Metrics.Namespace)))
		gatherer = reg
	}

	factory := hub.NewFactory(cfg.Hub.TransportConfig(), nil, log)
	hubInstance := hub.New(log, factory, hubOpts...)
	subscriptions := facade.NewSubscriptionService(hubInstance, cfg.Hub, log)

	router := InitRouter(subscriptions, log, RouterConfig{
		MetricsPath: cfg.Metrics.Path,
		Gatherer:    gatherer,
	})

	return &Application{
		cfg:     cfg,
		logger:  log.WithField("app", "socket-hub"),
		httpSrv: server.NewHTTPServer(router, cfg.Server, log),
		hub:     hubInstance,
	}
}

func (app *Application) Run(ctx context.Context) error {
	// Start the hub before any handler can subscribe. Only Stop ends its loop,
	// so pending teardown still runs after ctx is cancelled.
	if err := app.hub.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start hub: %w", err)
	}

	eg := errgroup.Group{}

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()

		gracefulshutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			app.cfg.Server.ShutdownTimeout,
		)
		defer cancel()

		// Stop hub first
		if err := app.hub.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	err := eg.Wait()
	if err != nil {
		return err
	}

	return nil
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
