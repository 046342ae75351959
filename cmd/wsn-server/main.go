package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/signalsfoundry/wsn-simulator/internal/api"
	"github.com/signalsfoundry/wsn-simulator/internal/config"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/internal/observability"
	"github.com/signalsfoundry/wsn-simulator/kb"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	addr := flag.String("addr", "", "HTTP address the API listens on (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wsn-server: %v\n", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if err := cfg.Simulation.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "wsn-server: default simulation settings: %v\n", err)
		os.Exit(2)
	}

	log := logging.New(cfg.Logging)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.Error(ctx, "failed to listen for HTTP", logging.String("addr", cfg.Server.Addr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the API on lis until ctx is cancelled, then shuts down within
// cfg.Server.ShutdownTimeout.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	gin.SetMode(gin.ReleaseMode)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	sims, err := observability.NewSimulationCollector(nil)
	if err != nil {
		return fmt.Errorf("init simulation metrics: %w", err)
	}
	httpMetrics, err := observability.NewHTTPCollector(nil)
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}
	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, sims, log)

	store := kb.NewStore(cfg.Server.MaxStoredRuns)
	unsubscribe := store.Subscribe(func(ev kb.Event) {
		if ev.Type == kb.EventRunEvicted {
			log.Debug(context.Background(), "evicted stored run", logging.String("run_id", ev.Run.ID))
		}
	})
	defer unsubscribe()

	server := api.NewServer(store,
		api.WithLogger(log),
		api.WithDefaults(cfg.Simulation),
		api.WithSimulationCollector(sims),
		api.WithHTTPCollector(httpMetrics),
	)
	httpSrv := &http.Server{Handler: server.Handler()}

	errCh := make(chan error, 1)
	log.Info(ctx, "starting WSN HTTP server", logging.String("addr", lis.Addr().String()))
	go func() {
		errCh <- httpSrv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	log.Info(context.Background(), "shutting down WSN server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func serveMetrics(addr string, collector *observability.SimulationCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
