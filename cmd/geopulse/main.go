// Command geopulse runs the zone-load stream processor: it consumes raw
// per-zone load samples, maintains sliding-window averages and a
// hysteretic state machine per zone, and publishes alerts when a zone's
// operational state changes. Wiring order follows the mape service's
// cmd/mape/main.go: config, then logger, then the I/O collaborators,
// then the engine, then the HTTP server, then signal-driven shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dhruv-ship-it/geopulse/internal/circuitbreaker"
	"github.com/dhruv-ship-it/geopulse/internal/config"
	"github.com/dhruv-ship-it/geopulse/internal/dispatcher"
	"github.com/dhruv-ship-it/geopulse/internal/egress"
	"github.com/dhruv-ship-it/geopulse/internal/httpapi"
	"github.com/dhruv-ship-it/geopulse/internal/ingress"
	"github.com/dhruv-ship-it/geopulse/internal/logging"
	"github.com/dhruv-ship-it/geopulse/internal/materialized"
	"github.com/dhruv-ship-it/geopulse/internal/metrics"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("config_load_failed", "error", err.Error())
		os.Exit(1)
	}

	log, logFile, err := logging.Init("geopulse", cfg.LogDir, slog.LevelInfo)
	if err != nil {
		slog.Error("logging_init_failed", "error", err.Error())
		os.Exit(1)
	}
	defer logFile.Close()

	log.Info("startup",
		"brokers", cfg.KafkaBrokers,
		"ingressTopic", cfg.IngressTopic,
		"egressTopic", cfg.EgressTopic,
		"workerCount", cfg.WorkerCount,
	)

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)

	ingressBreaker := circuitbreaker.NewKafkaBreaker(
		"ingress",
		cfg.CBEnabled,
		cfg.CBFailureThresh,
		durationSeconds(cfg.CBResetSeconds),
		durationMs(cfg.CBOpTimeoutMs),
		durationMs(cfg.CBBackoffMs),
		log.With("collaborator", "ingress-breaker"),
	)
	egressBreaker := circuitbreaker.NewKafkaBreaker(
		"egress",
		cfg.CBEnabled,
		cfg.CBFailureThresh,
		durationSeconds(cfg.CBResetSeconds),
		durationMs(cfg.CBOpTimeoutMs),
		durationMs(cfg.CBBackoffMs),
		log.With("collaborator", "egress-breaker"),
	)

	readers := make([]dispatcher.EventReader, 0, cfg.WorkerCount)
	for i := 0; i < cfg.WorkerCount; i++ {
		readers = append(readers, ingress.New(ingress.Config{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.IngressTopic,
			ConsumerGroup: cfg.ConsumerGroup,
		}, ingressBreaker, log.With("collaborator", "ingress")))
	}

	writer := egress.New(egress.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.EgressTopic,
	}, egressBreaker, met, log.With("collaborator", "egress"))
	defer writer.Close()

	store := materialized.New(materialized.Config{
		Addr:      cfg.RedisAddr,
		KeyPrefix: cfg.RedisKeyPrefix,
	}, met, log.With("collaborator", "materialized"))
	defer store.Close()

	pool := dispatcher.New(readers, writer, store, met, log.With("collaborator", "dispatcher"))

	httpServer := httpapi.New(cfg.HTTPBind, reg, store, log.With("collaborator", "http"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Warn("http_server_exited", "error", err.Error())
		}
	}()

	poolDone := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(poolDone)
	}()

	<-ctx.Done()
	log.Info("shutdown_signal_received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Warn("http_server_stop_error", "error", err.Error())
	}

	select {
	case <-poolDone:
		log.Info("dispatcher_drained")
	case <-shutdownCtx.Done():
		log.Warn("dispatcher_drain_timed_out")
	}
	if err := pool.Close(); err != nil {
		log.Warn("dispatcher_close_error", "error", err.Error())
	}
	log.Info("shutdown_complete")
}
