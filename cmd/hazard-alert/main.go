package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/hazard-alert-service/internal/adapter/backend"
	httpadapter "github.com/couchcryptid/hazard-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-alert-service/internal/adapter/rabbitmq"
	"github.com/couchcryptid/hazard-alert-service/internal/config"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
	"github.com/couchcryptid/hazard-alert-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	logger.Info("hazard model configured",
		"policy", cfg.HazardPolicy,
		"zones", cfg.Zones.Len(),
		"backend_url", cfg.BackendURL,
	)

	// Alert sinks: the backend is always on, Kafka and RabbitMQ are optional.
	sinks := []pipeline.AlertSink{backend.NewClient(cfg.BackendURL, cfg.SinkTimeout, logger)}
	var closers []func() error

	if cfg.KafkaAlertTopic != "" {
		writer := kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		closers = append(closers, writer.Close)
		logger.Info("kafka alert sink enabled", "topic", cfg.KafkaAlertTopic)
	}
	if cfg.RabbitMQURL != "" {
		publisher, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, publisher)
		closers = append(closers, publisher.Close)
	}

	var cooldown *pipeline.Cooldown
	if cfg.AlertCooldown > 0 {
		cooldown = pipeline.NewCooldown(cfg.AlertCooldown, clockwork.NewRealClock(), logger)
		defer cooldown.Stop()
		logger.Info("alert cooldown enabled", "window", cfg.AlertCooldown)
	}

	dispatcher := pipeline.NewDispatcher(sinks, cfg.SinkTimeout, cfg.DispatchMaxInFlight, logger, metrics)
	p := pipeline.New(pipeline.NewEnricher(cfg.HazardModel()), dispatcher, cooldown, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, cfg.IngestPath, p, p, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start the optional Kafka ping stream.
	streamDone := make(chan struct{})
	var reader *kafkaadapter.Reader
	if cfg.StreamEnabled() {
		reader = kafkaadapter.NewReader(cfg, logger)
		stream := pipeline.NewStream(reader, p, logger, metrics, cfg.BatchSize)
		go func() {
			defer close(streamDone)
			if err := stream.Run(ctx); err != nil {
				logger.Error("ping stream error", "error", err)
			}
		}()
	} else {
		close(streamDone)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	p.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	<-streamDone
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("abandoning in-flight alert dispatches", "error", err)
	}
	for _, closeSink := range closers {
		if err := closeSink(); err != nil {
			logger.Error("alert sink close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
