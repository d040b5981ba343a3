package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"txaudit/internal/application"
	"txaudit/internal/config"
	"txaudit/internal/infrastructure/ethrpc"
	"txaudit/internal/infrastructure/kafka"
	"txaudit/internal/infrastructure/logging"
	"txaudit/internal/infrastructure/storage"
	"txaudit/internal/infrastructure/telemetry"
	"txaudit/internal/interfaces/httpapi"
	"txaudit/internal/retry"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logFile := cfg.LogFile
	if logFile == "" {
		logFile = "logs/auditd.log"
	}
	if _, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		File:       logFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	}); err != nil {
		slog.Error("logger init error", "err", err)
	}
	for _, warning := range cfg.Warnings() {
		slog.Warn(warning)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.InitTracer(ctx, "txaudit-auditd", cfg.OtelEndpoint)
	if err != nil {
		slog.Warn("tracing init error", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			if err := shutdownTracing(shutdownCtx); err != nil {
				slog.Warn("tracing shutdown error", "err", err)
			}
		}()
	}

	primary, err := ethrpc.NewClient(ethrpc.Config{Name: "primary", URL: cfg.RPCURL, Timeout: cfg.RequestTimeout})
	if err != nil {
		slog.Error("rpc error", "err", err)
		os.Exit(1)
	}
	providers := []application.Provider{primary}
	if cfg.RPCURL2 != "" {
		secondary, err := ethrpc.NewClient(ethrpc.Config{Name: "secondary", URL: cfg.RPCURL2, Timeout: cfg.RequestTimeout})
		if err != nil {
			slog.Error("rpc error", "err", err)
			os.Exit(1)
		}
		providers = append(providers, secondary)
	}

	metrics := httpapi.NewMetrics()
	exec := retry.NewExecutor(retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       cfg.RetryDelay,
	}, retry.WithOnRetry(metrics.OnRetry))

	sessions, err := application.Connect(ctx, exec, providers...)
	if err != nil {
		slog.Error("provider connect error", "err", err)
		os.Exit(1)
	}

	auditor, err := application.NewAuditor(sessions, exec)
	if err != nil {
		slog.Error("auditor error", "err", err)
		os.Exit(1)
	}

	journal, backend, err := storage.Open(cfg)
	if err != nil {
		slog.Error("journal error", "err", err)
		os.Exit(1)
	}
	if journal != nil {
		slog.Info("journal enabled", "backend", backend)
	}

	var alerts application.AlertSink
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:     cfg.KafkaBrokers,
			TopicPrefix: cfg.KafkaTopicPrefix,
		})
		if err != nil {
			slog.Error("kafka error", "err", err)
			os.Exit(1)
		}
		defer producer.Close()
		alerts = producer
		slog.Info("alerts enabled", "brokers", cfg.KafkaBrokers, "topic_prefix", cfg.KafkaTopicPrefix)
	}

	orchestrator, err := application.NewOrchestrator(auditor, journal, alerts, metrics, application.OrchestratorConfig{
		MaxTransactions: cfg.MaxTransactions,
		Workers:         cfg.Workers,
	})
	if err != nil {
		slog.Error("orchestrator error", "err", err)
		os.Exit(1)
	}

	httpServer, err := httpapi.NewServer(orchestrator, journal, primary, metrics, httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		slog.Error("http server error", "err", err)
		os.Exit(1)
	}

	slog.Info("auditd listening",
		"addr", cfg.HTTPAddr,
		"primary", cfg.RPCURL,
		"providers", len(providers),
	)
	if err := httpServer.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("http server stopped", "err", err)
		os.Exit(1)
	}
}
