package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"txaudit/internal/application"
	"txaudit/internal/config"
	"txaudit/internal/domain"
	"txaudit/internal/hashlist"
	"txaudit/internal/infrastructure/ethrpc"
	"txaudit/internal/infrastructure/kafka"
	"txaudit/internal/infrastructure/logging"
	"txaudit/internal/infrastructure/storage"
	"txaudit/internal/infrastructure/telemetry"
	"txaudit/internal/report"
	"txaudit/internal/retry"
)

var version = "0.1.0"

const usageNoInput = "no transaction hashes provided (use --tx, --file or positional arguments)"

var (
	flagRPC1    string
	flagRPC2    string
	flagFile    string
	flagTxs     []string
	flagMax     int
	flagWorkers int
	flagJSON    bool
	flagNoEmoji bool

	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "txaudit [tx-hash ...]",
	Short: "Audit transaction receipt soundness across JSON-RPC providers",
	Long: `txaudit fetches transaction receipts from one or two JSON-RPC
providers, derives a Keccak-256 commitment over the fields that decide
execution soundness (chain id, tx hash, block number, status, gas used)
and cross-checks the providers against each other.

Exit codes: 0 all sound, 1 fatal setup error, 2 usage error,
3 failed or unresolvable transactions, 4 cross-provider mismatch.`,
	Version:      version,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runAudit,
}

func init() {
	rootCmd.Flags().StringVar(&flagRPC1, "rpc1", "", "primary RPC URL (default from RPC_URL)")
	rootCmd.Flags().StringVar(&flagRPC2, "rpc2", "", "secondary RPC URL for cross-checks (default from RPC_URL_2)")
	rootCmd.Flags().StringVar(&flagFile, "file", "", "file with one tx hash per line, '-' for stdin")
	rootCmd.Flags().StringArrayVar(&flagTxs, "tx", nil, "transaction hash to audit (repeatable)")
	rootCmd.Flags().IntVar(&flagMax, "max", 0, "max transactions per run, 0 = unlimited (default from MAX_TXS)")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent audits (default from WORKERS)")
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "print the JSON payload instead of the table")
	rootCmd.Flags().BoolVar(&flagNoEmoji, "no-emoji", false, "disable emoji in the table output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
	os.Exit(exitCode)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config error", "err", err)
		exitCode = 1
		return nil
	}
	if cmd.Flags().Changed("rpc1") {
		cfg.RPCURL = flagRPC1
	}
	if cmd.Flags().Changed("rpc2") {
		cfg.RPCURL2 = flagRPC2
	}
	if cmd.Flags().Changed("max") {
		cfg.MaxTransactions = flagMax
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = flagWorkers
	}

	if _, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	}); err != nil {
		slog.Error("logger init error", "err", err)
	}
	for _, warning := range cfg.Warnings() {
		slog.Warn(warning)
	}

	hashes := append([]string(nil), flagTxs...)
	hashes = append(hashes, args...)
	if flagFile != "" {
		fromFile, err := hashlist.Load(flagFile)
		if err != nil {
			slog.Error("hash list error", "err", err)
			exitCode = 1
			return nil
		}
		hashes = append(hashes, fromFile...)
	}
	if len(hashes) == 0 {
		fmt.Fprintln(os.Stderr, usageNoInput)
		exitCode = 2
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracer(ctx, "txaudit-cli", cfg.OtelEndpoint)
	if err != nil {
		slog.Warn("tracing init error", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				slog.Warn("tracing shutdown error", "err", err)
			}
		}()
	}

	primary, err := ethrpc.NewClient(ethrpc.Config{Name: "primary", URL: cfg.RPCURL, Timeout: cfg.RequestTimeout})
	if err != nil {
		slog.Error("rpc error", "err", err)
		exitCode = 1
		return nil
	}
	providers := []application.Provider{primary}
	if cfg.RPCURL2 != "" {
		secondary, err := ethrpc.NewClient(ethrpc.Config{Name: "secondary", URL: cfg.RPCURL2, Timeout: cfg.RequestTimeout})
		if err != nil {
			slog.Error("rpc error", "err", err)
			exitCode = 1
			return nil
		}
		providers = append(providers, secondary)
	}

	exec := retry.NewExecutor(retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       cfg.RetryDelay,
	})

	sessions, err := application.Connect(ctx, exec, providers...)
	if err != nil {
		slog.Error("provider connect error", "err", err)
		exitCode = 1
		return nil
	}

	auditor, err := application.NewAuditor(sessions, exec)
	if err != nil {
		slog.Error("auditor error", "err", err)
		exitCode = 1
		return nil
	}

	journal, backend, err := storage.Open(cfg)
	if err != nil {
		slog.Error("journal error", "err", err)
		exitCode = 1
		return nil
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
			exitCode = 1
			return nil
		}
		defer producer.Close()
		alerts = producer
	}

	orchestrator, err := application.NewOrchestrator(auditor, journal, alerts, nil, application.OrchestratorConfig{
		MaxTransactions: cfg.MaxTransactions,
		Workers:         cfg.Workers,
	})
	if err != nil {
		slog.Error("orchestrator error", "err", err)
		exitCode = 1
		return nil
	}

	summary, err := orchestrator.Run(ctx, hashes)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrNoInput):
			fmt.Fprintln(os.Stderr, usageNoInput)
			exitCode = 2
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			slog.Error("audit aborted", "err", err)
			exitCode = 1
		default:
			slog.Error("audit error", "err", err)
			exitCode = 1
		}
		return nil
	}

	if flagJSON {
		if err := report.WriteJSON(os.Stdout, report.NewBatchPayload(summary)); err != nil {
			slog.Error("render error", "err", err)
			exitCode = 1
			return nil
		}
	} else {
		report.NewRenderer(os.Stdout, !flagNoEmoji).Render(summary)
	}

	exitCode = summaryExitCode(summary)
	return nil
}

// summaryExitCode maps batch outcomes onto the documented exit codes.
// A cross-provider mismatch outranks ordinary failures; a batch where
// every hash was malformed counts as a usage error.
func summaryExitCode(s *domain.BatchSummary) int {
	switch {
	case s.Mismatches > 0:
		return 4
	case s.Total() > 0 && s.InvalidInput == s.Total():
		return 2
	case s.Failed > 0 || s.NotFound > 0 || s.ProviderErrors > 0 || s.InvalidInput > 0:
		return 3
	default:
		return 0
	}
}
