package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tracker",
		Short:        "True Network event tracker",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Follow finalized blocks and dispatch analytics events",
		RunE:  runTracker,
	}

	runCmd.Flags().String("node-url", "", "node RPC URL (ws:// for head subscription)")
	runCmd.Flags().String("sidecar-url", "", "Substrate API Sidecar base URL")
	addSinkFlags(runCmd)
	runCmd.Flags().String("metrics-addr", "", "address for the Prometheus /metrics endpoint, empty disables it")
	runCmd.Flags().Uint64("max-gap", 256, "maximum skipped finalized blocks to backfill per gap")
	runCmd.Flags().Duration("reconnect-delay", 2*time.Second, "delay before resubscribing to finalized heads")
	runCmd.Flags().Int("max-reconnects", 10, "consecutive failed resubscriptions before giving up")

	root.AddCommand(runCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Process recorded Sidecar blocks from a JSONL file",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input Sidecar blocks JSONL")
	replayCmd.Flags().String("errors", "./data/replay_errors.jsonl", "unparsable input lines JSONL")
	replayCmd.Flags().String("sidecar-url", "", "optional Sidecar URL for error metadata and issuer names")
	addSinkFlags(replayCmd)

	root.AddCommand(replayCmd)

	return root
}

func addSinkFlags(cmd *cobra.Command) {
	cmd.Flags().Int("decimals", 12, "token decimals used to format balances")
	cmd.Flags().StringSlice("sinks", nil, "analytics sinks (mixpanel, postgres, jsonl, nats)")
	cmd.Flags().String("mixpanel-token", "", "Mixpanel project token")
	cmd.Flags().String("mixpanel-api-url", "https://api.mixpanel.com", "Mixpanel API URL")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("nats-url", "", "NATS server URL")
	cmd.Flags().String("nats-stream", "TRACKER", "JetStream stream name")
	cmd.Flags().String("nats-subject", "tracker.analytics", "JetStream subject prefix")
	cmd.Flags().String("out", "./data/analytics.jsonl", "output JSONL path for the jsonl sink")
	cmd.Flags().String("event-fields", "", "event field name overrides (section.method=a,b,c;...)")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts for Sidecar requests")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Duration("http-timeout", 10*time.Second, "HTTP request timeout")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
