package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trueAnalytics/internal/analytics"
	"trueAnalytics/internal/chain"
	"trueAnalytics/internal/config"
	"trueAnalytics/internal/decoder"
	"trueAnalytics/internal/metrics"
	"trueAnalytics/internal/pipeline"
)

func runTracker(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	fields, err := eventFields(cfg.EventFields)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.NodeURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	finalized, err := chainClient.FinalizedRef(ctx)
	if err != nil {
		return fmt.Errorf("read finalized head: %w", err)
	}

	sidecar, err := chain.NewSidecar(chain.SidecarConfig{
		BaseURL:      cfg.SidecarURL,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		EventFields:  fields,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	analyticsSink, closeSinks, err := buildSink(ctx, cfg.Sink, cfg.HTTPTimeout, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	dec := decoder.New(decoder.Config{
		Decimals: cfg.Decimals,
		Resolver: chain.NewModuleErrors(sidecar),
		Logger:   logger,
	})
	processor := pipeline.NewBlockProcessor(sidecar, dec, logger)
	dispatcher := analytics.NewDispatcher(analyticsSink, chain.NewIssuers(sidecar), logger)
	heads := chain.NewHeadSubscriber(chain.HeadsConfig{
		URL:            cfg.NodeURL,
		MaxGap:         cfg.MaxGap,
		ReconnectDelay: cfg.ReconnectDelay,
		MaxReconnects:  cfg.MaxReconnects,
		Logger:         logger,
	}, chainClient)

	logger.Info("tracker start",
		zap.String("node", cfg.NodeURL),
		zap.String("sidecar", cfg.SidecarURL),
		zap.Strings("sinks", cfg.Sink.Sinks),
		zap.Int("decimals", cfg.Decimals),
		zap.Uint64("finalized", finalized.Number),
		zap.Strings("events", pipeline.SupportedEvents()),
	)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, logger)
		})
	}
	g.Go(func() error {
		defer stop()
		return pipeline.NewDriver(heads, processor, dispatcher, logger).Run(gctx)
	})
	return g.Wait()
}

func eventFields(overrides map[string]string) (chain.FieldNames, error) {
	parsed, err := chain.ParseFieldOverrides(overrides)
	if err != nil {
		return nil, err
	}
	return chain.DefaultEventFields().Merge(parsed), nil
}
