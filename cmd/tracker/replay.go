package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trueAnalytics/internal/analytics"
	"trueAnalytics/internal/chain"
	"trueAnalytics/internal/config"
	"trueAnalytics/internal/decoder"
	"trueAnalytics/internal/pipeline"
)

// replayError records an input line that could not be parsed.
type replayError struct {
	File  string `json:"file"`
	Line  int    `json:"line"`
	Error string `json:"error"`
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
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

	journal, err := openErrorJournal(cfg.Errors)
	if err != nil {
		return err
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Error("close error journal failed", zap.Error(err))
		}
	}()

	var badLines int
	source, err := chain.LoadFile(cfg.In, fields, func(line int, lineErr error) {
		badLines++
		logger.Warn("skip input line", zap.Int("line", line), zap.Error(lineErr))
		if err := journal.Record(cfg.In, line, lineErr); err != nil {
			logger.Error("write replay error failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	var (
		resolver decoder.ErrorResolver
		issuers  analytics.IssuerLookup
	)
	if cfg.SidecarURL != "" {
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
		resolver = chain.NewModuleErrors(sidecar)
		issuers = chain.NewIssuers(sidecar)
	}

	analyticsSink, closeSinks, err := buildSink(ctx, cfg.Sink, cfg.HTTPTimeout, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	dec := decoder.New(decoder.Config{Decimals: cfg.Decimals, Resolver: resolver, Logger: logger})
	processor := pipeline.NewBlockProcessor(source, dec, logger)
	dispatcher := analytics.NewDispatcher(analyticsSink, issuers, logger)

	logger.Info("replay start",
		zap.String("in", cfg.In),
		zap.Int("blocks", source.Len()),
		zap.Int("bad_lines", badLines),
		zap.Strings("sinks", cfg.Sink.Sinks),
		zap.Bool("sidecar", cfg.SidecarURL != ""),
	)

	if err := pipeline.NewDriver(source, processor, dispatcher, logger).Run(ctx); err != nil {
		return err
	}

	logger.Info("replay complete", zap.Int("blocks", source.Len()))
	return nil
}

// errorJournal records unparsable input lines, one JSON object per line.
type errorJournal struct {
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

func openErrorJournal(path string) (*errorJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create error journal dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create error journal: %w", err)
	}
	buf := bufio.NewWriter(file)
	return &errorJournal{file: file, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (j *errorJournal) Record(file string, line int, lineErr error) error {
	return j.enc.Encode(replayError{File: file, Line: line, Error: lineErr.Error()})
}

func (j *errorJournal) Close() error {
	return errors.Join(j.buf.Flush(), j.file.Close())
}
