package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trueAnalytics/internal/analytics"
	"trueAnalytics/internal/config"
	"trueAnalytics/internal/sink"
)

// buildSink opens every configured sink. The returned close function releases
// their connections.
func buildSink(ctx context.Context, cfg config.SinkConfig, httpTimeout time.Duration, logger *zap.Logger) (analytics.Sink, func(), error) {
	var (
		sinks   sink.Fanout
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkMixpanel:
			mp, err := sink.NewMixpanel(cfg.MixpanelToken, cfg.MixpanelAPIURL, httpTimeout)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, mp)
		case config.SinkPostgres:
			pg, err := sink.NewPostgres(ctx, cfg.PGDSN)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("connect postgres: %w", err)
			}
			closers = append(closers, pg.Close)
			if err := pg.EnsureSchema(ctx); err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, pg)
		case config.SinkJSONL:
			sinks = append(sinks, sink.NewJSONL(cfg.Out))
		case config.SinkNATS:
			ns, err := sink.NewNATS(cfg.NATSURL, cfg.NATSStream, cfg.NATSSubject, logger)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, ns.Close)
			sinks = append(sinks, ns)
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown sink %q", name)
		}
		logger.Info("sink enabled", zap.String("sink", name))
	}

	if len(sinks) == 1 {
		return sinks[0], closeAll, nil
	}
	return sinks, closeAll, nil
}
