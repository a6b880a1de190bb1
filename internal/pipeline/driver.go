package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trueAnalytics/internal/metrics"
	"trueAnalytics/internal/model"
)

// HeadSource delivers finalized block refs in order. A value on the error
// channel ends the stream.
type HeadSource interface {
	Heads(ctx context.Context) (<-chan model.BlockRef, <-chan error)
}

// Dispatcher forwards one event to the analytics sink. It contains its own failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, event model.BlockchainEvent)
}

// Processor is the block-to-events step of the driver.
type Processor interface {
	Process(ctx context.Context, ref model.BlockRef) ([]model.BlockchainEvent, error)
}

// Driver runs the subscription loop: one block at a time, every event of a
// block dispatched before the next block is taken.
type Driver struct {
	heads      HeadSource
	processor  Processor
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewDriver builds a Driver with its dependencies.
func NewDriver(heads HeadSource, processor Processor, dispatcher Dispatcher, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		heads:      heads,
		processor:  processor,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run consumes heads until ctx is cancelled, the source closes, or the source
// reports an error. Cancellation returns nil.
func (d *Driver) Run(ctx context.Context) error {
	if d.heads == nil {
		return fmt.Errorf("head source is nil")
	}
	if d.processor == nil {
		return fmt.Errorf("processor is nil")
	}
	if d.dispatcher == nil {
		return fmt.Errorf("dispatcher is nil")
	}

	refs, errs := d.heads.Heads(ctx)
	d.logger.Info("subscription started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("subscription stopped")
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return d.streamFailure(ctx, err)
		case ref, ok := <-refs:
			if !ok {
				// A source may report its failure and close refs together.
				select {
				case err, ok := <-errs:
					if ok && err != nil {
						return d.streamFailure(ctx, err)
					}
				default:
				}
				d.logger.Info("head stream closed")
				return nil
			}
			d.handleBlock(ctx, ref)
		}
	}
}

func (d *Driver) streamFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("head stream: %w", err)
}

func (d *Driver) handleBlock(ctx context.Context, ref model.BlockRef) {
	start := time.Now()
	defer func() {
		metrics.BlockLatency.Observe(time.Since(start).Seconds())
	}()

	events, err := d.processor.Process(ctx, ref)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.BlockErrors.Inc()
		d.logger.Error("process block failed",
			zap.Uint64("block_number", ref.Number),
			zap.String("block_hash", ref.Hash),
			zap.Error(err),
		)
		return
	}

	for _, event := range events {
		d.dispatcher.Dispatch(ctx, event)
	}
	metrics.BlocksProcessed.Inc()

	if len(events) > 0 {
		d.logger.Info("block dispatched",
			zap.Uint64("block_number", ref.Number),
			zap.String("block_hash", ref.Hash),
			zap.Int("events", len(events)),
		)
	}
}
