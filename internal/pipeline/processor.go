package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"trueAnalytics/internal/decoder"
	"trueAnalytics/internal/metrics"
	"trueAnalytics/internal/model"
)

// BlockQuerier fetches a finalized block's events and extrinsics.
type BlockQuerier interface {
	Block(ctx context.Context, ref model.BlockRef) (model.Block, error)
}

// BlockProcessor turns a block into the ordered list of supported, signed,
// decoded events it contains.
type BlockProcessor struct {
	querier BlockQuerier
	decoder *decoder.Decoder
	logger  *zap.Logger
	now     func() time.Time
}

// NewBlockProcessor builds a BlockProcessor and warns about whitelist entries
// the decoder has no rule for.
func NewBlockProcessor(querier BlockQuerier, dec *decoder.Decoder, logger *zap.Logger) *BlockProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, name := range UndecodableEvents() {
		logger.Warn("supported event has no decoder rule", zap.String("event", name))
	}
	return &BlockProcessor{
		querier: querier,
		decoder: dec,
		logger:  logger,
		now:     time.Now,
	}
}

// UndecodableEvents lists whitelisted events for which the decoder has no rule.
func UndecodableEvents() []string {
	var missing []string
	for _, name := range supportedEvents {
		section, method, ok := strings.Cut(name, ".")
		if !ok || decoder.KindOf(section, method) == decoder.KindUnknown {
			missing = append(missing, name)
		}
	}
	return missing
}

// Process fetches the block and returns its events in block order. Every
// event shares the wall-clock timestamp taken when Process was called.
func (p *BlockProcessor) Process(ctx context.Context, ref model.BlockRef) ([]model.BlockchainEvent, error) {
	if p.querier == nil {
		return nil, fmt.Errorf("block querier is nil")
	}
	if p.decoder == nil {
		return nil, fmt.Errorf("decoder is nil")
	}

	timestamp := p.now().UnixMilli()

	block, err := p.querier.Block(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch block %d (%s): %w", ref.Number, ref.Hash, err)
	}
	if block.Hash == "" {
		block.Hash = ref.Hash
	}
	if block.Number == 0 {
		block.Number = ref.Number
	}

	var events []model.BlockchainEvent
	for i, record := range block.Events {
		formatted, ok := p.formatEvent(ctx, block, i, record)
		if !ok {
			continue
		}
		events = append(events, model.BlockchainEvent{
			BlockHash:   block.Hash,
			BlockNumber: block.Number,
			EventIndex:  formatted.Index,
			Timestamp:   timestamp,
			Type:        formatted.Section,
			EventName:   formatted.Name,
			Signer:      formatted.Signer,
			Parameters:  formatted.Parameters,
		})
		metrics.EventsEmitted.WithLabelValues(formatted.Name).Inc()
	}

	p.logger.Debug("block processed",
		zap.Uint64("block_number", block.Number),
		zap.String("block_hash", block.Hash),
		zap.Int("raw_events", len(block.Events)),
		zap.Int("events", len(events)),
	)
	return events, nil
}

func (p *BlockProcessor) formatEvent(ctx context.Context, block model.Block, index int, record model.EventRecord) (model.FormattedEventWithSigner, bool) {
	name := record.Event.FullName()
	if !IsSupported(name) {
		metrics.EventsSkipped.WithLabelValues(metrics.SkipFiltered).Inc()
		return model.FormattedEventWithSigner{}, false
	}
	if record.Phase.Kind != model.PhaseApplyExtrinsic {
		metrics.EventsSkipped.WithLabelValues(metrics.SkipPhase).Inc()
		return model.FormattedEventWithSigner{}, false
	}

	extIndex := record.Phase.ExtrinsicIndex
	if extIndex < 0 || extIndex >= len(block.Extrinsics) || block.Extrinsics[extIndex].Signer == "" {
		p.logger.Debug("event without signed extrinsic",
			zap.String("event", name),
			zap.Uint64("block_number", block.Number),
			zap.Int("extrinsic_index", extIndex),
		)
		metrics.EventsSkipped.WithLabelValues(metrics.SkipUnsigned).Inc()
		return model.FormattedEventWithSigner{}, false
	}

	res := p.decoder.Decode(ctx, record.Event)
	decoded, ok := res.Decoded()
	if !ok {
		metrics.EventsSkipped.WithLabelValues(metrics.SkipUndecodable).Inc()
		return model.FormattedEventWithSigner{}, false
	}
	if res.Outcome == decoder.OutcomeFallback {
		metrics.DecodeFallbacks.WithLabelValues(decoded.Name).Inc()
	}

	return model.FormattedEventWithSigner{
		DecodedEvent: *decoded,
		Signer:       block.Extrinsics[extIndex].Signer,
		Index:        index,
	}, true
}
