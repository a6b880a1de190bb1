package decoder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trueAnalytics/internal/format"
	"trueAnalytics/internal/model"
)

// ErrorResolver resolves a pallet error code against runtime metadata.
type ErrorResolver interface {
	ResolveModuleError(ctx context.Context, moduleErr model.ModuleError) (model.MetaError, error)
}

// Outcome tells the caller what a decode produced.
type Outcome int

const (
	// OutcomeSkip means there is no event to forward.
	OutcomeSkip Outcome = iota
	// OutcomeOK carries a fully decoded event.
	OutcomeOK
	// OutcomeFallback carries a degraded event built from the raw payload.
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFallback:
		return "fallback"
	default:
		return "skip"
	}
}

// Result is the outcome of decoding one event. Err is set when a recognized
// event was skipped because of its shape.
type Result struct {
	Outcome Outcome
	Event   *model.DecodedEvent
	Err     error
}

// Decoded returns the event when the result carries one.
func (r Result) Decoded() (*model.DecodedEvent, bool) {
	if r.Outcome == OutcomeSkip || r.Event == nil {
		return nil, false
	}
	return r.Event, true
}

// Config configures a Decoder. A negative Decimals selects format.DefaultDecimals;
// zero formats balances as whole units.
type Config struct {
	Decimals int
	Resolver ErrorResolver
	Logger   *zap.Logger
}

// Decoder turns raw chain events into DecodedEvents.
type Decoder struct {
	decimals int
	resolver ErrorResolver
	logger   *zap.Logger
}

func New(cfg Config) *Decoder {
	if cfg.Decimals < 0 {
		cfg.Decimals = format.DefaultDecimals
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Decoder{
		decimals: cfg.Decimals,
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
	}
}

// Decode applies the rule registered for the event. Unsupported events and
// malformed payloads of supported events produce OutcomeSkip; it never panics.
func (d *Decoder) Decode(ctx context.Context, event model.RawChainEvent) (res Result) {
	key := DispatchKey(event.Section, event.Method)
	kind := kindByKey[key]
	if kind == KindUnknown {
		return Result{Outcome: OutcomeSkip}
	}

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("decode %s: panic: %v", key, p)
			d.logger.Error("decode event failed", zap.String("event", key), zap.Error(err))
			res = Result{Outcome: OutcomeSkip, Err: err}
		}
	}()

	r := rules[kind]
	var (
		params  []model.EventParameter
		outcome = OutcomeOK
		err     error
	)
	if kind == KindExtrinsicFailed {
		params, outcome = d.decodeExtrinsicFailed(ctx, event.Data)
	} else {
		params, err = d.decodeFields(r.fields, event.Data)
	}
	if err != nil {
		err = fmt.Errorf("decode %s: %w", key, err)
		d.logger.Warn("decode event failed", zap.String("event", key), zap.Error(err))
		return Result{Outcome: OutcomeSkip, Err: err}
	}

	return Result{
		Outcome: outcome,
		Event: &model.DecodedEvent{
			Name:       r.name,
			Section:    r.section,
			Parameters: params,
		},
	}
}

func (d *Decoder) decodeFields(fields []field, data map[string]any) ([]model.EventParameter, error) {
	params := make([]model.EventParameter, 0, len(fields))
	for _, f := range fields {
		raw, ok := data[f.key]
		if !ok {
			return nil, fmt.Errorf("missing field %q", f.key)
		}
		value, err := d.apply(f.transform, raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.key, err)
		}
		params = append(params, model.EventParameter{
			Name:        f.param,
			Value:       value,
			Description: f.description,
		})
	}
	return params, nil
}

func (d *Decoder) apply(t transform, raw any) (any, error) {
	switch t {
	case asText:
		return displayText(raw)
	case asBalance:
		value := format.BalanceValue(raw, d.decimals)
		if value == format.InvalidBalance {
			d.logger.Warn("invalid balance amount", zap.Any("raw", raw))
		}
		return value, nil
	case asList:
		return joinList(raw)
	case asJSON:
		return canonicalJSON(raw)
	case asAccount:
		return ResolveAccount(raw).Display(), nil
	default:
		return nil, fmt.Errorf("unknown transform %d", t)
	}
}
