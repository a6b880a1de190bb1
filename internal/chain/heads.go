package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trueAnalytics/internal/model"
)

const (
	subscribeMethod    = "chain_subscribeFinalizedHeads"
	notificationMethod = "chain_finalizedHead"
)

// HashResolver returns the canonical hash at a height.
type HashResolver interface {
	BlockHash(ctx context.Context, number uint64) (string, error)
}

// HeadsConfig configures a HeadSubscriber.
type HeadsConfig struct {
	URL            string
	MaxGap         uint64
	ReconnectDelay time.Duration
	MaxReconnects  int
	Logger         *zap.Logger
}

// HeadSubscriber follows finalized heads over a node websocket. Heights the
// node skipped between notifications are filled in, up to MaxGap per gap.
type HeadSubscriber struct {
	cfg    HeadsConfig
	hashes HashResolver
	dialer *websocket.Dialer
	logger *zap.Logger
}

func NewHeadSubscriber(cfg HeadsConfig, hashes HashResolver) *HeadSubscriber {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &HeadSubscriber{
		cfg:    cfg,
		hashes: hashes,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: cfg.Logger,
	}
}

type rpcRequest struct {
	ID      int    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcMessage struct {
	ID     *int            `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Params *struct {
		Subscription string `json:"subscription"`
		Result       Header `json:"result"`
	} `json:"params,omitempty"`
}

// Heads starts the subscription. Refs are delivered in ascending order; the
// error channel receives one value when reconnecting has been given up.
func (s *HeadSubscriber) Heads(ctx context.Context) (<-chan model.BlockRef, <-chan error) {
	refs := make(chan model.BlockRef, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(refs)
		if err := s.run(ctx, refs); err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()
	return refs, errs
}

func (s *HeadSubscriber) run(ctx context.Context, refs chan<- model.BlockRef) error {
	var last uint64
	failures := 0
	for {
		err := s.follow(ctx, &last, refs, func() { failures = 0 })
		if ctx.Err() != nil {
			return nil
		}
		failures++
		if failures > s.cfg.MaxReconnects {
			return fmt.Errorf("finalized heads: giving up after %d attempts: %w", failures, err)
		}
		s.logger.Warn("finalized heads subscription lost",
			zap.Error(err),
			zap.Int("attempt", failures),
			zap.Duration("retry_in", s.cfg.ReconnectDelay),
		)

		timer := time.NewTimer(s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// follow holds one websocket connection until it fails or ctx ends.
func (s *HeadSubscriber) follow(ctx context.Context, last *uint64, refs chan<- model.BlockRef, subscribed func()) error {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(rpcRequest{ID: 1, JSONRPC: "2.0", Method: subscribeMethod, Params: []any{}}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for {
		var msg rpcMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch {
		case msg.Error != nil:
			return fmt.Errorf("subscribe: rpc error %d: %s", msg.Error.Code, msg.Error.Message)
		case msg.ID != nil:
			s.logger.Info("finalized heads subscribed", zap.String("subscription", string(msg.Result)))
			subscribed()
		case msg.Method == notificationMethod && msg.Params != nil:
			number, err := msg.Params.Result.BlockNumber()
			if err != nil {
				s.logger.Warn("bad finalized head", zap.Error(err))
				continue
			}
			if err := s.emit(ctx, last, number, refs); err != nil {
				return err
			}
		}
	}
}

// emit sends every height after *last up to number, oldest first.
func (s *HeadSubscriber) emit(ctx context.Context, last *uint64, number uint64, refs chan<- model.BlockRef) error {
	if *last != 0 && number <= *last {
		return nil
	}

	from := number
	if *last != 0 {
		from = *last + 1
		if s.cfg.MaxGap > 0 && number-from > s.cfg.MaxGap {
			skipped := number - from - s.cfg.MaxGap
			s.logger.Warn("finalized gap too large, skipping blocks",
				zap.Uint64("from", from),
				zap.Uint64("to", number),
				zap.Uint64("skipped", skipped),
			)
			from += skipped
		}
	}

	for n := from; n <= number; n++ {
		hash, err := s.hashes.BlockHash(ctx, n)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.logger.Error("resolve block hash failed", zap.Uint64("block_number", n), zap.Error(err))
			continue
		}
		select {
		case refs <- model.BlockRef{Number: n, Hash: hash}:
			*last = n
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	*last = number
	return nil
}
