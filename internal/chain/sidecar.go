package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"trueAnalytics/internal/model"
)

// SidecarConfig configures the Substrate API Sidecar client.
type SidecarConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	EventFields  FieldNames
	Logger       *zap.Logger
}

// Sidecar reads blocks and pallet state from a Substrate API Sidecar.
type Sidecar struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	backoff    time.Duration
	fields     FieldNames
	logger     *zap.Logger
}

func NewSidecar(cfg SidecarConfig) (*Sidecar, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("sidecar url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("sidecar url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.EventFields == nil {
		cfg.EventFields = DefaultEventFields()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Sidecar{
		baseURL:    base,
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		fields:     cfg.EventFields,
		logger:     cfg.Logger,
	}, nil
}

// Block fetches the block by hash, or by number when the hash is unknown.
func (s *Sidecar) Block(ctx context.Context, ref model.BlockRef) (model.Block, error) {
	id := ref.Hash
	if id == "" {
		id = strconv.FormatUint(ref.Number, 10)
	}

	var raw sidecarBlock
	if err := s.getJSON(ctx, "/blocks/"+url.PathEscape(id), nil, &raw); err != nil {
		return model.Block{}, err
	}
	block, err := raw.toBlock(s.fields)
	if err != nil {
		return model.Block{}, fmt.Errorf("block %s: %w", id, err)
	}
	return block, nil
}

// getJSON GETs path and decodes the body into out, retrying transient failures.
func (s *Sidecar) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return withRetry(ctx, s.maxRetries, s.backoff, func(ctx context.Context) error {
		err := s.fetch(ctx, endpoint, out)
		if err != nil {
			s.logger.Warn("sidecar request failed", zap.String("url", endpoint), zap.Error(err))
		}
		return err
	})
}

func (s *Sidecar) fetch(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("GET %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return permanent(err)
		}
		return err
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return permanent(fmt.Errorf("decode %s: %w", endpoint, err))
	}
	return nil
}

type sidecarBlock struct {
	Number       string             `json:"number"`
	Hash         string             `json:"hash"`
	OnInitialize sidecarHook        `json:"onInitialize"`
	Extrinsics   []sidecarExtrinsic `json:"extrinsics"`
	OnFinalize   sidecarHook        `json:"onFinalize"`
}

type sidecarHook struct {
	Events []sidecarEvent `json:"events"`
}

type sidecarMethod struct {
	Pallet string `json:"pallet"`
	Method string `json:"method"`
}

type sidecarEvent struct {
	Method sidecarMethod `json:"method"`
	Data   any           `json:"data"`
}

type sidecarExtrinsic struct {
	Method    sidecarMethod     `json:"method"`
	Signature *sidecarSignature `json:"signature"`
	Events    []sidecarEvent    `json:"events"`
}

type sidecarSignature struct {
	Signer json.RawMessage `json:"signer"`
}

// signer accepts both {"id": "..."} and a bare address string.
func (s *sidecarSignature) signer() string {
	if s == nil || len(s.Signer) == 0 {
		return ""
	}
	var account struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(s.Signer, &account); err == nil && account.ID != "" {
		return account.ID
	}
	var bare string
	if err := json.Unmarshal(s.Signer, &bare); err == nil {
		return bare
	}
	return ""
}

// toBlock flattens the hook and extrinsic event lists into one ordered list
// with phases, matching the order of System.Events.
func (b sidecarBlock) toBlock(fields FieldNames) (model.Block, error) {
	number, err := strconv.ParseUint(b.Number, 10, 64)
	if err != nil {
		return model.Block{}, fmt.Errorf("block number %q: %w", b.Number, err)
	}

	block := model.Block{
		Number:     number,
		Hash:       b.Hash,
		Extrinsics: make([]model.Extrinsic, 0, len(b.Extrinsics)),
	}
	for _, ev := range b.OnInitialize.Events {
		block.Events = append(block.Events, model.EventRecord{
			Event: ev.toRaw(fields),
			Phase: model.Phase{Kind: model.PhaseInitialization},
		})
	}
	for i, ext := range b.Extrinsics {
		block.Extrinsics = append(block.Extrinsics, model.Extrinsic{Signer: ext.Signature.signer()})
		for _, ev := range ext.Events {
			block.Events = append(block.Events, model.EventRecord{
				Event: ev.toRaw(fields),
				Phase: model.ApplyExtrinsic(i),
			})
		}
	}
	for _, ev := range b.OnFinalize.Events {
		block.Events = append(block.Events, model.EventRecord{
			Event: ev.toRaw(fields),
			Phase: model.Phase{Kind: model.PhaseFinalization},
		})
	}
	return block, nil
}

func (e sidecarEvent) toRaw(fields FieldNames) model.RawChainEvent {
	raw := model.RawChainEvent{Section: e.Method.Pallet, Method: e.Method.Method}
	switch data := e.Data.(type) {
	case []any:
		raw.Data = fields.Name(raw.FullName(), data)
	case map[string]any:
		raw.Data = data
	default:
		raw.Data = map[string]any{}
	}
	return raw
}
