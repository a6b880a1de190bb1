package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"trueAnalytics/internal/model"
)

// Header is the part of a Substrate header the tracker reads.
type Header struct {
	ParentHash string `json:"parentHash"`
	Number     string `json:"number"`
}

// BlockNumber decodes the hex-encoded header number.
func (h Header) BlockNumber() (uint64, error) {
	n, err := hexutil.DecodeUint64(h.Number)
	if err != nil {
		return 0, fmt.Errorf("header number %q: %w", h.Number, err)
	}
	return n, nil
}

// Client wraps a Substrate node's JSON-RPC endpoint.
type Client struct {
	rpcClient *rpc.Client

	mu        sync.RWMutex
	hashCache map[uint64]string
}

// NewClient dials the node's RPC URL (http or ws).
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return newClient(rpcClient), nil
}

func newClient(rpcClient *rpc.Client) *Client {
	return &Client{
		rpcClient: rpcClient,
		hashCache: make(map[uint64]string),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// FinalizedHead returns the hash of the latest finalized block.
func (c *Client) FinalizedHead(ctx context.Context) (string, error) {
	var hash string
	if err := c.rpcClient.CallContext(ctx, &hash, "chain_getFinalizedHead"); err != nil {
		return "", fmt.Errorf("chain_getFinalizedHead: %w", err)
	}
	return hash, nil
}

// Header returns the header of the block with the given hash.
func (c *Client) Header(ctx context.Context, hash string) (Header, error) {
	var header Header
	if err := c.rpcClient.CallContext(ctx, &header, "chain_getHeader", hash); err != nil {
		return Header{}, fmt.Errorf("chain_getHeader %s: %w", hash, err)
	}
	return header, nil
}

// BlockHash returns the canonical hash at a height, using an in-memory cache.
func (c *Client) BlockHash(ctx context.Context, number uint64) (string, error) {
	c.mu.RLock()
	hash, ok := c.hashCache[number]
	c.mu.RUnlock()
	if ok {
		return hash, nil
	}

	var raw *string
	if err := c.rpcClient.CallContext(ctx, &raw, "chain_getBlockHash", number); err != nil {
		return "", fmt.Errorf("chain_getBlockHash %d: %w", number, err)
	}
	if raw == nil || *raw == "" {
		return "", fmt.Errorf("chain_getBlockHash %d: block not found", number)
	}

	c.mu.Lock()
	c.hashCache[number] = *raw
	c.mu.Unlock()
	return *raw, nil
}

// FinalizedRef returns the number and hash of the latest finalized block.
func (c *Client) FinalizedRef(ctx context.Context) (model.BlockRef, error) {
	hash, err := c.FinalizedHead(ctx)
	if err != nil {
		return model.BlockRef{}, err
	}
	header, err := c.Header(ctx, hash)
	if err != nil {
		return model.BlockRef{}, err
	}
	number, err := header.BlockNumber()
	if err != nil {
		return model.BlockRef{}, err
	}
	return model.BlockRef{Number: number, Hash: hash}, nil
}
