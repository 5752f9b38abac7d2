package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/chainsafe/tornado-prover/pkg/config"
)

// Backend is the subset of ethclient.Client used by the prover.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q geth.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, call geth.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Client represents an Ethereum client
type Client struct {
	backend Backend
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient dials the configured RPC endpoint
func NewClient(ctx context.Context, cfg *config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	c := NewClientWithBackend(rpc, cfg.RequestTimeout, logger)

	chainID, err := c.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, err
	}

	logger.Info("Connected to Ethereum",
		zap.Int64("chain_id", chainID),
		zap.String("rpc_url", cfg.RPCURL))

	return c, nil
}

// NewClientWithBackend wraps an existing backend. A zero timeout disables per-request deadlines.
func NewClientWithBackend(backend Backend, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{backend: backend, timeout: timeout, logger: logger}
}

// Close closes the underlying connection
func (c *Client) Close() {
	if c.backend != nil {
		c.backend.Close()
	}
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ChainID returns the network id reported by the node
func (c *Client) ChainID(ctx context.Context) (int64, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", err)
	}
	if !id.IsInt64() {
		return 0, fmt.Errorf("chain id %s out of range", id)
	}
	return id.Int64(), nil
}

// BlockNumber returns the current head block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	n, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return n, nil
}

// Instance binds a mixer contract at address
func (c *Client) Instance(address common.Address) (*Instance, error) {
	parsed, err := loadABI()
	if err != nil {
		return nil, err
	}
	return &Instance{client: c, address: address, abi: parsed}, nil
}
