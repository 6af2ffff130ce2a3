package evmrpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// Supported networks for token payment verification.
const (
	NetworkWorldChain = "world-chain"
	NetworkOptimism   = "optimism"
)

var (
	// ErrTxNotFound means the hash resolves to no known transaction on the network.
	ErrTxNotFound = errors.New("transaction not found")

	// ErrUnavailable marks transient RPC failures. Callers treat these as retryable.
	ErrUnavailable = errors.New("rpc unavailable")
)

// erc20TransferID is the 4-byte selector of transfer(address,uint256).
var erc20TransferID = []byte{0xa9, 0x05, 0x9c, 0xbb}

// TokenTransfer is a decoded ERC-20 transfer call.
type TokenTransfer struct {
	Token     common.Address
	Recipient common.Address
	Amount    decimal.Decimal // token units, 18 decimals applied
}

// Client resolves transactions across the configured EVM networks.
// Connections are dialed lazily and reused.
type Client struct {
	endpoints map[string]string

	mu    sync.Mutex
	conns map[string]*ethclient.Client
}

// NewClient creates a client over a network name to RPC URL mapping.
func NewClient(endpoints map[string]string) *Client {
	return &Client{
		endpoints: endpoints,
		conns:     make(map[string]*ethclient.Client),
	}
}

func (c *Client) conn(network string) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ec, ok := c.conns[network]; ok {
		return ec, nil
	}

	url, ok := c.endpoints[network]
	if !ok || url == "" {
		return nil, fmt.Errorf("unsupported network: %s", network)
	}

	ec, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnavailable, network, err)
	}
	c.conns[network] = ec
	return ec, nil
}

// TransactionByHash fetches a transaction on the given network.
// Returns ErrTxNotFound when the hash is unknown.
func (c *Client) TransactionByHash(ctx context.Context, network, hash string) (*types.Transaction, bool, error) {
	ec, err := c.conn(network)
	if err != nil {
		return nil, false, err
	}

	tx, pending, err := ec.TransactionByHash(ctx, common.HexToHash(hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, false, ErrTxNotFound
		}
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tx, pending, nil
}

// Close releases all dialed connections.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ec := range c.conns {
		ec.Close()
	}
	c.conns = make(map[string]*ethclient.Client)
}

// ValidTxHash reports whether s looks like a 32-byte hex transaction hash.
func ValidTxHash(s string) bool {
	if len(s) != 66 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// DecodeTransfer decodes an ERC-20 transfer(address,uint256) call from a transaction.
// Returns false when the transaction is not a plain token transfer.
func DecodeTransfer(tx *types.Transaction) (TokenTransfer, bool) {
	if tx.To() == nil {
		return TokenTransfer{}, false
	}

	data := tx.Data()
	if len(data) != 68 || !bytes.Equal(data[:4], erc20TransferID) {
		return TokenTransfer{}, false
	}

	amount := new(big.Int).SetBytes(data[36:68])
	return TokenTransfer{
		Token:     *tx.To(),
		Recipient: common.BytesToAddress(data[16:36]),
		Amount:    decimal.NewFromBigInt(amount, -18),
	}, true
}
