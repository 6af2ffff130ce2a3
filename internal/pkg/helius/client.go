package helius

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 10 * time.Second

// ErrUnavailable marks transient upstream failures (network, 5xx, rate limit).
// Callers treat these as retryable.
var ErrUnavailable = errors.New("helius unavailable")

var lamportsPerSOL = decimal.NewFromUint64(solana.LAMPORTS_PER_SOL)

// NativeTransfer is a single SOL movement inside a transaction.
type NativeTransfer struct {
	From   string
	To     string
	Amount decimal.Decimal // SOL
}

// Transaction is an enhanced transaction as reported for an address.
type Transaction struct {
	Signature       string
	Timestamp       time.Time
	Accounts        []string
	NativeTransfers []NativeTransfer
}

// Involves reports whether the given address is a participant of the transaction.
func (t *Transaction) Involves(address string) bool {
	for _, a := range t.Accounts {
		if a == address {
			return true
		}
	}
	return false
}

// Client wraps the Helius balance and enhanced-transaction APIs.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a new Helius client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// ValidateAddress reports whether s is a well-formed Solana public key.
func ValidateAddress(s string) bool {
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}

type balancesResponse struct {
	NativeBalance int64 `json:"nativeBalance"` // lamports
}

// Balance returns the native SOL balance of an address.
func (c *Client) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/v0/addresses/%s/balances?api-key=%s", c.baseURL, address, c.apiKey)

	var out balancesResponse
	if err := c.getJSON(ctx, url, &out); err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromInt(out.NativeBalance).Div(lamportsPerSOL), nil
}

type enhancedTransaction struct {
	Signature   string `json:"signature"`
	Timestamp   int64  `json:"timestamp"` // unix seconds
	AccountData []struct {
		Account string `json:"account"`
	} `json:"accountData"`
	NativeTransfers []struct {
		FromUserAccount string `json:"fromUserAccount"`
		ToUserAccount   string `json:"toUserAccount"`
		Amount          int64  `json:"amount"` // lamports
	} `json:"nativeTransfers"`
}

// RecentTransactions returns the most recent enhanced transactions for an address,
// newest first, up to limit.
func (c *Client) RecentTransactions(ctx context.Context, address string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	url := fmt.Sprintf("%s/v0/addresses/%s/transactions?api-key=%s&limit=%d", c.baseURL, address, c.apiKey, limit)

	var raw []enhancedTransaction
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	txs := make([]Transaction, 0, len(raw))
	for _, rt := range raw {
		tx := Transaction{
			Signature: rt.Signature,
			Timestamp: time.Unix(rt.Timestamp, 0),
		}
		for _, acc := range rt.AccountData {
			tx.Accounts = append(tx.Accounts, acc.Account)
		}
		for _, nt := range rt.NativeTransfers {
			tx.NativeTransfers = append(tx.NativeTransfers, NativeTransfer{
				From:   nt.FromUserAccount,
				To:     nt.ToUserAccount,
				Amount: decimal.NewFromInt(nt.Amount).Div(lamportsPerSOL),
			})
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("helius: api key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("helius: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, string(body))
		}
		return fmt.Errorf("helius: status=%d body=%s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("helius: decode response: %w", err)
	}
	return nil
}
