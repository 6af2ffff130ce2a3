// Package client is the Go client for the Luna Predict payments API.
// It creates payment intents and polls them until the server reconciles
// the on-chain transfer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the server's view of a payment intent.
type PaymentStatus struct {
	ID              string           `json:"id"`
	Kind            string           `json:"kind"`
	Status          string           `json:"status"`
	ReceiverAddress string           `json:"receiver_address"`
	ExpectedAmount  decimal.Decimal  `json:"expected_amount"`
	ObservedAmount  *decimal.Decimal `json:"observed_amount,omitempty"`
	Network         string           `json:"network,omitempty"`
	CreditsToGrant  int64            `json:"credits_to_grant"`
	TxRef           string           `json:"tx_ref,omitempty"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	ExpiresAt       time.Time        `json:"expires_at"`
	VerifiedAt      *time.Time       `json:"verified_at,omitempty"`
}

// Settled reports whether the payment reached a terminal success state.
func (p *PaymentStatus) Settled() bool {
	return p.Status == "verified" || p.Status == "confirmed"
}

// Terminal reports whether no further transitions are possible.
func (p *PaymentStatus) Terminal() bool {
	switch p.Status {
	case "verified", "confirmed", "cancelled", "failed":
		return true
	}
	return false
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Retryable reports whether the request may succeed on a later attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client is the HTTP client for the payments API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a payments API client. token is the bearer access token
// of the paying user.
func NewClient(baseURL, token string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// InitSolana opens a native SOL payment intent for the given sender wallet.
func (c *Client) InitSolana(ctx context.Context, senderAddress string) (*PaymentStatus, error) {
	return c.post(ctx, "/api/v1/payment/init", map[string]string{
		"sender_address": senderAddress,
	})
}

// InitWorldcoin opens a WLD token payment intent. An empty network selects
// the server default.
func (c *Client) InitWorldcoin(ctx context.Context, network string) (*PaymentStatus, error) {
	body := map[string]string{}
	if network != "" {
		body["network"] = network
	}
	return c.post(ctx, "/api/v1/payment/worldcoin/init", body)
}

// VerifySolana asks the server to reconcile a SOL intent now.
func (c *Client) VerifySolana(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	return c.post(ctx, "/api/v1/payment/verify", map[string]string{
		"payment_id": paymentID,
	})
}

// VerifyWorldcoin submits a transaction hash for a WLD intent and asks the
// server to reconcile it.
func (c *Client) VerifyWorldcoin(ctx context.Context, paymentID, txHash string) (*PaymentStatus, error) {
	return c.post(ctx, "/api/v1/payment/worldcoin/verify", map[string]string{
		"payment_id": paymentID,
		"tx_hash":    txHash,
	})
}

func (c *Client) post(ctx context.Context, path string, reqBody interface{}) (*PaymentStatus, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "UNKNOWN", Message: "request failed"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}

	var status PaymentStatus
	if err := json.Unmarshal(env.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to decode payment: %w", err)
	}

	c.logger.Debug().Str("payment_id", status.ID).Str("status", status.Status).Msg("payment response")
	return &status, nil
}
