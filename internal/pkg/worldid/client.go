package worldid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// DefaultAction is the incognito action proofs are generated against when
// none is configured.
const DefaultAction = "login"

// ErrUnavailable marks transient upstream failures (network, 5xx, rate limit).
// Callers treat these as retryable.
var ErrUnavailable = errors.New("worldid unavailable")

// VerificationError is a definitive rejection from the Worldcoin developer
// API, e.g. an invalid proof or an already consumed nullifier.
type VerificationError struct {
	Code   string
	Detail string
}

func (e *VerificationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("worldid: proof rejected: %s (%s)", e.Detail, e.Code)
	}
	return fmt.Sprintf("worldid: proof rejected: %s", e.Code)
}

// Proof is a World ID zero-knowledge proof as submitted by World App.
type Proof struct {
	Proof             string
	MerkleRoot        string
	NullifierHash     string
	VerificationLevel string
	Signal            string
}

// Client verifies World ID proofs against the Worldcoin developer API.
type Client struct {
	baseURL string
	appID   string
	action  string
	http    *http.Client
}

// NewClient creates a new World ID verifier client.
func NewClient(baseURL, appID, action string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if action == "" {
		action = DefaultAction
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
		appID:   appID,
		action:  action,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

type verifyRequest struct {
	AppID             string `json:"app_id"`
	Action            string `json:"action"`
	Proof             string `json:"proof"`
	MerkleRoot        string `json:"merkle_root"`
	NullifierHash     string `json:"nullifier_hash"`
	VerificationLevel string `json:"verification_level"`
	Signal            string `json:"signal,omitempty"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Detail  string `json:"detail"`
}

// Verify submits the proof to the developer API. A nil error means the proof
// is valid for the configured app and action. Rejections come back as a
// *VerificationError.
func (c *Client) Verify(ctx context.Context, p Proof) error {
	if c.appID == "" {
		return fmt.Errorf("worldid: app id not configured")
	}

	level := p.VerificationLevel
	if level == "" {
		level = "orb"
	}

	body, err := json.Marshal(verifyRequest{
		AppID:             c.appID,
		Action:            c.action,
		Proof:             p.Proof,
		MerkleRoot:        p.MerkleRoot,
		NullifierHash:     p.NullifierHash,
		VerificationLevel: level,
		Signal:            p.Signal,
	})
	if err != nil {
		return fmt.Errorf("worldid: encode request: %w", err)
	}

	url := c.baseURL + "/api/v1/verify"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("worldid: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status=%d", ErrUnavailable, resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode == http.StatusOK {
			return fmt.Errorf("worldid: decode response: %w", err)
		}
		return &VerificationError{Code: fmt.Sprintf("status_%d", resp.StatusCode)}
	}

	if resp.StatusCode == http.StatusOK && out.Success {
		return nil
	}

	code := out.Code
	if code == "" {
		code = fmt.Sprintf("status_%d", resp.StatusCode)
	}
	return &VerificationError{Code: code, Detail: out.Detail}
}
