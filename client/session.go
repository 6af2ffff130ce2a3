package client

import (
	"context"
	"errors"
	"time"
)

// Session defaults match the server's two minute payment window.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultBudget       = 2 * time.Minute
	DefaultMaxPolls     = 12
)

// State is the client-side lifecycle of a payment session.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingTransfer State = "awaiting_transfer"
	StatePolling          State = "polling"
	StateSucceeded        State = "succeeded"
	StateTimedOut         State = "timed_out"
	StateCancelled        State = "cancelled"
	StateFailed           State = "failed"
)

var (
	// ErrTimedOut means the poll budget ran out before the server settled
	// the payment. The intent may still settle on a later manual verify.
	ErrTimedOut = errors.New("payment session timed out")

	// ErrPaymentFailed means the server moved the intent to a terminal
	// failure state (cancelled or failed).
	ErrPaymentFailed = errors.New("payment failed")

	ErrNotStarted = errors.New("session not started")
)

// Session drives one payment intent from creation to settlement. It is not
// safe for concurrent use.
type Session struct {
	client   *Client
	interval time.Duration
	budget   time.Duration
	maxPolls int

	state   State
	payment *PaymentStatus
	txHash  string // WLD only
}

// NewSession creates a payment session with the default polling policy.
func NewSession(c *Client) *Session {
	return &Session{
		client:   c,
		interval: DefaultPollInterval,
		budget:   DefaultBudget,
		maxPolls: DefaultMaxPolls,
		state:    StateIdle,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Payment returns the last server view of the intent, nil before Start.
func (s *Session) Payment() *PaymentStatus { return s.payment }

// StartSolana opens a SOL intent. The caller then sends the transfer from
// senderAddress and calls Await.
func (s *Session) StartSolana(ctx context.Context, senderAddress string) (*PaymentStatus, error) {
	p, err := s.client.InitSolana(ctx, senderAddress)
	if err != nil {
		return nil, err
	}
	s.payment = p
	s.state = StateAwaitingTransfer
	return p, nil
}

// StartWorldcoin opens a WLD intent. The caller then sends the token
// transfer, calls SubmitHash with the resulting hash and calls Await.
func (s *Session) StartWorldcoin(ctx context.Context, network string) (*PaymentStatus, error) {
	p, err := s.client.InitWorldcoin(ctx, network)
	if err != nil {
		return nil, err
	}
	s.payment = p
	s.state = StateAwaitingTransfer
	return s.payment, nil
}

// SubmitHash records the transaction hash Await will verify against.
func (s *Session) SubmitHash(txHash string) {
	s.txHash = txHash
}

// Await polls the server until the intent settles, fails, or the poll
// budget runs out. Cancelling ctx stops the loop early.
func (s *Session) Await(ctx context.Context) (*PaymentStatus, error) {
	if s.payment == nil {
		return nil, ErrNotStarted
	}

	s.state = StatePolling
	deadline := time.Now().Add(s.budget)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for polls := 0; polls < s.maxPolls; polls++ {
		p, err := s.verify(ctx)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Retryable() {
				// Oracle hiccup on the server side, keep polling.
				s.client.logger.Warn().Err(err).Msg("verify attempt failed, retrying")
			} else {
				s.state = StateFailed
				return s.payment, err
			}
		} else {
			s.payment = p
			if p.Settled() {
				s.state = StateSucceeded
				return p, nil
			}
			if p.Terminal() {
				s.state = StateFailed
				return p, ErrPaymentFailed
			}
		}

		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			// A deadline on ctx is a timeout, an explicit cancel is not.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				s.state = StateTimedOut
			} else {
				s.state = StateCancelled
			}
			return s.payment, ctx.Err()
		case <-ticker.C:
		}
	}

	s.state = StateTimedOut
	return s.payment, ErrTimedOut
}

func (s *Session) verify(ctx context.Context) (*PaymentStatus, error) {
	if s.payment.Kind == "wld" {
		return s.client.VerifyWorldcoin(ctx, s.payment.ID, s.txHash)
	}
	return s.client.VerifySolana(ctx, s.payment.ID)
}
