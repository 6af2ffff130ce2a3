package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func paymentServer(t *testing.T, verifyStatuses []string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var verifies atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/payment/init", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"code": "UNAUTHORIZED", "message": "unauthorized"},
			})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"id": "pay-1", "kind": "sol", "status": "pending",
				"receiver_address": "recv", "expected_amount": "0.1", "credits_to_grant": 5,
			},
		})
	})
	mux.HandleFunc("/api/v1/payment/verify", func(w http.ResponseWriter, r *http.Request) {
		n := int(verifies.Add(1))
		status := verifyStatuses[len(verifyStatuses)-1]
		if n <= len(verifyStatuses) {
			status = verifyStatuses[n-1]
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"id": "pay-1", "kind": "sol", "status": status,
				"receiver_address": "recv", "expected_amount": "0.1", "credits_to_grant": 5,
			},
		})
	})
	return httptest.NewServer(mux), &verifies
}

func fastSession(c *Client) *Session {
	s := NewSession(c)
	s.interval = 5 * time.Millisecond
	s.budget = 200 * time.Millisecond
	s.maxPolls = 5
	return s
}

func TestSessionSettles(t *testing.T) {
	srv, verifies := paymentServer(t, []string{"pending", "pending", "verified"})
	defer srv.Close()

	c := NewClient(srv.URL, "test-token", nil, zerolog.Nop())
	s := fastSession(c)

	p, err := s.StartSolana(context.Background(), "sender")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.State() != StateAwaitingTransfer || p.Status != "pending" {
		t.Fatalf("after start: state=%s status=%s", s.State(), p.Status)
	}

	p, err = s.Await(context.Background())
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if p.Status != "verified" || s.State() != StateSucceeded {
		t.Errorf("status=%s state=%s, want verified/succeeded", p.Status, s.State())
	}
	if got := verifies.Load(); got != 3 {
		t.Errorf("verify calls = %d, want 3", got)
	}
}

func TestSessionTimesOut(t *testing.T) {
	srv, verifies := paymentServer(t, []string{"pending"})
	defer srv.Close()

	c := NewClient(srv.URL, "test-token", nil, zerolog.Nop())
	s := fastSession(c)

	if _, err := s.StartSolana(context.Background(), "sender"); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := s.Await(context.Background())
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if s.State() != StateTimedOut {
		t.Errorf("state = %s, want timed_out", s.State())
	}
	if got := verifies.Load(); got != 5 {
		t.Errorf("verify calls = %d, want poll cap of 5", got)
	}
}

func TestSessionFailsOnTerminalFailure(t *testing.T) {
	srv, _ := paymentServer(t, []string{"pending", "cancelled"})
	defer srv.Close()

	c := NewClient(srv.URL, "test-token", nil, zerolog.Nop())
	s := fastSession(c)

	if _, err := s.StartSolana(context.Background(), "sender"); err != nil {
		t.Fatalf("start: %v", err)
	}

	p, err := s.Await(context.Background())
	if !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}
	if p.Status != "cancelled" || s.State() != StateFailed {
		t.Errorf("status=%s state=%s, want cancelled/failed", p.Status, s.State())
	}
}

func TestSessionContextCancel(t *testing.T) {
	srv, _ := paymentServer(t, []string{"pending"})
	defer srv.Close()

	c := NewClient(srv.URL, "test-token", nil, zerolog.Nop())
	s := fastSession(c)
	s.interval = time.Hour // force the cancel branch

	if _, err := s.StartSolana(context.Background(), "sender"); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := s.Await(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.State() != StateCancelled {
		t.Errorf("state = %s, want cancelled", s.State())
	}
}

func TestSessionContextDeadline(t *testing.T) {
	srv, _ := paymentServer(t, []string{"pending"})
	defer srv.Close()

	c := NewClient(srv.URL, "test-token", nil, zerolog.Nop())
	s := fastSession(c)
	s.interval = time.Hour

	if _, err := s.StartSolana(context.Background(), "sender"); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Await(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if s.State() != StateTimedOut {
		t.Errorf("state = %s, want timed_out", s.State())
	}
}

func TestSessionAwaitBeforeStart(t *testing.T) {
	c := NewClient("http://localhost:0", "t", nil, zerolog.Nop())

	_, err := NewSession(c).Await(context.Background())
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestClientUnauthorized(t *testing.T) {
	srv, _ := paymentServer(t, []string{"pending"})
	defer srv.Close()

	c := NewClient(srv.URL, "wrong-token", nil, zerolog.Nop())

	_, err := c.InitSolana(context.Background(), "sender")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Retryable() {
		t.Errorf("got %+v, want non-retryable 401", apiErr)
	}
}
