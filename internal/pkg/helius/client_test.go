package helius

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/addresses/So11111111111111111111111111111111111111112/balances" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-key") != "test-key" {
			t.Errorf("missing api-key query param")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"nativeBalance": 1500000000}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)

	bal, err := c.Balance(context.Background(), "So11111111111111111111111111111111111111112")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !bal.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("balance = %s, want 1.5", bal)
	}
}

func TestRecentTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "10" {
			t.Errorf("limit = %s, want 10", r.URL.Query().Get("limit"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{
				"signature": "sig1",
				"timestamp": 1700000000,
				"accountData": [{"account": "sender1"}, {"account": "receiver1"}],
				"nativeTransfers": [
					{"fromUserAccount": "sender1", "toUserAccount": "receiver1", "amount": 50000000}
				]
			}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)

	txs, err := c.RecentTransactions(context.Background(), "receiver1", 10)
	if err != nil {
		t.Fatalf("RecentTransactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}

	tx := txs[0]
	if tx.Signature != "sig1" {
		t.Errorf("signature = %s, want sig1", tx.Signature)
	}
	if !tx.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("timestamp = %v", tx.Timestamp)
	}
	if !tx.Involves("sender1") || !tx.Involves("receiver1") {
		t.Errorf("participant check failed: %v", tx.Accounts)
	}
	if tx.Involves("stranger") {
		t.Errorf("non-participant reported as involved")
	}
	if len(tx.NativeTransfers) != 1 {
		t.Fatalf("got %d transfers, want 1", len(tx.NativeTransfers))
	}
	if !tx.NativeTransfers[0].Amount.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("transfer amount = %s, want 0.05", tx.NativeTransfers[0].Amount)
	}
}

func TestServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)

	_, err := c.Balance(context.Background(), "addr")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)

	_, err := c.Balance(context.Background(), "addr")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Errorf("4xx should not be retryable: %v", err)
	}
}

func TestValidateAddress(t *testing.T) {
	if !ValidateAddress("So11111111111111111111111111111111111111112") {
		t.Error("valid address rejected")
	}
	if ValidateAddress("not-a-solana-address!") {
		t.Error("invalid address accepted")
	}
	if ValidateAddress("") {
		t.Error("empty address accepted")
	}
}
