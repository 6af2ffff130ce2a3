package worldid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testProof() Proof {
	return Proof{
		Proof:             "0xproof",
		MerkleRoot:        "0xroot",
		NullifierHash:     "0xnullifier",
		VerificationLevel: "orb",
		Signal:            "0xsignal",
	}
}

func TestVerifyAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/verify" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["app_id"] != "app_test" {
			t.Errorf("app_id = %s, want app_test", req["app_id"])
		}
		if req["action"] != "login" {
			t.Errorf("action = %s, want login", req["action"])
		}
		if req["nullifier_hash"] != "0xnullifier" {
			t.Errorf("nullifier_hash = %s", req["nullifier_hash"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "app_test", "", 5*time.Second)

	if err := c.Verify(context.Background(), testProof()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "code": "invalid_proof", "detail": "proof did not verify"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "app_test", "login", 5*time.Second)

	err := c.Verify(context.Background(), testProof())
	var rejection *VerificationError
	if !errors.As(err, &rejection) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
	if rejection.Code != "invalid_proof" {
		t.Errorf("code = %s, want invalid_proof", rejection.Code)
	}
}

func TestVerifyServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "app_test", "login", 5*time.Second)

	err := c.Verify(context.Background(), testProof())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestVerifyDefaultsVerificationLevel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["verification_level"] != "orb" {
			t.Errorf("verification_level = %s, want orb", req["verification_level"])
		}
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "app_test", "login", 5*time.Second)

	p := testProof()
	p.VerificationLevel = ""
	if err := c.Verify(context.Background(), p); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyRequiresAppID(t *testing.T) {
	c := NewClient("http://localhost", "", "login", 5*time.Second)

	if err := c.Verify(context.Background(), testProof()); err == nil {
		t.Fatal("expected error without app id")
	}
}
