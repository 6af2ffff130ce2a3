package payment_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lunapredict/luna-api/internal/domain/payment"
	"github.com/lunapredict/luna-api/internal/middleware"
	"github.com/lunapredict/luna-api/internal/pkg/helius"
	"github.com/lunapredict/luna-api/internal/pkg/response"
)

func authedRequest(method, path, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var env response.Response
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestInitSolanaInsufficientFundsDetails(t *testing.T) {
	oracle := &fakeSolanaOracle{balance: decimal.RequireFromString("0.05")}
	svc := payment.NewService(newFakeStore(), oracle, &fakeTokenOracle{}, testConfig())
	h := payment.NewHandler(svc)

	body := fmt.Sprintf(`{"sender_address": %q}`, testSender)
	rec := httptest.NewRecorder()
	h.InitSolana(rec, authedRequest(http.MethodPost, "/init", body, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	if env.Error == nil {
		t.Fatal("expected error envelope")
	}
	if env.Error.Code != "INSUFFICIENT_FUNDS" {
		t.Errorf("code = %s, want INSUFFICIENT_FUNDS", env.Error.Code)
	}
	if env.Error.Details["required"] != "0.1" {
		t.Errorf("details.required = %s, want 0.1", env.Error.Details["required"])
	}
	if env.Error.Details["available"] != "0.05" {
		t.Errorf("details.available = %s, want 0.05", env.Error.Details["available"])
	}
}

func TestVerifySolanaOracleDownReturnsBadGateway(t *testing.T) {
	store := newFakeStore()
	oracle := &fakeSolanaOracle{balance: decimal.RequireFromString("1")}
	svc := payment.NewService(store, oracle, &fakeTokenOracle{}, testConfig())
	h := payment.NewHandler(svc)
	userID := uuid.New()

	intent, err := svc.InitSolana(context.Background(), userID, testSender)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	oracle.err = fmt.Errorf("%w: connection refused", helius.ErrUnavailable)

	body := fmt.Sprintf(`{"payment_id": %q}`, intent.ID)
	rec := httptest.NewRecorder()
	h.VerifySolana(rec, authedRequest(http.MethodPost, "/verify", body, userID))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

type expireErrorStore struct {
	*fakeStore
}

func (s *expireErrorStore) MarkCancelled(_ context.Context, _ uuid.UUID, _ string) (bool, error) {
	return false, fmt.Errorf("connection reset")
}

func TestVerifySolanaStoreErrorIsNotOK(t *testing.T) {
	store := &expireErrorStore{fakeStore: newFakeStore()}
	oracle := &fakeSolanaOracle{balance: decimal.RequireFromString("1")}
	svc := payment.NewService(store, oracle, &fakeTokenOracle{}, testConfig())
	h := payment.NewHandler(svc)
	userID := uuid.New()

	intent, err := svc.InitSolana(context.Background(), userID, testSender)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	store.expire(intent.ID)
	oracle.txs = []helius.Transaction{solTransfer("0.1")}

	body := fmt.Sprintf(`{"payment_id": %q}`, intent.ID)
	rec := httptest.NewRecorder()
	h.VerifySolana(rec, authedRequest(http.MethodPost, "/verify", body, userID))

	if rec.Code == http.StatusOK {
		t.Fatalf("store failure must not report a clean intent, got 200")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if store.granted(intent.ID) != 0 {
		t.Errorf("granted = %d, want 0", store.granted(intent.ID))
	}
}
