package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lunapredict/luna-api/internal/middleware"
	"github.com/lunapredict/luna-api/internal/pkg/response"
	"github.com/lunapredict/luna-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) InitSolana(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req InitSolanaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	intent, err := h.svc.InitSolana(r.Context(), userID, req.SenderAddress)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, ToIntentResponse(intent))
}

func (h *Handler) InitWorldcoin(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req InitWorldcoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	intent, err := h.svc.InitWorldcoin(r.Context(), userID, req.Network)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, ToIntentResponse(intent))
}

func (h *Handler) VerifySolana(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}
	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		response.BadRequest(w, "invalid payment_id")
		return
	}

	intent, err := h.svc.VerifySolana(r.Context(), userID, paymentID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, ToIntentResponse(intent))
}

func (h *Handler) VerifyWorldcoin(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req VerifyWorldcoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}
	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		response.BadRequest(w, "invalid payment_id")
		return
	}

	intent, err := h.svc.VerifyWorldcoin(r.Context(), userID, paymentID, req.TxHash)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, ToIntentResponse(intent))
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	paymentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid payment id")
		return
	}

	intent, err := h.svc.Get(r.Context(), userID, paymentID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, ToIntentResponse(intent))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientFundsError
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "payment not found")
	case errors.Is(err, ErrInvalidAddress):
		response.BadRequest(w, "invalid sender address")
	case errors.Is(err, ErrInvalidNetwork):
		response.BadRequest(w, "unsupported network")
	case errors.Is(err, ErrInvalidTxHash):
		response.BadRequest(w, "invalid transaction hash")
	case errors.Is(err, ErrKindMismatch):
		response.BadRequest(w, "payment kind mismatch")
	case errors.As(err, &insufficient):
		response.ErrorWithDetails(w, http.StatusBadRequest, "INSUFFICIENT_FUNDS",
			"sender balance below required amount", map[string]string{
				"required":  insufficient.Required.String(),
				"available": insufficient.Available.String(),
			})
	case errors.Is(err, ErrOracleUnavailable):
		response.BadGateway(w, "chain oracle unavailable, retry later")
	default:
		log.Error().Err(err).Msg("payment handler error")
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/init", h.InitSolana)
	r.Post("/verify", h.VerifySolana)
	r.Post("/worldcoin/init", h.InitWorldcoin)
	r.Post("/worldcoin/verify", h.VerifyWorldcoin)
	r.Get("/{id}", h.Status)
	return r
}
