package auth

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
	"github.com/lunapredict/luna-api/internal/pkg/worldid"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	resp, err := h.svc.Register(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	resp, err := h.svc.Login(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, resp)
}

func (h *Handler) WalletNonce(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		response.BadRequest(w, "address query parameter is required")
		return
	}

	resp, err := h.svc.WalletNonce(r.Context(), address)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, resp)
}

func (h *Handler) WalletLogin(w http.ResponseWriter, r *http.Request) {
	var req WalletLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	resp, err := h.svc.WalletLogin(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, resp)
}

func (h *Handler) WorldIDLogin(w http.ResponseWriter, r *http.Request) {
	var req WorldIDLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	resp, err := h.svc.WorldIDLogin(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	resp, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"status": "logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	resp, err := h.svc.GetCurrentUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var rejection *worldid.VerificationError
	switch {
	case errors.Is(err, ErrEmailAlreadyExists):
		response.Conflict(w, "email already registered")
	case errors.Is(err, ErrInvalidCredentials):
		response.Unauthorized(w, "invalid email or password")
	case errors.Is(err, ErrRefreshTokenRequired), errors.Is(err, ErrInvalidRefreshToken):
		response.Unauthorized(w, "invalid refresh token")
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(w, "user not found")
	case errors.Is(err, ErrInvalidWalletAddress):
		response.BadRequest(w, "invalid wallet address")
	case errors.Is(err, ErrNonceExpired):
		response.Unauthorized(w, "nonce expired, request a new one")
	case errors.Is(err, ErrInvalidSignature):
		response.Unauthorized(w, "signature verification failed")
	case errors.As(err, &rejection):
		response.Unauthorized(w, "world id verification failed: "+rejection.Code)
	case errors.Is(err, worldid.ErrUnavailable):
		response.BadGateway(w, "world id verifier unavailable, try again")
	default:
		log.Error().Err(err).Msg("auth handler error")
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.Register)
	r.Post("/login", h.Login)
	r.Get("/nonce", h.WalletNonce)
	r.Post("/wallet-login", h.WalletLogin)
	r.Post("/worldid/verify", h.WorldIDLogin)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/me", h.Me)
	})
	return r
}
