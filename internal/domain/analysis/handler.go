package analysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lunapredict/luna-api/internal/middleware"
	"github.com/lunapredict/luna-api/internal/pkg/imaging"
	"github.com/lunapredict/luna-api/internal/pkg/response"
	"github.com/lunapredict/luna-api/internal/pkg/validator"
)

// maxUploadSize caps chart uploads at 10 MB.
const maxUploadSize = 10 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.BadRequest(w, "image upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("chart")
	if err != nil {
		response.BadRequest(w, "chart image file is required")
		return
	}
	defer file.Close()

	if !imaging.ValidateType(header.Filename) {
		response.BadRequest(w, "unsupported image type, use jpg, png or webp")
		return
	}

	timeframe := r.FormValue("timeframe")
	if timeframe != "" && !ValidTimeframe(timeframe) {
		response.BadRequest(w, "invalid timeframe")
		return
	}

	prediction, err := h.svc.Analyze(r.Context(), userID, file, timeframe)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, ToPredictionResponse(prediction))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	preds, err := h.svc.History(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]PredictionResponse, 0, len(preds))
	for i := range preds {
		out = append(out, ToPredictionResponse(&preds[i]))
	}
	response.OK(w, out)
}

func (h *Handler) UpdateOutcome(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	predictionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid prediction id")
		return
	}

	var req UpdateOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	if err := h.svc.SetOutcome(r.Context(), userID, predictionID, req.Outcome); err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, map[string]string{"outcome": req.Outcome})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		response.PaymentRequired(w, "not enough credits, top up to continue")
	case errors.Is(err, ErrInvalidImage):
		response.BadRequest(w, "could not decode chart image")
	case errors.Is(err, ErrInferenceFailed):
		response.BadGateway(w, "analysis is temporarily unavailable, credits were not charged")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "prediction not found")
	case errors.Is(err, ErrInvalidOutcome):
		response.BadRequest(w, "outcome must be won, lost or ongoing")
	default:
		log.Error().Err(err).Msg("analysis handler error")
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Analyze)
	return r
}

// PredictionRoutes exposes the stored analysis history separately from the
// upload endpoint.
func (h *Handler) PredictionRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/history", h.History)
	r.Patch("/{id}/outcome", h.UpdateOutcome)
	return r
}
