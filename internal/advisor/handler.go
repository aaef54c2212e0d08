package advisor

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/middleware"
	"github.com/ayush/finance-advisor/internal/models"
	"github.com/ayush/finance-advisor/internal/response"
)

// Handler serves /financial-advice.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), logger: logger}
}

// Advise handles POST /financial-advice.
func (h *Handler) Advise(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		response.Error(w, h.logger, apperror.Unauthenticated(), "ADVICE_FAILED")
		return
	}

	var req models.AdviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, err)
		return
	}

	record, err := h.svc.Advise(r.Context(), userID, req.Question, req.Area)
	if err != nil {
		response.Error(w, h.logger, err, "ADVICE_FAILED")
		return
	}
	response.OK(w, map[string]string{"advice": record.Advice})
}

// History handles GET /financial-advice; the body is a bare array, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		response.Error(w, h.logger, apperror.Unauthenticated(), "ADVICE_HISTORY_FAILED")
		return
	}

	records, err := h.svc.History(r.Context(), userID)
	if err != nil {
		response.Error(w, h.logger, err, "ADVICE_HISTORY_FAILED")
		return
	}
	response.OK(w, records)
}
