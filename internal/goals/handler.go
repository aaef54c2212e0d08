package goals

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/middleware"
	"github.com/ayush/finance-advisor/internal/models"
	"github.com/ayush/finance-advisor/internal/response"
)

// Handler serves /goals.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	goals, err := h.svc.List(r.Context(), userID)
	if err != nil {
		response.Error(w, h.logger, err, "GOALS_FAILED")
		return
	}
	response.OK(w, map[string][]models.Goal{"goals": goals})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	g, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		response.Error(w, h.logger, err, "GOALS_FAILED")
		return
	}
	response.Created(w, map[string]*models.Goal{"goal": g})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	g, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		response.Error(w, h.logger, err, "GOALS_FAILED")
		return
	}
	response.OK(w, map[string]*models.Goal{"goal": g})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		response.Error(w, h.logger, err, "GOALS_FAILED")
		return
	}
	response.OK(w, map[string]string{"message": "Goal deleted"})
}

// Strategy handles POST /goals/{id}/strategy.
func (h *Handler) Strategy(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	g, err := h.svc.GenerateStrategy(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, h.logger, err, "STRATEGY_FAILED")
		return
	}
	response.OK(w, map[string]*models.Goal{"goal": g})
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.UserID(r)
	if userID == "" {
		response.Error(w, h.logger, apperror.Unauthenticated(), "GOALS_FAILED")
		return "", false
	}
	return userID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (models.GoalRequest, bool) {
	var req models.GoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, err)
		return req, false
	}
	return req, true
}
