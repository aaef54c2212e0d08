package account

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/middleware"
	"github.com/ayush/finance-advisor/internal/models"
	"github.com/ayush/finance-advisor/internal/response"
)

// Handler holds the auth and profile HTTP handlers.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	req.Email = models.NormalizeEmail(req.Email)
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, err)
		return
	}

	result, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		response.Error(w, h.logger, err, "REGISTRATION_FAILED")
		return
	}
	response.Created(w, result)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	req.Email = models.NormalizeEmail(req.Email)
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, err)
		return
	}

	result, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, h.logger, err, "LOGIN_FAILED")
		return
	}
	response.OK(w, result)
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		response.Error(w, h.logger, apperror.Unauthenticated(), "LOGOUT_FAILED")
		return
	}
	if err := h.svc.Logout(r.Context(), session); err != nil {
		response.Error(w, h.logger, err, "LOGOUT_FAILED")
		return
	}
	response.OK(w, map[string]string{"message": "Logged out"})
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		response.Error(w, h.logger, apperror.Unauthenticated(), "PROFILE_FAILED")
		return
	}
	u, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		response.Error(w, h.logger, err, "PROFILE_FAILED")
		return
	}
	response.OK(w, map[string]models.Profile{"user": u.Profile()})
}

// CompleteOnboarding handles PUT /onboarding/complete.
func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	h.updateProfile(w, r, h.svc.CompleteOnboarding)
}

// UpdateFinancialInfo handles PUT /users/financial-info.
func (h *Handler) UpdateFinancialInfo(w http.ResponseWriter, r *http.Request) {
	h.updateProfile(w, r, h.svc.UpdateProfile)
}

type profileUpdater func(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error)

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, apply profileUpdater) {
	userID := middleware.UserID(r)
	if userID == "" {
		response.Error(w, h.logger, apperror.Unauthenticated(), "PROFILE_UPDATE_FAILED")
		return
	}

	var req models.FinancialInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, err)
		return
	}
	upd, err := ParseFinancialInfo(req)
	if err != nil {
		response.Error(w, h.logger, err, "PROFILE_UPDATE_FAILED")
		return
	}

	u, err := apply(r.Context(), userID, upd)
	if err != nil {
		response.Error(w, h.logger, err, "PROFILE_UPDATE_FAILED")
		return
	}
	response.OK(w, map[string]models.Profile{"user": u.Profile()})
}
