package chat

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

// UserStore confirms the caller still exists before a turn is recorded.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Handler serves /chat.
type Handler struct {
	chats    *Manager
	users    UserStore
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(chats *Manager, users UserStore, logger *slog.Logger) *Handler {
	return &Handler{chats: chats, users: users, validate: validator.New(), logger: logger}
}

// Send handles POST /chat.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		response.Error(w, h.logger, apperror.Unauthenticated(), "CHAT_FAILED")
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, err)
		return
	}

	if _, err := h.users.GetByID(r.Context(), userID); err != nil {
		response.Error(w, h.logger, err, "CHAT_FAILED")
		return
	}

	answer, err := h.chats.Reply(r.Context(), userID, req.Message)
	if err != nil {
		response.Error(w, h.logger, err, "CHAT_FAILED")
		return
	}
	response.OK(w, map[string]string{"message": answer})
}

// History handles GET /chat.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		response.Error(w, h.logger, apperror.Unauthenticated(), "CHAT_HISTORY_FAILED")
		return
	}

	msgs, err := h.chats.History(r.Context(), userID)
	if err != nil {
		response.Error(w, h.logger, err, "CHAT_HISTORY_FAILED")
		return
	}
	response.OK(w, map[string][]models.Message{"chatHistory": msgs})
}

// Reset handles DELETE /chat.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	if userID == "" {
		response.Error(w, h.logger, apperror.Unauthenticated(), "CHAT_RESET_FAILED")
		return
	}

	key, err := h.chats.Reset(r.Context(), userID)
	if err != nil {
		response.Error(w, h.logger, err, "CHAT_RESET_FAILED")
		return
	}
	body := map[string]string{"message": "Chat history cleared"}
	if key != "" {
		body["archive"] = key
	}
	response.OK(w, body)
}
