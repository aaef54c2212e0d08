// Package health serves the liveness and database probes.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayush/finance-advisor/internal/response"
	"github.com/ayush/finance-advisor/internal/store"
)

// Pinger is satisfied by *store.Mongo.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
	Stats() store.ConnStats
}

type dbStatus struct {
	Status         string          `json:"status"`
	Message        string          `json:"message"`
	ConnectionTime string          `json:"connectionTime,omitempty"`
	Stats          store.ConnStats `json:"stats"`
}

type Handler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHandler(db Pinger, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// Live always answers ok; it does not touch the database.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// Database forces a connection attempt and reports how long it took.
func (h *Handler) Database(w http.ResponseWriter, r *http.Request) {
	elapsed, err := h.db.Ping(r.Context())
	if err != nil {
		h.logger.Error("database probe failed", slog.String("error", err.Error()))
		response.JSON(w, http.StatusInternalServerError, dbStatus{
			Status:  "error",
			Message: "Database connection failed",
			Stats:   h.db.Stats(),
		})
		return
	}
	response.OK(w, dbStatus{
		Status:         "success",
		Message:        "Database connected successfully",
		ConnectionTime: fmt.Sprintf("%dms", elapsed.Milliseconds()),
		Stats:          h.db.Stats(),
	})
}
