package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/humon/server/internal/lib/logger/sl"
)

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	log *slog.Logger
	db  Pinger
}

func NewHealthHandler(log *slog.Logger, db Pinger) *HealthHandler {
	return &HealthHandler{log: log, db: db}
}

// ServeHTTP handles GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn("health check failed", sl.Err(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
