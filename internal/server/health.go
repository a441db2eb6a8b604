package server

import (
	"database/sql"
	"net/http"
)

// HealthHandler reports service liveness and database reachability.
type HealthHandler struct {
	db *sql.DB
}

// NewHealthHandler creates a [HealthHandler].
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Routes returns the patterns this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"GET /health"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
