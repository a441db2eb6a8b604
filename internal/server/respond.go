package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/gateway"
	"github.com/desertthunder/spindle/internal/shared"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps gateway and auth failures onto the API's status
// codes. Token values never appear in responses or logs.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	var rle *gateway.RateLimitedError
	var ue *gateway.UpstreamError
	var te *gateway.TransportError

	switch {
	case errors.Is(err, shared.ErrAuthExpired):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication expired, log in again"})

	case errors.As(err, &rle):
		if rle.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(rle.RetryAfter.Seconds())))
		}
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "upstream rate limit exceeded"})

	case errors.As(err, &ue):
		logger.Error("upstream error", "status", ue.Status)
		status := ue.Status
		if status >= 500 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, errorBody{Error: "upstream request failed"})

	case errors.As(err, &te):
		logger.Error("transport error", "error", te.Err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "upstream unreachable"})

	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
