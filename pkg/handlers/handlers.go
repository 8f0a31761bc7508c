// Package handlers holds JSON response helpers shared by HTTP handlers.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body written for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON writes v as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// RespondError logs err and writes it as a JSON error body. Server errors
// are logged at error level and their detail is withheld from the client.
func RespondError(w http.ResponseWriter, logger *logrus.Entry, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithField("status", status).Error("request failed")
		msg = http.StatusText(status)
	} else {
		logger.WithError(err).WithField("status", status).Debug("request rejected")
	}
	RespondJSON(w, status, ErrorResponse{Error: msg})
}
