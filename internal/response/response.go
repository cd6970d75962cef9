// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/sirupsen/logrus"
)

// Envelope is the body of every API response. Data is omitted on failure.
type Envelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

// JSON writes a successful envelope
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, Envelope{Success: true, StatusCode: status, Message: message, Data: data})
}

// Error writes a failure envelope for err. Internal errors are logged with
// their cause and reported with a generic message.
func Error(w http.ResponseWriter, log *logrus.Logger, err error) {
	appErr := apperr.From(err)
	if appErr.StatusCode >= http.StatusInternalServerError && log != nil {
		log.WithError(err).Error(appErr.Message)
	}
	write(w, Envelope{Success: false, StatusCode: appErr.StatusCode, Message: appErr.Message})
}

func write(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}
