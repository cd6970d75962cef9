package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// CORS returns a middleware answering preflight requests for the given origins.
// A "*" origin allows any origin. Credentials are never allowed: the API
// authenticates with bearer tokens, not cookies.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler
}

// Logging writes one combined-log line per request to the logger
func Logging(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return handlers.CombinedLoggingHandler(log.WriterLevel(logrus.InfoLevel), next)
	}
}

// Recovery turns handler panics into 500 responses and logs them
func Recovery(log *logrus.Logger) func(http.Handler) http.Handler {
	return handlers.RecoveryHandler(handlers.RecoveryLogger(log), handlers.PrintRecoveryStack(true))
}
