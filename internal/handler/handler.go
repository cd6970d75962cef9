package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/Dan9191/recipe-service/internal/response"
	"github.com/Dan9191/recipe-service/internal/service"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = apperr.BadRequest("Invalid request body")

// Pinger reports whether the backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	svc    *service.Service
	log    *logrus.Logger
	pinger Pinger
}

func NewHandler(svc *service.Service, log *logrus.Logger, pinger Pinger) *Handler {
	return &Handler{svc: svc, log: log, pinger: pinger}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		h.log.WithError(err).Debug("Failed to decode request body")
		return errInvalidBody.Wrap(err)
	}
	return nil
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	response.Error(w, h.log, err)
}

// Health reports liveness and, when configured, store reachability
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.PingContext(r.Context()); err != nil {
			h.log.WithError(err).Error("Health check failed")
			response.Error(w, nil, apperr.New(http.StatusServiceUnavailable, "Database unavailable"))
			return
		}
	}
	response.JSON(w, http.StatusOK, "OK", nil)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	response.Error(w, nil, apperr.NotFound("API Not Found"))
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.Error(w, nil, apperr.New(http.StatusMethodNotAllowed, "Method Not Allowed"))
}
