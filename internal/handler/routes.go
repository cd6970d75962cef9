package handler

import (
	"net/http"

	"github.com/Dan9191/recipe-service/internal/middleware"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/gorilla/mux"
)

// NewRouter registers every API route under /api
func NewRouter(h *Handler, gate *middleware.Gate) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Auth
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.Handle("/auth/change-password",
		gate.Authorize(models.RoleUser, models.RoleAdmin)(http.HandlerFunc(h.ChangePassword))).Methods(http.MethodPost)

	// Users
	users := api.PathPrefix("/users").Subrouter()
	users.Handle("/create-user",
		gate.Authorize(models.RoleAdmin)(http.HandlerFunc(h.CreateUser))).Methods(http.MethodPost)
	users.HandleFunc("/create-checkout-session", h.CreateCheckoutSession).Methods(http.MethodPost)
	users.Handle("/follow/{id}",
		gate.Authorize(models.RoleUser)(http.HandlerFunc(h.Follow))).Methods(http.MethodPost)
	users.Handle("/unfollow/{id}",
		gate.Authorize(models.RoleUser)(http.HandlerFunc(h.Unfollow))).Methods(http.MethodPost)
	users.Handle("/block/{userId}",
		gate.Authorize(models.RoleAdmin)(http.HandlerFunc(h.BlockUser))).Methods(http.MethodPut)
	users.Handle("/delete/{userId}",
		gate.Authorize(models.RoleAdmin)(http.HandlerFunc(h.DeleteUser))).Methods(http.MethodDelete)
	users.Handle("/update/{userId}",
		gate.Authorize(models.RoleUser, models.RoleAdmin)(http.HandlerFunc(h.UpdateUser))).Methods(http.MethodPut)
	users.HandleFunc("", h.ListUsers).Methods(http.MethodGet)
	users.HandleFunc("/", h.ListUsers).Methods(http.MethodGet)
	users.HandleFunc("/{id}", h.GetUser).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)
	return r
}
