package handler

import (
	"net/http"
	"strconv"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/Dan9191/recipe-service/internal/middleware"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/Dan9191/recipe-service/internal/response"
	"github.com/Dan9191/recipe-service/internal/service"
	"github.com/gorilla/mux"
)

type followRequest struct {
	FollowingID string `json:"followingId"`
}

type checkoutRequest struct {
	PriceID string `json:"priceId"`
}

// CreateUser handles admin account creation
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.CreateUserInput
	if err := h.decode(w, r, &in); err != nil {
		h.fail(w, err)
		return
	}
	user, err := h.svc.CreateUser(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "User Created Successfully", user)
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// ListUsers returns users matching the query string filters
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.ListUsers(r.Context(), models.UserQuery{
		SearchTerm: q.Get("searchTerm"),
		Role:       models.Role(q.Get("role")),
		Status:     models.Status(q.Get("status")),
		Sort:       q.Get("sort"),
		Page:       queryInt(r, "page"),
		Limit:      queryInt(r, "limit"),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "Users Retrieved Successfully", page)
}

// GetUser returns a single user
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "User Retrieved Successfully", user)
}

// actingFollower returns the follower id from the path once it is confirmed
// to belong to the caller
func actingFollower(r *http.Request) (string, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return "", apperr.ErrTokenInvalid
	}
	id := mux.Vars(r)["id"]
	if id != claims.UserID {
		return "", apperr.ErrNotOwnFollow
	}
	return id, nil
}

// Follow makes the caller follow body.followingId
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, err := actingFollower(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req followRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.svc.Follow(r.Context(), followerID, req.FollowingID)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "User followed successfully", res)
}

// Unfollow makes the caller stop following body.followingId
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, err := actingFollower(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req followRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.svc.Unfollow(r.Context(), followerID, req.FollowingID)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "User unfollowed successfully", res)
}

// BlockUser handles admin blocking of an account
func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.BlockUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "User blocked successfully", user)
}

// DeleteUser handles admin deletion of an account
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.DeleteUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "User deleted successfully", user)
}

// UpdateUser handles partial profile updates
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.fail(w, apperr.ErrTokenInvalid)
		return
	}
	var in service.UpdateUserInput
	if err := h.decode(w, r, &in); err != nil {
		h.fail(w, err)
		return
	}
	user, err := h.svc.UpdateUser(r.Context(), claims, mux.Vars(r)["userId"], in)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "User updated successfully", user)
}

// CreateCheckoutSession opens a hosted payment session
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	session, err := h.svc.CreateCheckoutSession(r.Context(), req.PriceID)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "Checkout session created successfully", session)
}
