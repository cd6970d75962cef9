package handler

import (
	"net/http"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/Dan9191/recipe-service/internal/middleware"
	"github.com/Dan9191/recipe-service/internal/response"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "User logged in successfully", res)
}

// ChangePassword replaces the caller's password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.fail(w, apperr.ErrTokenInvalid)
		return
	}
	var req changePasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.svc.ChangePassword(r.Context(), claims.UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "Password changed successfully", res)
}
