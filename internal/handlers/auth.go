package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/httputil"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/middleware"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/services"
)

type AuthHandler struct {
	service *services.AuthService
	log     *zap.Logger
}

func NewAuthHandler(service *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, log: log}
}

// callerID returns the authenticated user id, writing a 401 when absent.
func (h *AuthHandler) callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.log, apperr.Unauthorized("authentication required"))
		return "", false
	}
	return id.UserID, true
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httputil.DecodeJSON(r, w, &req); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{
		Success: true,
		Data:    res,
		Message: "registration successful",
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httputil.DecodeJSON(r, w, &req); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success: true,
		Data:    res,
		Message: "login successful",
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Me(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.OK(w, http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	var req models.ProfileRequest
	if err := httputil.DecodeJSON(r, w, &req); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success: true,
		Data:    user,
		Message: "profile updated successfully",
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if err := httputil.DecodeJSON(r, w, &req); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), userID, req); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.Message(w, http.StatusOK, "password changed successfully")
}

func (h *AuthHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.List(w, users, len(users))
}

func (h *AuthHandler) ToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.ToggleUserStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	msg := "user deactivated"
	if user.IsActive {
		msg = "user activated"
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success: true,
		Data:    user,
		Message: msg,
	})
}
