package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/service"
)

// UserHandler serves registration, login and the current user's account.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// userResponse wraps a user view: {"user": {...}}.
type userResponse struct {
	User model.AuthView `json:"user"`
}

type registerRequest struct {
	User struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

type loginRequest struct {
	User struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"user"`
}

// updateRequest uses pointers so an absent key can be told apart from an
// empty string.
type updateRequest struct {
	User struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Bio      *string `json:"bio"`
		Image    *string `json:"image"`
		Password *string `json:"password"`
	} `json:"user"`
}

// HandleRegister handles POST /api/users.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.users.Register(r.Context(), service.RegisterInput{
		Username: req.User.Username,
		Email:    req.User.Email,
		Password: req.User.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: res.User.AuthView(res.Token)})
}

// HandleLogin handles POST /api/users/login.
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.users.Login(r.Context(), req.User.Email, req.User.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: res.User.AuthView(res.Token)})
}

// HandleCurrent handles GET /api/user.
func (h *UserHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.Current(r.Context(), userID)
	if err != nil {
		h.writeCallerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user.AuthView("")})
}

// HandleUpdate handles PUT /api/user.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Update(r.Context(), userID, service.UpdateInput{
		Username: req.User.Username,
		Email:    req.User.Email,
		Bio:      req.User.Bio,
		Image:    req.User.Image,
		Password: req.User.Password,
	})
	if err != nil {
		h.writeCallerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user.AuthView("")})
}

// HandleToggleVerify handles POST /api/toggle-verify.
func (h *UserHandler) HandleToggleVerify(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.ToggleVerified(r.Context(), userID)
	if err != nil {
		h.writeCallerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user.AuthView("")})
}

// writeCallerError answers 401 with an empty body when the authenticated
// caller no longer exists, and defers to writeError otherwise.
func (h *UserHandler) writeCallerError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeError(w, r, h.logger, err)
}
