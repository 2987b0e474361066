package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/service"
)

// UserHandler serves accounts (/api/users, /api/user) and profiles
// (/api/profiles/{username}).
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /api/users
// REQUEST BODY: {"user": {"username", "email", "password"}}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.users.Register(r.Context(), req.User)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(res))
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /api/users/login
// REQUEST BODY: {"user": {"email", "password"}}
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.users.Login(r.Context(), req.User)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(res))
}

// HandleCurrent returns the signed-in user with a fresh token.
//
// HTTP: GET /api/user
func (h *UserHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	res, err := h.users.Current(auth.UserFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(res))
}

// HandleUpdate changes the provided fields of the signed-in user.
//
// HTTP: PUT /api/user
// REQUEST BODY: {"user": {"email"?, "username"?, "password"?, "bio"?, "image"?}}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.users.Update(r.Context(), auth.UserFromContext(r.Context()), req.User)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(res))
}

// HandleProfile returns a public profile as seen by the caller, who may be
// anonymous.
//
// HTTP: GET /api/profiles/{username}
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Profile(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Profile: profile})
}

// HandleFollow makes the caller follow {username}. Following twice is a no-op.
//
// HTTP: POST /api/profiles/{username}/follow
func (h *UserHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Follow(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Profile: profile})
}

// HandleUnfollow is the inverse of HandleFollow.
//
// HTTP: DELETE /api/profiles/{username}/follow
func (h *UserHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Unfollow(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Profile: profile})
}
