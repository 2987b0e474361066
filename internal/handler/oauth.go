package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/service"
)

const stateCookie = "oauth_state"

// GitHubExchanger is the part of *auth.GitHubProvider the handler needs.
type GitHubExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// OAuthHandler signs users in with GitHub. The result is the same
// {"user": {..., "token"}} body that POST /api/users/login returns.
type OAuthHandler struct {
	github GitHubExchanger
	users  *service.UserService
	logger *slog.Logger
}

func NewOAuthHandler(github GitHubExchanger, users *service.UserService, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{github: github, users: users, logger: logger}
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /api/auth/github/login
//
// A random state is stored in a short-lived HttpOnly cookie and checked on
// callback, so only flows started here can complete.
func (h *OAuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/github",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the flow.
//
// HTTP: GET /api/auth/github/callback?code=xxx&state=yyy
//
//  1. Validate the state parameter against the cookie
//  2. Exchange the code for a GitHub user
//  3. Sign in (or create) the matching account
func (h *OAuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		WriteError(w, r, apperror.ValidationFailed("state", "is invalid"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/api/auth/github",
		MaxAge: -1,
	})

	if denied := q.Get("error"); denied != "" {
		h.logger.Info("oauth callback: authorization denied", slog.String("error", denied))
		WriteError(w, r, apperror.Unauthorized("GitHub authorization was denied"))
		return
	}

	code := q.Get("code")
	if code == "" {
		WriteError(w, r, apperror.ValidationFailed("code", "can't be blank"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: GitHub exchange failed", slog.String("error", err.Error()))
		WriteError(w, r, apperror.Unauthorized("GitHub authentication failed"))
		return
	}

	res, err := h.users.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(res))
}
