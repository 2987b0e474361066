package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
)

// contextKey is unexported so only this package can read or write the
// authenticated user in a request context.
type contextKey string

const userKey contextKey = "user"

// Mode selects how Authenticate treats a request's credential.
type Mode int

const (
	// Required rejects requests without a valid credential with 401.
	Required Mode = iota
	// Optional lets anonymous requests through but rejects a credential
	// that is present and invalid.
	Optional
)

// UserLookup resolves the token subject to a current user.
// *sqlite.DB satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// ErrorFunc writes an error response. The server passes the handler
// package's error writer so that 401s share the API's error envelope.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// Authenticator verifies "Authorization: <scheme> <jwt>" headers.
type Authenticator struct {
	tokens  *TokenService
	users   UserLookup
	scheme  string
	onError ErrorFunc
}

// NewAuthenticator creates an Authenticator. scheme is the word before the
// token in the Authorization header ("Token" unless configured otherwise).
func NewAuthenticator(tokens *TokenService, users UserLookup, scheme string, onError ErrorFunc) *Authenticator {
	if scheme == "" {
		scheme = "Token"
	}
	return &Authenticator{tokens: tokens, users: users, scheme: scheme, onError: onError}
}

var errNoCredential = errors.New("auth: no credential")

// Middleware returns a chi-compatible middleware enforcing mode.
//
// The token is verified first and the user is then re-fetched, so a token
// whose user no longer exists is rejected like an invalid one.
//
//	r.With(a.Middleware(auth.Required)).Get("/user", h.HandleCurrent)
func (a *Authenticator) Middleware(mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.resolve(r)

			switch {
			case err == nil:
				r = r.WithContext(WithUser(r.Context(), user))
			case errors.Is(err, errNoCredential):
				if mode == Required {
					a.onError(w, r, apperror.Unauthorized("authorization header is required"))
					return
				}
			default:
				// Invalid credential, or a store failure while re-fetching the user.
				a.onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authenticator) resolve(r *http.Request) (*model.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errNoCredential
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, a.scheme) || strings.TrimSpace(token) == "" {
		return nil, apperror.Unauthorized("authorization header must be \"" + a.scheme + " <token>\"")
	}

	userID, err := a.tokens.Validate(strings.TrimSpace(token))
	if err != nil {
		return nil, apperror.Unauthorized("invalid token")
	}

	user, err := a.users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid token")
		}
		return nil, err
	}
	return user, nil
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userKey).(*model.User)
	return user
}
