// Package service contains the business logic layer.
//
// Services validate input, enforce the rules that span several records and
// translate them into repository calls. They know nothing about HTTP: each
// failure is an apperror the handler layer maps to a status code.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
	"github.com/sakif/conduit/internal/validation"
)

// UserService manages accounts, sign-in and the follow graph.
type UserService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User  *model.User
	Token string
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,notblank,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,notblank,maxbytes=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserUpdate changes only the fields that are non-nil. An empty Password
// keeps the current one; an empty Bio or Image clears it.
type UserUpdate struct {
	Username *string `json:"username" validate:"omitnil,notblank,max=64"`
	Email    *string `json:"email" validate:"omitnil,email"`
	Password *string `json:"password" validate:"omitempty,maxbytes=72"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image" validate:"omitnil,url|len=0"`
}

// Register creates an account. A taken username and a taken email are
// reported together.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if err := s.checkAvailable(ctx, "", in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", in.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// Login checks credentials. An unknown email is NotFound; a wrong password
// is Unauthorized.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("login rejected", slog.String("userID", user.ID))
			return nil, apperror.Unauthorized("email or password is invalid")
		}
		return nil, fmt.Errorf("service/user: verifying password: %w", err)
	}

	return s.issue(user)
}

// Current re-issues a token for the already authenticated user.
func (s *UserService) Current(user *model.User) (*AuthResult, error) {
	return s.issue(user)
}

// Update applies in to user and persists it.
func (s *UserService) Update(ctx context.Context, user *model.User, in UserUpdate) (*AuthResult, error) {
	if in.Username != nil {
		*in.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil {
		*in.Email = strings.TrimSpace(*in.Email)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	updated := *user

	var newUsername, newEmail string
	if in.Username != nil && *in.Username != user.Username {
		newUsername = *in.Username
		updated.Username = newUsername
	}
	if in.Email != nil && *in.Email != user.Email {
		newEmail = *in.Email
		updated.Email = newEmail
	}
	if err := s.checkAvailable(ctx, user.ID, newUsername, newEmail); err != nil {
		return nil, err
	}

	if in.Password != nil && *in.Password != "" {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		updated.PasswordHash = hash
	}
	if in.Bio != nil {
		updated.Bio = emptyToNil(*in.Bio)
	}
	if in.Image != nil {
		updated.Image = emptyToNil(*in.Image)
	}

	if err := s.users.UpdateUser(ctx, &updated); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update user",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/user: updating user %s: %w", user.ID, err)
	}

	s.logger.Info("user updated", slog.String("userID", updated.ID))
	return s.issue(&updated)
}

// Profile returns username's public profile as seen by viewer (nil for anonymous).
func (s *UserService) Profile(ctx context.Context, viewer *model.User, username string) (*model.Profile, error) {
	target, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	following, err := s.users.IsFollowing(ctx, viewerID(viewer), target.ID)
	if err != nil {
		return nil, fmt.Errorf("service/user: checking follow: %w", err)
	}

	p := model.ProfileOf(target, following)
	return &p, nil
}

// Follow makes user follow username. The target is resolved before anything
// is written, so an unknown username is NotFound and changes nothing.
func (s *UserService) Follow(ctx context.Context, user *model.User, username string) (*model.Profile, error) {
	target, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := s.users.Follow(ctx, user.ID, target.ID); err != nil {
		s.logger.Error("failed to follow user",
			slog.String("follower", user.ID),
			slog.String("followee", target.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/user: following %s: %w", username, err)
	}

	s.logger.Info("user followed",
		slog.String("follower", user.Username),
		slog.String("followee", target.Username),
	)
	p := model.ProfileOf(target, true)
	return &p, nil
}

// Unfollow removes the edge if present.
func (s *UserService) Unfollow(ctx context.Context, user *model.User, username string) (*model.Profile, error) {
	target, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := s.users.Unfollow(ctx, user.ID, target.ID); err != nil {
		s.logger.Error("failed to unfollow user",
			slog.String("follower", user.ID),
			slog.String("followee", target.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/user: unfollowing %s: %w", username, err)
	}

	s.logger.Info("user unfollowed",
		slog.String("follower", user.Username),
		slog.String("followee", target.Username),
	)
	p := model.ProfileOf(target, false)
	return &p, nil
}

// LoginWithGitHub signs in the account whose email matches the GitHub
// account, creating one if none exists. New accounts get a username derived
// from the GitHub login and a random password.
func (s *UserService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, errors.New("service/user: GitHub user must not be nil")
	}

	existing, err := s.users.GetUserByEmail(ctx, gh.Email)
	if err == nil {
		s.logger.Info("user authenticated via GitHub",
			slog.String("userID", existing.ID),
			slog.String("login", gh.Login),
		)
		return s.issue(existing)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/user: looking up GitHub email: %w", err)
	}

	username, err := s.freeUsername(ctx, gh.Login)
	if err != nil {
		return nil, err
	}
	password, err := auth.RandomPassword()
	if err != nil {
		return nil, err
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/user: hashing generated password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        gh.Email,
		PasswordHash: hash,
		Bio:          emptyToNil(gh.Bio),
		Image:        emptyToNil(gh.AvatarURL),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: creating GitHub user %s: %w", gh.Login, err)
	}

	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.Int64("githubID", gh.ID),
	)
	return s.issue(user)
}

// freeUsername returns login, or login-2, login-3, … for the first one not taken.
func (s *UserService) freeUsername(ctx context.Context, login string) (string, error) {
	base := strings.TrimSpace(login)
	if base == "" {
		base = "github-user"
	}

	for i := 1; ; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}

		_, err := s.users.GetUserByUsername(ctx, candidate)
		if errors.Is(err, apperror.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("service/user: checking username %q: %w", candidate, err)
		}
	}
}

// checkAvailable reports every one of username and email (when non-empty)
// already owned by a user other than selfID.
func (s *UserService) checkAvailable(ctx context.Context, selfID, username, email string) error {
	var taken []string

	if username != "" {
		u, err := s.users.GetUserByUsername(ctx, username)
		switch {
		case err == nil && u.ID != selfID:
			taken = append(taken, "username")
		case err != nil && !errors.Is(err, apperror.ErrNotFound):
			return fmt.Errorf("service/user: checking username: %w", err)
		}
	}
	if email != "" {
		u, err := s.users.GetUserByEmail(ctx, email)
		switch {
		case err == nil && u.ID != selfID:
			taken = append(taken, "email")
		case err != nil && !errors.Is(err, apperror.ErrNotFound):
			return fmt.Errorf("service/user: checking email: %w", err)
		}
	}

	if len(taken) > 0 {
		return apperror.Taken(taken...)
	}
	return nil
}

func (s *UserService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/user: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// hash maps the length limit to a field error; anything else is internal.
func (s *UserService) hash(password string) (string, error) {
	hash, err := s.passwords.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("is too long (maximum is %d bytes)", auth.MaxPasswordBytes))
	}
	if err != nil {
		return "", fmt.Errorf("service/user: hashing password: %w", err)
	}
	return hash, nil
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// viewerID is "" for anonymous viewers, which matches no follow or favorite rows.
func viewerID(viewer *model.User) string {
	if viewer == nil {
		return ""
	}
	return viewer.ID
}
