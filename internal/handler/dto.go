package handler

import (
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/service"
)

// Request envelopes. The API wraps every payload in a named object,
// e.g. {"article": {...}}.

type registerRequest struct {
	User service.RegisterInput `json:"user"`
}

type loginRequest struct {
	User service.LoginInput `json:"user"`
}

type updateUserRequest struct {
	User service.UserUpdate `json:"user"`
}

type createArticleRequest struct {
	Article service.ArticleInput `json:"article"`
}

type updateArticleRequest struct {
	Article service.ArticleUpdate `json:"article"`
}

type createCommentRequest struct {
	Comment service.CommentInput `json:"comment"`
}

// Response envelopes.

// authUser is the signed-in user as returned by registration, login and
// GET/PUT /api/user. It is the only shape that carries a token.
type authUser struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Token    string  `json:"token"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image"`
}

type userResponse struct {
	User authUser `json:"user"`
}

func newUserResponse(res *service.AuthResult) userResponse {
	return userResponse{User: authUser{
		Username: res.User.Username,
		Email:    res.User.Email,
		Token:    res.Token,
		Bio:      res.User.Bio,
		Image:    res.User.Image,
	}}
}

// profileResponse keeps the "user" key used by the profile endpoints.
type profileResponse struct {
	Profile *model.Profile `json:"user"`
}

type articleResponse struct {
	Article *model.Article `json:"article"`
}

type commentResponse struct {
	Comment *model.Comment `json:"comment"`
}

type commentsResponse struct {
	Comments []model.Comment `json:"comments"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

type statusResponse struct {
	Status string `json:"status"`
}
