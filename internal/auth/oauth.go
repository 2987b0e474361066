package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubUser is the part of the GitHub /user response sign-in needs.
type GitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"` // empty when hidden; filled from /user/emails
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
}

// GitHubProvider runs the OAuth 2.0 authorization code flow against GitHub.
//
//  1. AuthURL sends the browser to GitHub with a random state.
//  2. GitHub redirects back with a short-lived code.
//  3. Exchange trades the code for an access token server-to-server and
//     reads the user's profile with it.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewGitHubProvider creates a GitHubProvider. callbackURL must match the
// OAuth App's "Authorization callback URL" exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBase: defaultGitHubAPI,
	}
}

// AuthURL returns the GitHub authorization URL carrying state.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades code for an access token and returns the GitHub user.
// A user without a public email gets their primary verified address.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// The returned client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, oauthToken)

	var ghUser GitHubUser
	if err := getJSON(ctx, client, p.apiBase+"/user", &ghUser); err != nil {
		return nil, err
	}
	if ghUser.ID == 0 {
		return nil, errors.New("auth: GitHub returned an invalid user (ID = 0)")
	}

	if ghUser.Email == "" {
		email, err := p.primaryEmail(ctx, client)
		if err != nil {
			return nil, err
		}
		ghUser.Email = email
	}
	if ghUser.Email == "" {
		return nil, errors.New("auth: GitHub account has no verified email")
	}

	return &ghUser, nil
}

func (p *GitHubProvider) primaryEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, p.apiBase+"/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("auth: building GitHub request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: calling GitHub %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: GitHub %s returned status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("auth: decoding GitHub %s response: %w", url, err)
	}
	return nil
}
