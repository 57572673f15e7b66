package apiclient

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/sessions"
	"github.com/jrsteele09/go-marketplace-client/users"
)

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User    users.User      `json:"user"`
	Tokens  sessions.Tokens `json:"tokens"`
	Message string          `json:"message,omitempty"`
}

// RefreshResponse carries a new access token. Refresh is only set when the backend
// rotates refresh tokens.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.request(ctx, http.MethodPost, "/auth/login/", credentials{username, password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, reg users.Registration) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.request(ctx, http.MethodPost, "/auth/register/", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CurrentUser(ctx context.Context, token string) (*users.User, error) {
	var out users.User
	if err := c.authenticatedRequest(ctx, token, http.MethodGet, "/auth/me/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, token string, patch resources.UserPatch) (*users.User, error) {
	var out users.User
	if err := c.authenticatedRequest(ctx, token, http.MethodPatch, "/auth/profile/", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RefreshAccessToken(ctx context.Context, refresh string) (*RefreshResponse, error) {
	var out RefreshResponse
	body := map[string]string{"refresh": refresh}
	if err := c.request(ctx, http.MethodPost, "/auth/token/refresh/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) HealthCheck(ctx context.Context) (*resources.Health, error) {
	var out resources.Health
	if err := c.request(ctx, http.MethodGet, "/health/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
