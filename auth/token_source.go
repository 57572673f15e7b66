package auth

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/token"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Manager)(nil)

// Token returns the current access token, refreshing it first when it is about to
// expire. Opaque tokens that cannot be inspected are handed out as they are.
func (m *Manager) Token() (*oauth2.Token, error) {
	return m.TokenContext(context.Background())
}

func (m *Manager) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	access := m.AccessToken()
	if access == "" {
		return nil, errors.ErrAuthRequired
	}
	info, err := token.Inspect(access)
	if err == nil && info.ExpiresWithin(m.skew, m.nowTime()) {
		if err := m.refreshLocked(ctx); err != nil {
			return nil, err
		}
		access = m.AccessToken()
		info, err = token.Inspect(access)
	}

	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if err == nil {
		tok.Expiry = info.ExpiresAt
	}
	return tok, nil
}

// HTTPClient returns a client that sends the current bearer token on every request.
func (m *Manager) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, m)
}

// Authorized runs call with a usable access token. A 401 triggers one refresh and
// one retry; a second 401 is returned to the caller.
func (m *Manager) Authorized(ctx context.Context, call func(ctx context.Context, accessToken string) error) error {
	tok, err := m.TokenContext(ctx)
	if err != nil {
		return err
	}
	err = call(ctx, tok.AccessToken)
	if !apiclient.IsUnauthorized(err) {
		return err
	}

	m.opMu.Lock()
	if m.AccessToken() == tok.AccessToken {
		err = m.refreshLocked(ctx)
	} else {
		err = nil
	}
	m.opMu.Unlock()
	if err != nil {
		return err
	}

	access := m.AccessToken()
	if access == "" {
		return errors.ErrAuthRequired
	}
	return call(ctx, access)
}
