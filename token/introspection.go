package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Info is what the client can learn from a token without the signing key.
type Info struct {
	TokenType string
	UserID    int
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Inspect decodes a JWT without verifying it. The client only uses this to
// schedule refreshes; the backend remains the authority on validity.
func Inspect(raw string) (*Info, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("[token.Inspect] empty token")
	}
	claims := &Claims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Wrap(err, "[token.Inspect]")
	}
	info := &Info{TokenType: claims.TokenType, UserID: claims.UserID, ID: claims.ID}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// ExpiresWithin reports whether the token expires before now+d. Tokens without an
// exp claim never expire.
func (i Info) ExpiresWithin(d time.Duration, now time.Time) bool {
	if i.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(i.ExpiresAt)
}
