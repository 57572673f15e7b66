package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-marketplace-client/internal/config"
	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	pkgerrors "github.com/pkg/errors"
)

// Issuer signs and verifies HS256 access/refresh pairs for the mock backend.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	rotate     bool
	blacklist  Blacklist
	nowFunc    func() time.Time
}

type IssuerOption func(*Issuer)

// WithRotation makes Refresh return a new refresh token and blacklist the old one.
func WithRotation(rotate bool) IssuerOption {
	return func(i *Issuer) {
		i.rotate = rotate
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = nowFunc
	}
}

// WithBlacklist replaces the in-memory blacklist, e.g. with a RedisBlacklist.
func WithBlacklist(b Blacklist) IssuerOption {
	return func(i *Issuer) {
		i.blacklist = b
	}
}

func NewIssuer(cfg config.SecurityConfig, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		secret:     []byte(cfg.GetJWTSecret()),
		accessTTL:  cfg.GetAccessTokenExpiry(),
		refreshTTL: cfg.GetRefreshTokenExpiry(),
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.blacklist == nil {
		i.blacklist = NewMemoryBlacklist(i.nowFunc)
	}
	return i
}

// IssuePair creates a fresh access and refresh token for userID.
func (i *Issuer) IssuePair(userID int) (access, refresh string, err error) {
	if access, err = i.sign(userID, TypeAccess, i.accessTTL); err != nil {
		return "", "", err
	}
	if refresh, err = i.sign(userID, TypeRefresh, i.refreshTTL); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Verify checks the signature, expiry, type and blacklist of raw.
func (i *Issuer) Verify(raw, tokenType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (interface{}, error) {
		return i.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(i.nowFunc), jwtlib.WithExpirationRequired())
	if err != nil {
		if pkgerrors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.Wrapf(errors.ErrInvalidToken, "%v", err)
	}
	if claims.TokenType != tokenType {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "wrong token type %q", claims.TokenType)
	}
	if i.blacklist.Contains(claims.ID) {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "token is blacklisted")
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token. With rotation enabled a
// new refresh token is returned too and the presented one is blacklisted; otherwise
// the returned refresh token is empty.
func (i *Issuer) Refresh(raw string) (access, refresh string, err error) {
	claims, err := i.Verify(raw, TypeRefresh)
	if err != nil {
		return "", "", err
	}
	if access, err = i.sign(claims.UserID, TypeAccess, i.accessTTL); err != nil {
		return "", "", err
	}
	if !i.rotate {
		return access, "", nil
	}
	// the presented token must be dead before its replacement is handed out
	if err := i.blacklist.Add(claims.ID, claims.ExpiresAt.Time); err != nil {
		return "", "", pkgerrors.Wrap(err, "[Issuer.Refresh] blacklist rotated token")
	}
	if refresh, err = i.sign(claims.UserID, TypeRefresh, i.refreshTTL); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Revoke blacklists a refresh token, e.g. on logout.
func (i *Issuer) Revoke(raw string) error {
	claims, err := i.Verify(raw, TypeRefresh)
	if err != nil {
		return err
	}
	return i.blacklist.Add(claims.ID, claims.ExpiresAt.Time)
}

func (i *Issuer) sign(userID int, tokenType string, ttl time.Duration) (string, error) {
	now := i.nowFunc()
	claims := Claims{
		TokenType: tokenType,
		UserID:    userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[Issuer.sign] failed to sign JWT token")
	}
	return signed, nil
}
