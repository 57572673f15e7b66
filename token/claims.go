package token

import jwtlib "github.com/golang-jwt/jwt/v5"

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims follow the SimpleJWT layout the backend issues.
type Claims struct {
	TokenType string `json:"token_type"`
	UserID    int    `json:"user_id"`
	jwtlib.RegisteredClaims
}
