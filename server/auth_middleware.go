package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-marketplace-client/token"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated *users.User
const ContextKeyUser ContextKey = "user"

func userFromContext(ctx context.Context) *users.User {
	u, _ := ctx.Value(ContextKeyUser).(*users.User)
	return u
}

func writeTokenNotValid(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": msgTokenNotValid,
		"code":   "token_not_valid",
	})
}

// AuthenticateMiddleware resolves a Bearer access token to a user. Requests without
// an Authorization header continue anonymously; a header that does not verify is
// rejected even on public routes.
func (s *Server) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			writeTokenNotValid(w)
			return
		}

		claims, err := s.issuer.Verify(parts[1], token.TypeAccess)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("[AuthenticateMiddleware] rejected token")
			writeTokenNotValid(w)
			return
		}
		user, err := s.users.GetByID(claims.UserID)
		if err != nil || user.Disabled {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "User not found", "code": "user_not_found"})
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous requests.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFromContext(r.Context()) == nil {
			writeDetail(w, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// AdminOrReadOnly lets anyone read and only staff write.
func (s *Server) AdminOrReadOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		user := userFromContext(r.Context())
		if user == nil {
			writeDetail(w, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}
		if !user.IsStaff {
			writeDetail(w, http.StatusForbidden, msgNoPermission)
			return
		}
		next.ServeHTTP(w, r)
	})
}
