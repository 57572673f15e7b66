package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/sessions"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/rs/zerolog/log"
)

type authResponse struct {
	User    *users.User     `json:"user"`
	Tokens  sessions.Tokens `json:"tokens"`
	Message string          `json:"message,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (s *Server) issueTokens(w http.ResponseWriter, user *users.User) (sessions.Tokens, bool) {
	access, refresh, err := s.issuer.IssuePair(user.ID)
	if err != nil {
		log.Err(err).Int("user_id", user.ID).Msg("[Server.issueTokens] failed to sign tokens")
		writeError(w, http.StatusInternalServerError, "Failed to issue tokens")
		return sessions.Tokens{}, false
	}
	return sessions.Tokens{Access: access, Refresh: refresh}, true
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.Username == "" || body.Password == "" {
			writeError(w, http.StatusBadRequest, "Please provide both username and password")
			return
		}

		user, err := s.users.GetByUsername(body.Username)
		if err != nil || !user.CheckPassword(body.Password) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if user.Disabled {
			writeError(w, http.StatusUnauthorized, "Account is disabled")
			return
		}

		tokens, ok := s.issueTokens(w, user)
		if !ok {
			return
		}
		log.Info().Str("username", user.Username).Msg("[LoginHandler] signed in")
		writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg users.Registration
		if !decodeJSON(w, r, &reg) {
			return
		}
		if fe := reg.Validate(); fe != nil {
			writeFieldErrors(w, fe)
			return
		}

		hash, err := users.HashPassword(reg.Password)
		if err != nil {
			log.Err(err).Msg("[RegisterHandler] hash password")
			writeError(w, http.StatusInternalServerError, "Registration failed")
			return
		}
		joined := s.nowTime()
		user := &users.User{
			Username:     strings.TrimSpace(reg.Username),
			Email:        reg.Email,
			FirstName:    reg.FirstName,
			LastName:     reg.LastName,
			DateJoined:   &joined,
			PasswordHash: hash,
		}
		if err := s.users.Create(user); err != nil {
			if errors.Is(err, users.ErrUsernameTaken) {
				writeFieldErrors(w, users.FieldErrors{"username": {users.ErrUsernameTaken.Error()}})
				return
			}
			log.Err(err).Msg("[RegisterHandler] create user")
			writeError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		tokens, ok := s.issueTokens(w, user)
		if !ok {
			return
		}
		writeJSON(w, http.StatusCreated, authResponse{User: user, Tokens: tokens, Message: "User registered successfully"})
	}
}

func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, userFromContext(r.Context()))
	}
}

// UpdateProfileHandler applies a partial edit of the signed-in user's name and
// username.
func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch resources.UserPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		current := userFromContext(r.Context())
		updated := *current
		if patch.FirstName != "" {
			updated.FirstName = patch.FirstName
		}
		if patch.LastName != "" {
			updated.LastName = patch.LastName
		}
		if u := strings.TrimSpace(patch.Username); u != "" {
			updated.Username = u
		}

		if err := s.users.Update(&updated); err != nil {
			if errors.Is(err, users.ErrUsernameTaken) {
				writeFieldErrors(w, users.FieldErrors{"username": {users.ErrUsernameTaken.Error()}})
				return
			}
			log.Err(err).Int("user_id", current.ID).Msg("[UpdateProfileHandler] update user")
			writeError(w, http.StatusInternalServerError, "Profile update failed")
			return
		}
		writeJSON(w, http.StatusOK, &updated)
	}
}

// TokenRefreshHandler exchanges a refresh token for a new access token, and a new
// refresh token when rotation is on.
func (s *Server) TokenRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshRequest
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.Refresh == "" {
			writeFieldErrors(w, users.FieldErrors{"refresh": {msgRequired}})
			return
		}
		access, refresh, err := s.issuer.Refresh(body.Refresh)
		if err != nil {
			log.Debug().Err(err).Msg("[TokenRefreshHandler] rejected refresh token")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Token is invalid or expired",
				"code":   "token_not_valid",
			})
			return
		}
		out := map[string]string{"access": access}
		if refresh != "" {
			out["refresh"] = refresh
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// LogoutHandler blacklists the presented refresh token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshRequest
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.Refresh == "" {
			writeFieldErrors(w, users.FieldErrors{"refresh": {msgRequired}})
			return
		}
		if err := s.issuer.Revoke(body.Refresh); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Token is invalid or expired",
				"code":   "token_not_valid",
			})
			return
		}
		w.WriteHeader(http.StatusResetContent)
	}
}
