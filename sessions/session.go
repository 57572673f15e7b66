package sessions

import (
	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/users"
)

// Tokens is the access/refresh pair issued by the backend.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether neither token is set.
func (t Tokens) Empty() bool {
	return t.Access == "" && t.Refresh == ""
}

// Complete reports whether both tokens are set.
func (t Tokens) Complete() bool {
	return t.Access != "" && t.Refresh != ""
}

// Session is the signed-in user together with their tokens.
type Session struct {
	User   users.User `json:"user"`
	Tokens Tokens     `json:"tokens"`
}

// Validate enforces that a session never carries only one of the two tokens.
func (s Session) Validate() error {
	if !s.Tokens.Complete() {
		return errors.ErrPartialSession
	}
	return nil
}
