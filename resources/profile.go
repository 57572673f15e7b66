package resources

import (
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-marketplace-client/users"
)

const RoleUser = "user"

// Profile is a presentation view of the account. The backend has no profile
// resource of its own, so it is derived from the user record.
type Profile struct {
	ID         string    `json:"id"`
	Username   string    `json:"username,omitempty"`
	FullName   string    `json:"full_name,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	IsVerified bool      `json:"is_verified"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileFromUser builds a Profile; the username falls back to the email local part.
func ProfileFromUser(u users.User, now time.Time) Profile {
	username := u.Username
	if username == "" && u.Email != "" {
		username = strings.SplitN(u.Email, "@", 2)[0]
	}
	created := now
	if u.DateJoined != nil {
		created = *u.DateJoined
	}
	role := RoleUser
	if u.IsStaff {
		role = "admin"
	}
	return Profile{
		ID:        strconv.Itoa(u.ID),
		Username:  username,
		FullName:  u.FullName(),
		Role:      role,
		CreatedAt: created,
		UpdatedAt: now,
	}
}

// ProfileUpdate is a partial edit of the profile. Only name and username reach the
// backend; the remaining fields are echoed back on the returned Profile.
type ProfileUpdate struct {
	FullName  string
	Username  string
	AvatarURL string
	Phone     string
	Bio       string
}

// UserPatch is the body of the profile endpoint.
type UserPatch struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// Patch resolves the update against the current user: an empty full name or username
// keeps the existing value. The first word of the full name becomes the first name.
func (pu ProfileUpdate) Patch(current users.User) UserPatch {
	patch := UserPatch{FirstName: current.FirstName, LastName: current.LastName, Username: current.Username}
	if parts := strings.Fields(pu.FullName); len(parts) > 0 {
		patch.FirstName = parts[0]
		if len(parts) > 1 {
			patch.LastName = strings.Join(parts[1:], " ")
		}
	}
	if pu.Username != "" {
		patch.Username = pu.Username
	}
	return patch
}

// Apply returns the profile for an updated user, carrying the client-only fields.
func (pu ProfileUpdate) Apply(updated users.User, now time.Time) Profile {
	p := ProfileFromUser(updated, now)
	p.AvatarURL = pu.AvatarURL
	p.Phone = pu.Phone
	p.Bio = pu.Bio
	return p
}
