package users

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

// User mirrors the backend's user serializer. Staff users may open the admin dashboard.
type User struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsStaff      bool       `json:"is_staff,omitempty"`
	DateJoined   *time.Time `json:"date_joined,omitempty"`
	PasswordHash string     `json:"-"` // never serialize
	Disabled     bool       `json:"-"`
}

// FullName joins first and last name, or returns "" when either is missing.
func (u User) FullName() string {
	if u.FirstName == "" || u.LastName == "" {
		return ""
	}
	return u.FirstName + " " + u.LastName
}

// Registration is the payload accepted by the register endpoint.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FieldErrors maps a field name to its validation messages, the shape the backend
// returns for a rejected form.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, msgs := range fe {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, " ")))
	}
	return strings.Join(parts, "; ")
}

// Validate checks a registration the same way the backend serializer does.
func (r Registration) Validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(r.Username) == "" {
		errs.Add("username", "This field is required.")
	}
	if r.Password == "" {
		errs.Add("password", "This field is required.")
	} else if err := ValidatePassword(r.Password); err != nil {
		errs.Add("password", err.Error())
	}
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			errs.Add("email", "Enter a valid email address.")
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("Ensure this field has at least %d characters.", MinPasswordLength)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
