package users

import "errors"

var ErrUsernameTaken = errors.New("A user with that username already exists.")

type UserRepo interface {
	Create(user *User) error
	Update(user *User) error
	GetByID(id int) (*User, error)
	GetByUsername(username string) (*User, error)
	Count() int
}
