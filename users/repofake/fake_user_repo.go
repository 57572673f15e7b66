package fakeuserrepo

import (
	"strings"
	"sync"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[int]*users.User
	usernameIds map[string]int // lower-cased username to user id
	nextID      int
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[int]*users.User),
		usernameIds: make(map[string]int),
		nextID:      1,
	}
}

// Create assigns the next id to user and stores it.
func (ur *FakeUserRepo) Create(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	key := strings.ToLower(user.Username)
	if _, ok := ur.usernameIds[key]; ok {
		return users.ErrUsernameTaken
	}
	user.ID = ur.nextID
	ur.nextID++
	stored := *user
	ur.users[user.ID] = &stored
	ur.usernameIds[key] = user.ID
	return nil
}

func (ur *FakeUserRepo) Update(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	existing, ok := ur.users[user.ID]
	if !ok {
		return errors.ErrNotFound
	}
	oldKey, newKey := strings.ToLower(existing.Username), strings.ToLower(user.Username)
	if oldKey != newKey {
		if _, taken := ur.usernameIds[newKey]; taken {
			return users.ErrUsernameTaken
		}
		delete(ur.usernameIds, oldKey)
		ur.usernameIds[newKey] = user.ID
	}
	stored := *user
	ur.users[user.ID] = &stored
	return nil
}

func (ur *FakeUserRepo) GetByID(id int) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	id, ok := ur.usernameIds[strings.ToLower(username)]
	ur.lock.RUnlock()
	if !ok {
		return nil, errors.ErrNotFound
	}
	return ur.GetByID(id)
}

func (ur *FakeUserRepo) Count() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}
