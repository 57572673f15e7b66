package sessions

import (
	"encoding/json"
	"sync"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/users"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Keys the web client has always used, so a session written by one client is
// readable by the other.
const (
	TokensKey = "django_tokens"
	UserKey   = "django_user"
)

// KV is a durable string key-value store.
type KV interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// ErrCorruptValue is returned by a KV when a stored value cannot be read back.
var ErrCorruptValue = pkgerrors.New("stored value is corrupt")

// Store persists a Session under two fixed keys. It never hands out a partial session.
type Store struct {
	kv KV
	mu sync.Mutex
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Save writes the token pair and the user snapshot.
func (s *Store) Save(session Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	tokens, err := json.Marshal(session.Tokens)
	if err != nil {
		return pkgerrors.Wrap(err, "[Store.Save] marshal tokens")
	}
	user, err := json.Marshal(session.User)
	if err != nil {
		return pkgerrors.Wrap(err, "[Store.Save] marshal user")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(TokensKey, string(tokens)); err != nil {
		return pkgerrors.Wrap(err, "[Store.Save] write tokens")
	}
	if err := s.kv.Set(UserKey, string(user)); err != nil {
		s.clearLocked()
		return pkgerrors.Wrap(err, "[Store.Save] write user")
	}
	return nil
}

// Load returns the persisted session, or nil when there is none. A missing key,
// unparsable value or half-populated token pair clears both keys and yields nil.
// Only a failing backend produces an error.
func (s *Store) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rawTokens, tokensFound, err := s.kv.Get(TokensKey)
	if err != nil && !errors.Is(err, ErrCorruptValue) {
		return nil, pkgerrors.Wrap(err, "[Store.Load] read tokens")
	}
	tokensCorrupt := err != nil

	rawUser, userFound, err := s.kv.Get(UserKey)
	if err != nil && !errors.Is(err, ErrCorruptValue) {
		return nil, pkgerrors.Wrap(err, "[Store.Load] read user")
	}
	userCorrupt := err != nil

	if !tokensFound && !userFound && !tokensCorrupt && !userCorrupt {
		return nil, nil
	}
	if tokensCorrupt || userCorrupt || !tokensFound || !userFound {
		log.Warn().Bool("tokens", tokensFound).Bool("user", userFound).Msg("[Store.Load] incomplete session in storage, clearing")
		s.clearLocked()
		return nil, nil
	}

	var session Session
	if err := json.Unmarshal([]byte(rawTokens), &session.Tokens); err != nil {
		log.Warn().Err(err).Msg("[Store.Load] unreadable tokens, clearing")
		s.clearLocked()
		return nil, nil
	}
	var user users.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		log.Warn().Err(err).Msg("[Store.Load] unreadable user, clearing")
		s.clearLocked()
		return nil, nil
	}
	session.User = user
	if err := session.Validate(); err != nil {
		log.Warn().Err(err).Msg("[Store.Load] clearing")
		s.clearLocked()
		return nil, nil
	}
	return &session, nil
}

// Clear removes both keys. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *Store) clearLocked() error {
	errTokens := s.kv.Remove(TokensKey)
	errUser := s.kv.Remove(UserKey)
	if errTokens != nil {
		return pkgerrors.Wrap(errTokens, "[Store.Clear] remove tokens")
	}
	if errUser != nil {
		return pkgerrors.Wrap(errUser, "[Store.Clear] remove user")
	}
	return nil
}
