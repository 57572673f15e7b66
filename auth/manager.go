// Package auth owns the signed-in session: sign-up, sign-in, sign-out, startup
// validation and token refresh. It is the only writer of the persisted session.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/sessions"
	"github.com/jrsteele09/go-marketplace-client/users"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultRefreshSkew = 30 * time.Second

// API is the part of the backend the manager talks to.
type API interface {
	Login(ctx context.Context, username, password string) (*apiclient.AuthResponse, error)
	Register(ctx context.Context, reg users.Registration) (*apiclient.AuthResponse, error)
	CurrentUser(ctx context.Context, token string) (*users.User, error)
	RefreshAccessToken(ctx context.Context, refresh string) (*apiclient.RefreshResponse, error)
}

var _ API = (*apiclient.Client)(nil)

// SignUpRequest carries the registration form. FirstName and LastName are optional.
type SignUpRequest = users.Registration

// Manager holds the current session. Mutating operations are serialized; readers
// never wait on network calls.
type Manager struct {
	api     API
	store   *sessions.Store
	skew    time.Duration
	nowTime func() time.Time

	opMu sync.Mutex // serializes Init, SignIn, SignUp, SignOut and Refresh

	mu        sync.RWMutex
	state     State
	loading   bool
	session   *sessions.Session
	listeners map[int]func(State)
	nextID    int
}

type Option func(*Manager)

// WithNowTime sets the clock used to decide proactive refreshes (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithRefreshSkew refreshes access tokens this long before they expire.
func WithRefreshSkew(d time.Duration) Option {
	return func(m *Manager) {
		m.skew = d
	}
}

func NewManager(api API, store *sessions.Store, opts ...Option) (*Manager, error) {
	if api == nil {
		return nil, pkgerrors.New("[NewManager] api is required")
	}
	if store == nil {
		return nil, pkgerrors.New("[NewManager] session store is required")
	}
	m := &Manager{
		api:       api,
		store:     store,
		skew:      defaultRefreshSkew,
		nowTime:   time.Now,
		state:     Unauthenticated,
		loading:   true,
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Init restores a persisted session and validates it against the backend. Any
// validation failure leaves a clean signed-out state; only storage errors are returned.
func (m *Manager) Init(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	defer m.setLoading(false)

	session, err := m.store.Load()
	if err != nil {
		m.setSession(nil, Unauthenticated)
		return pkgerrors.Wrap(err, "[Manager.Init] load session")
	}
	if session == nil {
		m.setSession(nil, Unauthenticated)
		return nil
	}

	m.setSession(session, Validating)
	user, err := m.api.CurrentUser(ctx, session.Tokens.Access)
	if err != nil {
		log.Warn().Err(err).Int("user_id", session.User.ID).Msg("[Manager.Init] stored session rejected, signing out")
		if err := m.clearLocked(); err != nil {
			log.Err(err).Msg("[Manager.Init]")
		}
		return nil
	}

	validated := sessions.Session{User: *user, Tokens: session.Tokens}
	if err := m.store.Save(validated); err != nil {
		log.Err(err).Msg("[Manager.Init] persisting refreshed user")
	}
	m.setSession(&validated, Authenticated)
	return nil
}

// SignIn authenticates against the login endpoint. On failure the current state is
// left untouched and the error is returned.
func (m *Manager) SignIn(ctx context.Context, username, password string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	resp, err := m.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return m.establishLocked(resp, "[Manager.SignIn]")
}

// SignUp registers a new account and signs it in. Same failure contract as SignIn.
func (m *Manager) SignUp(ctx context.Context, req SignUpRequest) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	resp, err := m.api.Register(ctx, req)
	if err != nil {
		return err
	}
	return m.establishLocked(resp, "[Manager.SignUp]")
}

func (m *Manager) establishLocked(resp *apiclient.AuthResponse, op string) error {
	session := sessions.Session{User: resp.User, Tokens: resp.Tokens}
	if err := session.Validate(); err != nil {
		return pkgerrors.Wrap(err, op)
	}
	if err := m.store.Save(session); err != nil {
		return pkgerrors.Wrap(err, op+" persist session")
	}
	m.setSession(&session, Authenticated)
	log.Info().Int("user_id", session.User.ID).Msg(op + " signed in")
	return nil
}

// SignOut drops the session from memory and storage. Safe to call repeatedly.
func (m *Manager) SignOut() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.clearLocked()
}

func (m *Manager) clearLocked() error {
	m.setSession(nil, Unauthenticated)
	if err := m.store.Clear(); err != nil {
		return pkgerrors.Wrap(err, "[Manager.SignOut] clear store")
	}
	return nil
}

// Refresh exchanges the refresh token for a new access token. Without a refresh
// token it fails with ErrNoRefreshToken and makes no call. Any other failure signs
// the session out and is reported as ErrSessionInvalid.
func (m *Manager) Refresh(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.refreshLocked(ctx)
}

// RefreshToken is Refresh reduced to success or failure.
func (m *Manager) RefreshToken(ctx context.Context) bool {
	return m.Refresh(ctx) == nil
}

func (m *Manager) refreshLocked(ctx context.Context) error {
	current := m.Session()
	if current == nil || current.Tokens.Refresh == "" {
		return errors.ErrNoRefreshToken
	}

	m.setSession(current, Refreshing)
	resp, err := m.api.RefreshAccessToken(ctx, current.Tokens.Refresh)
	if err == nil && resp.Access == "" {
		err = pkgerrors.New("refresh response carried no access token")
	}
	if err != nil {
		log.Warn().Err(err).Int("user_id", current.User.ID).Msg("[Manager.Refresh] refresh failed, signing out")
		if clearErr := m.clearLocked(); clearErr != nil {
			log.Err(clearErr).Msg("[Manager.Refresh]")
		}
		return fmt.Errorf("[Manager.Refresh] %w: %w", errors.ErrSessionInvalid, err)
	}

	updated := *current
	updated.Tokens.Access = resp.Access
	if resp.Refresh != "" {
		updated.Tokens.Refresh = resp.Refresh
	}
	if err := m.store.Save(updated); err != nil {
		log.Warn().Err(err).Int("user_id", current.User.ID).Msg("[Manager.Refresh] persisting tokens failed, signing out")
		if clearErr := m.clearLocked(); clearErr != nil {
			log.Err(clearErr).Msg("[Manager.Refresh]")
		}
		return fmt.Errorf("[Manager.Refresh] %w: %w", errors.ErrSessionInvalid, err)
	}
	m.setSession(&updated, Authenticated)
	log.Debug().Int("user_id", updated.User.ID).Bool("rotated", resp.Refresh != "").Msg("[Manager.Refresh] access token refreshed")
	return nil
}

// Subscribe registers fn for state transitions and returns a function that removes it.
// Listeners run synchronously and must not call SignIn, SignUp, SignOut or Refresh.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) setSession(session *sessions.Session, state State) {
	m.mu.Lock()
	if session != nil {
		cp := *session
		session = &cp
	}
	m.session = session
	changed := m.state != state
	m.state = state
	listeners := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	log.Info().Str("state", state.String()).Msg("[Manager] session state")
	for _, fn := range listeners {
		fn(state)
	}
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = loading
}

// Loading is true until Init has finished.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) IsAuthenticated() bool {
	return m.State() == Authenticated
}

// Session returns a copy of the current session, or nil.
func (m *Manager) Session() *sessions.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	cp := *m.session
	return &cp
}

// User returns the signed-in user, or nil.
func (m *Manager) User() *users.User {
	s := m.Session()
	if s == nil {
		return nil
	}
	return &s.User
}

func (m *Manager) Tokens() sessions.Tokens {
	s := m.Session()
	if s == nil {
		return sessions.Tokens{}
	}
	return s.Tokens
}

func (m *Manager) AccessToken() string {
	return m.Tokens().Access
}
