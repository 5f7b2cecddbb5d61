package session

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-invoices/invoice"
)

// User is the authenticated user as returned by the remote API.
type User struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Session is the persisted login state. The token is opaque.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Store persists the current session across restarts.
type Store interface {
	Load(ctx context.Context) (Session, bool, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// ExpiryObserver is called once when the remote API rejects the session.
type ExpiryObserver func(ctx context.Context, expired Session)

// Manager is the session context passed to whatever issues requests.
type Manager struct {
	store  Store
	logger invoice.Logger

	mu        sync.RWMutex
	current   Session
	expired   bool
	nextID    int
	observers map[int]ExpiryObserver
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger invoice.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a session manager. A nil store keeps state in memory.
func NewManager(store Store, opts ...Option) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	m := &Manager{
		store:     store,
		logger:    invoice.NopLogger{},
		observers: make(map[int]ExpiryObserver),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Restore loads a previously saved session from the store.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	if m == nil {
		return false, invoice.NewError(invoice.KindInternal, "session manager is nil", nil)
	}
	s, ok, err := m.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if !ok || !s.Valid() {
		return false, nil
	}
	m.mu.Lock()
	m.current = s
	m.expired = false
	m.mu.Unlock()
	return true, nil
}

// Login stores s as the current session.
func (m *Manager) Login(ctx context.Context, s Session) error {
	if m == nil {
		return invoice.NewError(invoice.KindInternal, "session manager is nil", nil)
	}
	if !s.Valid() {
		return invoice.NewError(invoice.KindValidation, "session token is required", nil)
	}
	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	m.mu.Lock()
	m.current = s
	m.expired = false
	m.mu.Unlock()
	return nil
}

// Logout clears the session without notifying expiry observers.
func (m *Manager) Logout(ctx context.Context) error {
	if m == nil {
		return invoice.NewError(invoice.KindInternal, "session manager is nil", nil)
	}
	m.mu.Lock()
	m.current = Session{}
	m.mu.Unlock()
	return m.store.Clear(ctx)
}

// Current returns the active session.
func (m *Manager) Current() (Session, bool) {
	if m == nil {
		return Session{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.current.Valid()
}

// Token returns the bearer token, or "" when logged out.
func (m *Manager) Token() string {
	s, _ := m.Current()
	return s.Token
}

// IsAuthenticated reports whether a session is active.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.Current()
	return ok
}

// OnExpired registers fn and returns a function that removes it.
func (m *Manager) OnExpired(fn ExpiryObserver) func() {
	if m == nil || fn == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Expire clears the session after an authentication failure and notifies
// observers. Only the first call after a login has any effect; it returns
// false for the rest.
func (m *Manager) Expire(ctx context.Context) bool {
	return m.expire(ctx, func(Session) bool { return true })
}

// ExpireToken is Expire limited to the session that issued token. A 401 for
// a request sent before a re-login leaves the newer session alone.
func (m *Manager) ExpireToken(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	return m.expire(ctx, func(current Session) bool { return current.Token == token })
}

func (m *Manager) expire(ctx context.Context, match func(Session) bool) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	if m.expired || !match(m.current) {
		m.mu.Unlock()
		return false
	}
	m.expired = true
	prev := m.current
	m.current = Session{}
	observers := make([]ExpiryObserver, 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Errorf("session: clear expired session: %v", err)
	}
	m.logger.Infof("session expired for %s", prev.User.Email)
	for _, fn := range observers {
		fn(ctx, prev)
	}
	return true
}

// MemoryStore keeps the session in memory (test/dev only).
type MemoryStore struct {
	mu    sync.RWMutex
	saved *Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (Session, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.saved == nil {
		return Session{}, false, nil
	}
	return *s.saved, true, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess Session) error {
	_ = ctx
	s.mu.Lock()
	s.saved = &sess
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	s.saved = nil
	s.mu.Unlock()
	return nil
}
