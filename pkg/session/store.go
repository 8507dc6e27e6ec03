package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Identity is the client's view of the server-issued credential payload.
// Role lives here and nowhere else; the store never caches it separately.
type Identity struct {
	SubjectID string `json:"subject_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// Session is the client's authentication state snapshot. Authenticated is
// true iff both the identity and the token are present.
type Session struct {
	User          *Identity
	Token         string
	Authenticated bool
}

// Listener receives the full session snapshot on every state transition.
type Listener func(Session)

// AuthAPI is the server call the store makes on login.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (Identity, string, error)
}

type listenerEntry struct {
	id int
	fn Listener
}

// Store owns the single client session. Construct exactly one per process and
// pass it by reference; state changes only through Login and Logout.
type Store struct {
	// mu serializes login/logout end to end so storage writes and
	// notifications from concurrent operations cannot interleave.
	mu        sync.Mutex
	api       AuthAPI
	storage   Storage
	logger    *zap.Logger
	session   Session
	listeners []listenerEntry
	nextID    int
}

// New builds the store and bootstraps it from persisted state without any
// network call. A previously stored token is trusted until a server call
// rejects it; partial persisted state is purged and treated as Anonymous.
func New(api AuthAPI, storage Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		api:     api,
		storage: storage,
		logger:  logger,
	}
	s.bootstrap()
	return s
}

func (s *Store) lock()   { s.mu.Lock() }
func (s *Store) unlock() { s.mu.Unlock() }

func (s *Store) bootstrap() {
	token, tokenErr := s.storage.Get(StorageKeyToken)
	rawIdentity, identityErr := s.storage.Get(StorageKeyIdentity)

	if tokenErr != nil || identityErr != nil || token == "" || rawIdentity == "" {
		s.clearStorage()
		return
	}

	var identity Identity
	if err := json.Unmarshal([]byte(rawIdentity), &identity); err != nil {
		s.logger.Warn("discarding unreadable persisted identity", zap.Error(err))
		s.clearStorage()
		return
	}

	s.session = Session{User: &identity, Token: token, Authenticated: true}
}

// Login authenticates against the server. On success both storage keys are
// written, memory is updated and subscribers are notified; on failure the
// store stays Anonymous and the server's error is returned verbatim.
func (s *Store) Login(ctx context.Context, username, password string) error {
	s.lock()
	defer s.unlock()

	if s.api == nil {
		return ErrNoAPI
	}
	identity, token, err := s.api.Login(ctx, username, password)
	if err != nil {
		return err
	}

	rawIdentity, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	if err := s.storage.Set(StorageKeyToken, token); err != nil {
		return err
	}
	if err := s.storage.Set(StorageKeyIdentity, string(rawIdentity)); err != nil {
		// roll back the token write so storage never holds partial state
		_ = s.storage.Delete(StorageKeyToken)
		return err
	}

	s.session = Session{User: &identity, Token: token, Authenticated: true}
	s.notify()
	return nil
}

// Logout clears storage and memory and notifies subscribers. Calling it while
// already Anonymous is a no-op with no notification.
func (s *Store) Logout() {
	s.lock()
	defer s.unlock()
	s.logoutLocked()
}

func (s *Store) logoutLocked() {
	if !s.session.Authenticated {
		return
	}
	s.clearStorage()
	s.session = Session{}
	s.notify()
}

func (s *Store) clearStorage() {
	if err := s.storage.Delete(StorageKeyToken); err != nil {
		s.logger.Warn("failed to clear stored token", zap.Error(err))
	}
	if err := s.storage.Delete(StorageKeyIdentity); err != nil {
		s.logger.Warn("failed to clear stored identity", zap.Error(err))
	}
}

// Subscribe registers a listener invoked synchronously on every state
// transition with the current snapshot. The returned function removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.lock()
	defer s.unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		s.lock()
		defer s.unlock()
		for i, entry := range s.listeners {
			if entry.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// notify delivers the snapshot in registration order. A panicking listener
// must not prevent delivery to the rest.
func (s *Store) notify() {
	snapshot := s.session
	for _, entry := range s.listeners {
		s.deliver(entry.fn, snapshot)
	}
}

func (s *Store) deliver(fn Listener, snapshot Session) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("session listener panicked", zap.Any("panic", r))
		}
	}()
	fn(snapshot)
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Session {
	s.lock()
	defer s.unlock()
	return s.session
}

// IsAuthenticated reports whether both credential and token are present.
func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().Authenticated
}

// Token returns the current bearer token, empty when Anonymous.
func (s *Store) Token() string {
	return s.Snapshot().Token
}

// Role derives the role strictly from the credential payload.
func (s *Store) Role() string {
	snapshot := s.Snapshot()
	if snapshot.User == nil {
		return ""
	}
	return snapshot.User.Role
}

// HasPermission reports whether the current role satisfies the required one.
// Admin satisfies any requirement.
func (s *Store) HasPermission(required string) bool {
	snapshot := s.Snapshot()
	if !snapshot.Authenticated || snapshot.User == nil {
		return false
	}
	if snapshot.User.Role == "admin" {
		return true
	}
	return snapshot.User.Role == required
}

// ErrNoAPI is returned when Login is called on a store built without an API.
var ErrNoAPI = errors.New("session: no auth API configured")
