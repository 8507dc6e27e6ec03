package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{values: map[string]string{}}
}

func (s *memStorage) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (s *memStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

type fakeAPI struct {
	mu       sync.Mutex
	identity Identity
	token    string
	err      error
	calls    int
}

func (a *fakeAPI) Login(_ context.Context, _, _ string) (Identity, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return Identity{}, "", a.err
	}
	return a.identity, a.token, nil
}

func (a *fakeAPI) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func operationsAPI() *fakeAPI {
	return &fakeAPI{
		identity: Identity{SubjectID: "u-1", Username: "alice", Role: "operations"},
		token:    "signed-token",
	}
}

func TestLoginSuccessNotifiesOnce(t *testing.T) {
	api := operationsAPI()
	storage := newMemStorage()
	store := New(api, storage, nil)

	var notifications []Session
	store.Subscribe(func(s Session) { notifications = append(notifications, s) })

	require.NoError(t, store.Login(context.Background(), "alice", "pw123"))

	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "operations", store.Role())
	assert.Equal(t, "signed-token", store.Token())

	require.Len(t, notifications, 1)
	assert.True(t, notifications[0].Authenticated)
	assert.Equal(t, "alice", notifications[0].User.Username)

	assert.True(t, storage.has(StorageKeyToken))
	assert.True(t, storage.has(StorageKeyIdentity))
}

func TestLoginFailurePropagatesError(t *testing.T) {
	loginErr := errors.New("invalid username or password")
	store := New(&fakeAPI{err: loginErr}, newMemStorage(), nil)

	var notifications int
	store.Subscribe(func(Session) { notifications++ })

	err := store.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, loginErr)
	assert.False(t, store.IsAuthenticated())
	assert.Zero(t, notifications)
}

func TestLogoutClearsStateAndStorage(t *testing.T) {
	storage := newMemStorage()
	store := New(operationsAPI(), storage, nil)
	require.NoError(t, store.Login(context.Background(), "alice", "pw123"))

	var notifications int
	store.Subscribe(func(Session) { notifications++ })

	store.Logout()
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Role())
	assert.False(t, storage.has(StorageKeyToken))
	assert.False(t, storage.has(StorageKeyIdentity))
	assert.Equal(t, 1, notifications)

	// idempotent: second logout produces no further transition
	store.Logout()
	assert.Equal(t, 1, notifications)
}

func TestSubscribersNotifiedInRegistrationOrder(t *testing.T) {
	store := New(operationsAPI(), newMemStorage(), nil)

	var order []string
	store.Subscribe(func(Session) { order = append(order, "first") })
	store.Subscribe(func(Session) { order = append(order, "second") })
	store.Subscribe(func(Session) { order = append(order, "third") })

	require.NoError(t, store.Login(context.Background(), "alice", "pw123"))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestPanickingListenerDoesNotBlockOthers(t *testing.T) {
	store := New(operationsAPI(), newMemStorage(), nil)

	var delivered bool
	store.Subscribe(func(Session) { panic("listener bug") })
	store.Subscribe(func(Session) { delivered = true })

	require.NoError(t, store.Login(context.Background(), "alice", "pw123"))
	assert.True(t, delivered)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store := New(operationsAPI(), newMemStorage(), nil)

	var notifications int
	unsubscribe := store.Subscribe(func(Session) { notifications++ })

	require.NoError(t, store.Login(context.Background(), "alice", "pw123"))
	assert.Equal(t, 1, notifications)

	unsubscribe()
	store.Logout()
	assert.Equal(t, 1, notifications)
}

func TestBootstrapFromPersistedState(t *testing.T) {
	storage := newMemStorage()
	rawIdentity, err := json.Marshal(Identity{SubjectID: "u-1", Username: "alice", Role: "executive"})
	require.NoError(t, err)
	require.NoError(t, storage.Set(StorageKeyToken, "persisted-token"))
	require.NoError(t, storage.Set(StorageKeyIdentity, string(rawIdentity)))

	api := operationsAPI()
	store := New(api, storage, nil)

	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "executive", store.Role())
	assert.Equal(t, "persisted-token", store.Token())
	assert.Zero(t, api.callCount(), "bootstrap must not hit the network")
}

func TestBootstrapPartialStateIsAnonymous(t *testing.T) {
	storage := newMemStorage()
	require.NoError(t, storage.Set(StorageKeyToken, "orphan-token"))

	store := New(operationsAPI(), storage, nil)

	assert.False(t, store.IsAuthenticated())
	assert.False(t, storage.has(StorageKeyToken), "orphaned key is purged")
}

func TestBootstrapCorruptIdentityIsAnonymous(t *testing.T) {
	storage := newMemStorage()
	require.NoError(t, storage.Set(StorageKeyToken, "token"))
	require.NoError(t, storage.Set(StorageKeyIdentity, "{broken"))

	store := New(operationsAPI(), storage, nil)

	assert.False(t, store.IsAuthenticated())
	assert.False(t, storage.has(StorageKeyToken))
	assert.False(t, storage.has(StorageKeyIdentity))
}

func TestHasPermission(t *testing.T) {
	store := New(operationsAPI(), newMemStorage(), nil)
	assert.False(t, store.HasPermission("operations"), "anonymous has no permissions")

	require.NoError(t, store.Login(context.Background(), "alice", "pw123"))
	assert.True(t, store.HasPermission("operations"))
	assert.False(t, store.HasPermission("executive"))
}

func TestHasPermissionAdminBypass(t *testing.T) {
	api := &fakeAPI{
		identity: Identity{SubjectID: "u-2", Username: "root", Role: "admin"},
		token:    "admin-token",
	}
	store := New(api, newMemStorage(), nil)
	require.NoError(t, store.Login(context.Background(), "root", "pw123"))

	for _, required := range []string{"admin", "executive", "operations"} {
		assert.True(t, store.HasPermission(required), required)
	}
}
