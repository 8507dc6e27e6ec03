package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Durable storage keys. Token and identity are always written together and
// cleared together; one without the other is treated as Anonymous.
const (
	StorageKeyToken    = "auth_token"
	StorageKeyIdentity = "auth_identity"
)

// ErrKeyNotFound indicates the key has no stored value.
var ErrKeyNotFound = errors.New("session: key not found")

// Storage persists session state across process restarts.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// FileStorage keeps key/value pairs in a single JSON file, the desktop
// analogue of browser local storage.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage builds storage backed by the given file path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Get returns the stored value or ErrKeyNotFound.
func (s *FileStorage) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

// Set stores a value under the key.
func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *FileStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *FileStorage) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		// corrupt file is treated as empty rather than fatal
		return map[string]string{}, nil
	}
	return values, nil
}

func (s *FileStorage) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
