package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cargaslack/carga/models"
)

// Keys of the two persisted records.
const (
	TokenKey = "carga_slack_token"
	UserKey  = "carga_slack_user"
)

// CredentialStore is a small string key/value store, the moral equivalent
// of browser local storage. Values are stored exactly as given.
type CredentialStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(keys ...string) error
}

// FileStore keeps the records in one JSON object on disk. Every call reads
// the file again so several processes can share it.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore does not touch the disk; a missing file is an empty store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path is the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return "", false
	}
	v, ok := records[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every login.
		records = make(map[string]string)
	}
	records[key] = value
	return s.write(records)
}

func (s *FileStore) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		records = make(map[string]string)
	}
	for _, k := range keys {
		delete(records, k)
	}
	return s.write(records)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}
	records := make(map[string]string)
	if len(strings.TrimSpace(string(data))) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("credential file %s: %w", s.path, err)
	}
	return records, nil
}

// write replaces the file through a rename so readers never see half a
// document.
func (s *FileStore) write(records map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// storedToken reads the token record. It is normally JSON-quoted; a raw
// value written by another tool is accepted as is.
func storedToken(store CredentialStore) (string, bool) {
	raw, ok := store.Get(TokenKey)
	if !ok || raw == "" {
		return "", false
	}
	var token string
	if err := json.Unmarshal([]byte(raw), &token); err == nil {
		return token, token != ""
	}
	return raw, true
}

// storedUser decodes the user record; anything unreadable counts as absent.
func storedUser(store CredentialStore) (*models.User, bool) {
	raw, ok := store.Get(UserKey)
	if !ok || raw == "" {
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.Username == "" {
		return nil, false
	}
	return &user, true
}

func saveUser(store CredentialStore, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return store.Set(UserKey, string(data))
}

func saveCredentials(store CredentialStore, token string, user *models.User) error {
	quoted, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := store.Set(TokenKey, string(quoted)); err != nil {
		return err
	}
	return saveUser(store, user)
}

func clearCredentials(store CredentialStore) error {
	return store.Remove(TokenKey, UserKey)
}
