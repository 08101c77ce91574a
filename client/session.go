package client

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cargaslack/carga/models"
)

// Session is the signed-in state shared by every view. Construct it once,
// call Hydrate, and pass it down.
type Session struct {
	auth   *AuthService
	store  CredentialStore
	nav    Navigator
	logger *zap.Logger

	hydrate sync.Once

	mu   sync.RWMutex
	user *models.User
}

func NewSession(auth *AuthService, store CredentialStore, nav Navigator, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{auth: auth, store: store, nav: nav, logger: logger}
}

// Hydrate loads the persisted user once. A missing or unreadable record
// leaves the session signed out.
func (s *Session) Hydrate() {
	s.hydrate.Do(func() {
		s.syncFromStore()
	})
}

func (s *Session) syncFromStore() {
	_, hasToken := storedToken(s.store)
	user, hasUser := storedUser(s.store)

	s.mu.Lock()
	defer s.mu.Unlock()
	if hasToken && hasUser {
		s.user = user
		return
	}
	s.user = nil
}

// Login caches the user on success. remember is forwarded to the server,
// which picks the token lifetime.
func (s *Session) Login(ctx context.Context, username, password string, remember bool) bool {
	result := s.auth.Login(ctx, models.LoginRequest{
		Username: username,
		Password: password,
		Remember: remember,
	})
	if result == nil {
		s.Invalidate()
		return false
	}

	user := result.User
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	s.logger.Info("signed in", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return true
}

// Logout always succeeds.
func (s *Session) Logout() {
	s.Invalidate()
	s.auth.Logout()
}

func (s *Session) ChangePassword(ctx context.Context, newPassword string) bool {
	if !s.auth.ChangePassword(ctx, newPassword) {
		return false
	}
	s.mu.Lock()
	if s.user != nil {
		s.user.MustChangePassword = false
	}
	s.mu.Unlock()
	return true
}

// UpdateUser edits the cached user and writes it back to the store. It is
// a no-op when signed out.
func (s *Session) UpdateUser(fn func(*models.User)) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	fn(s.user)
	updated := *s.user
	s.mu.Unlock()

	if err := saveUser(s.store, &updated); err != nil {
		s.logger.Warn("failed to persist user", zap.Error(err))
	}
}

// IsAuthenticated needs both a cached user and a stored token.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	hasUser := s.user != nil
	s.mu.RUnlock()
	if !hasUser {
		return false
	}
	_, ok := storedToken(s.store)
	return ok
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) IsAdmin() bool {
	return CanManage(s.User())
}

// MustChangePassword is true right after an admin created the account.
func (s *Session) MustChangePassword() bool {
	u := s.User()
	return u != nil && u.MustChangePassword
}

// Invalidate forgets the cached user without touching the store.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// WatchStore follows changes other processes make to the credential file
// at path: a logout elsewhere signs this session out, a login elsewhere
// signs it in. The watch is in place when WatchStore returns; the returned
// channel closes once ctx is done and the watcher is released.
func (s *Session) WatchStore(ctx context.Context, path string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// The file is replaced by rename, so the directory is what gets watched.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer watcher.Close()

		name := filepath.Base(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				s.syncFromStore()
				s.logger.Debug("credential store changed",
					zap.String("op", event.Op.String()),
					zap.Bool("authenticated", s.IsAuthenticated()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("credential watcher error", zap.Error(err))
			}
		}
	}()
	return done, nil
}
