package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/models"
)

// LoginResult is what a successful login leaves in the store.
type LoginResult struct {
	Token string
	User  models.User
}

// AuthService wraps /auth and owns the persisted credentials.
type AuthService struct {
	api   *API
	store CredentialStore
	nav   Navigator
}

func NewAuthService(api *API, store CredentialStore, nav Navigator) *AuthService {
	return &AuthService{api: api, store: store, nav: nav}
}

// Login stores the token and user on success. Any failure returns nil and
// leaves the store untouched.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) *LoginResult {
	var resp models.LoginResponse
	if err := s.api.Post(ctx, "/auth/login", req, &resp); err != nil {
		s.api.logger.Warn("login failed", zap.String("username", req.Username), zap.Error(err))
		return nil
	}
	if resp.Token == "" {
		s.api.logger.Warn("login answered without a token", zap.String("username", req.Username))
		return nil
	}
	if err := saveCredentials(s.store, resp.Token, &resp.User); err != nil {
		s.api.logger.Error("failed to persist credentials", zap.Error(err))
		return nil
	}
	return &LoginResult{Token: resp.Token, User: resp.User}
}

// ChangePassword clears must_change_password on the stored user when the
// server accepts the new password.
func (s *AuthService) ChangePassword(ctx context.Context, newPassword string) bool {
	body := models.ChangePasswordRequest{NewPassword: newPassword}
	if err := s.api.Post(ctx, "/auth/change-password", body, nil); err != nil {
		s.api.logger.Warn("change password failed", zap.Error(err))
		return false
	}
	if user, ok := storedUser(s.store); ok {
		user.MustChangePassword = false
		if err := saveUser(s.store, user); err != nil {
			s.api.logger.Warn("failed to update stored user", zap.Error(err))
		}
	}
	return true
}

func (s *AuthService) VerifyToken(ctx context.Context) bool {
	var resp models.VerifyResponse
	if err := s.api.Get(ctx, "/auth/verify", nil, &resp); err != nil {
		s.api.logger.Debug("token verification failed", zap.Error(err))
		return false
	}
	return resp.Valid
}

func (s *AuthService) Me(ctx context.Context) *models.User {
	var user models.User
	if err := s.api.Get(ctx, "/auth/me", nil, &user); err != nil {
		s.api.logger.Warn("fetch current user failed", zap.Error(err))
		return nil
	}
	return &user
}

// Logout never talks to the server; tokens simply expire.
func (s *AuthService) Logout() {
	if err := clearCredentials(s.store); err != nil {
		s.api.logger.Warn("failed to clear credentials", zap.Error(err))
	}
	if s.nav != nil {
		s.nav.GoToLogin()
	}
}

// StoredUser is the persisted user, if any.
func (s *AuthService) StoredUser() *models.User {
	user, _ := storedUser(s.store)
	return user
}

// IsAuthenticated only checks that a token is stored.
func (s *AuthService) IsAuthenticated() bool {
	_, ok := storedToken(s.store)
	return ok
}
