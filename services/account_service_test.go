package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
)

func TestAuthLoginFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	auth := NewAuthService(env.users, "test-secret", time.Hour, 30*24*time.Hour, nop)

	require.NoError(t, auth.EnsureDefaultAdmin(ctx))
	require.NoError(t, auth.EnsureDefaultAdmin(ctx), "second seed is a no-op")

	resp, err := auth.Login(ctx, &models.LoginRequest{Username: "admin", Password: DefaultAdminPassword})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Empty(t, resp.User.PasswordHash)

	claims, err := auth.ValidateAccessToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	me, err := auth.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Username)

	_, err = auth.Login(ctx, &models.LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
	var apiErr *pkg.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, pkg.CodeInvalidCredentials, apiErr.Code)

	_, err = auth.Login(ctx, &models.LoginRequest{Username: "ghost", Password: "whatever"})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = auth.Login(ctx, &models.LoginRequest{Username: "admin"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = auth.ValidateAccessToken(resp.Token + "x")
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestAuthExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	auth := NewAuthService(env.users, "test-secret", time.Hour, time.Hour, nop).(*authService)

	token, err := auth.signToken(&models.User{ID: 1, Username: "x", Role: models.RoleViewer}, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	_, err = auth.ValidateAccessToken(token)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestUserCreateAndChangePassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mailer := &fakeMailer{}
	users := NewUserService(env.users, mailer, nop)
	auth := NewAuthService(env.users, "test-secret", time.Hour, time.Hour, nop)

	created, err := users.Create(ctx, &models.CreateUserRequest{Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Len(t, created.Password, 12)
	assert.True(t, created.User.MustChangePassword)
	assert.Equal(t, "ana@example.com", created.User.Username)
	assert.Equal(t, models.RoleViewer, created.User.Role)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, created.Password, mailer.sent[0].password)

	resp, err := auth.Login(ctx, &models.LoginRequest{Username: "ana@example.com", Password: created.Password})
	require.NoError(t, err)
	assert.True(t, resp.User.MustChangePassword)

	user, err := auth.ChangePassword(ctx, resp.User.ID, &models.ChangePasswordRequest{NewPassword: "segredo1"})
	require.NoError(t, err)
	assert.False(t, user.MustChangePassword)

	_, err = auth.ChangePassword(ctx, resp.User.ID, &models.ChangePasswordRequest{NewPassword: "123"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = users.Create(ctx, &models.CreateUserRequest{Email: "ana@example.com"})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)
}

func TestUserUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	users := NewUserService(env.users, nil, nop)

	created, err := users.Create(ctx, &models.CreateUserRequest{Email: "bia@example.com", Username: "bia"})
	require.NoError(t, err)
	id := created.User.ID

	admin := models.RoleAdmin
	updated, err := users.Update(ctx, id, &models.UpdateUserRequest{
		Username: strp(" beatriz "),
		Email:    strp("beatriz@example.com"),
		Role:     &admin,
	})
	require.NoError(t, err)
	assert.Equal(t, "beatriz", updated.Username)
	assert.Equal(t, "beatriz@example.com", *updated.Email)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.True(t, updated.MustChangePassword, "an admin reset keeps the flag")

	_, err = users.Update(ctx, id, &models.UpdateUserRequest{Password: strp("abc")})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	assert.ErrorIs(t, users.Delete(ctx, id, id), pkg.ErrBadRequest)
	require.NoError(t, users.Delete(ctx, 999, id))
	assert.ErrorIs(t, users.Delete(ctx, 999, id), pkg.ErrNotFound)

	list, err := users.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		p, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, p, 12)
		for _, r := range p {
			assert.True(t, strings.ContainsRune(generatedPasswordChars, r), "unexpected %q", r)
		}
		seen[p] = true
	}
	assert.Greater(t, len(seen), 45)
}
