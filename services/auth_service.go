// Package services holds the business rules. Services never see
// http.Request and never run SQL; they take domain models in, return
// domain models or wrapped pkg sentinels out, and reach the database only
// through repository interfaces.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/repository"
)

const (
	bcryptCost = 12

	// Seeded on first start when no "admin" account exists.
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"

	tokenIssuer = "carga-slack"
)

// ErrInvalidCredentials is returned by Login for an unknown login or a
// wrong password; the two cases are indistinguishable on purpose.
var ErrInvalidCredentials = pkg.NewAPIError(http.StatusUnauthorized,
	"invalid username or password", pkg.CodeInvalidCredentials, pkg.ErrUnauthorized)

// AuthService issues and validates access tokens.
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	// Authenticate validates the token and loads the current user row.
	Authenticate(ctx context.Context, tokenString string) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, req *models.ChangePasswordRequest) (*models.User, error)
	EnsureDefaultAdmin(ctx context.Context) error
}

type authService struct {
	userRepo       repository.UserRepository
	jwtSecret      []byte
	expiry         time.Duration
	rememberExpiry time.Duration
	logger         *zap.Logger
}

// NewAuthService wires the service. expiry applies to normal logins,
// rememberExpiry to logins with remember=true.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtSecret string,
	expiry time.Duration,
	rememberExpiry time.Duration,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:       userRepo,
		jwtSecret:      []byte(jwtSecret),
		expiry:         expiry,
		rememberExpiry: rememberExpiry,
		logger:         logger,
	}
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByLogin(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expiry := s.expiry
	if req.Remember {
		expiry = s.rememberExpiry
	}

	token, err := s.signToken(user, time.Now(), expiry)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.Bool("remember", req.Remember))

	user.PasswordHash = ""
	return &models.LoginResponse{Token: token, User: *user}, nil
}

func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}
	return claims, nil
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	// A valid token may outlive its account.
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// ChangePassword needs no current password: it is also how a user with a
// generated password gets out of must_change_password.
func (s *authService) ChangePassword(ctx context.Context, userID int64, req *models.ChangePasswordRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash), false); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) EnsureDefaultAdmin(ctx context.Context) error {
	_, err := s.userRepo.GetByUsername(ctx, DefaultAdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pkg.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}

	admin := &models.User{
		Username:     DefaultAdminUsername,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed default admin: %w", err)
	}

	s.logger.Warn("default admin account created, change its password",
		zap.String("username", DefaultAdminUsername))
	return nil
}

func (s *authService) signToken(user *models.User, now time.Time, expiry time.Duration) (string, error) {
	claims := &models.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
