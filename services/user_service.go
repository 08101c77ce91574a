package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/email"
	"github.com/cargaslack/carga/repository"
)

const (
	generatedPasswordLength = 12
	generatedPasswordChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

	emailTimeout = 15 * time.Second
)

// UserService is the admin-only account management.
type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	// Create generates a one-time password and returns it once.
	Create(ctx context.Context, req *models.CreateUserRequest) (*models.CreatedUser, error)
	Update(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.User, error)
	// Delete refuses to remove the acting admin.
	Delete(ctx context.Context, actorID, id int64) error
}

type userService struct {
	userRepo repository.UserRepository
	mailer   email.Sender
	logger   *zap.Logger
}

// NewUserService wires the service. mailer may be nil; the generated
// password is then only returned in the response.
func NewUserService(userRepo repository.UserRepository, mailer email.Sender, logger *zap.Logger) UserService {
	return &userService{userRepo: userRepo, mailer: mailer, logger: logger}
}

func (s *userService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.CreatedUser, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	password, err := GeneratePassword()
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	mail := req.Email
	user := &models.User{
		Username:           req.Username,
		Email:              &mail,
		PasswordHash:       string(hash),
		Role:               req.Role,
		MustChangePassword: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))

	if s.mailer != nil {
		// Delivery failure does not undo the account; the admin still
		// receives the password in the response.
		mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emailTimeout)
		defer cancel()
		if err := s.mailer.SendGeneratedPassword(mailCtx, mail, user.Username, password); err != nil {
			s.logger.Warn("failed to mail generated password", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	user.PasswordHash = ""
	return &models.CreatedUser{Password: password, User: user}, nil
}

func (s *userService) Update(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil || req.Email != nil || req.Role != nil {
		if req.Username != nil {
			user.Username = *req.Username
		}
		if req.Email != nil {
			if *req.Email == "" {
				user.Email = nil
			} else {
				user.Email = req.Email
			}
		}
		if req.Role != nil {
			user.Role = *req.Role
		}
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		if err := s.userRepo.UpdatePassword(ctx, id, string(hash), user.MustChangePassword); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, id)
}

func (s *userService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return fmt.Errorf("%w: cannot delete your own account", pkg.ErrBadRequest)
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("by", actorID))
	return nil
}

// GeneratePassword returns 12 characters drawn uniformly from letters,
// digits and !@#$%^&*.
func GeneratePassword() (string, error) {
	limit := big.NewInt(int64(len(generatedPasswordChars)))
	out := make([]byte, generatedPasswordLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		out[i] = generatedPasswordChars[n.Int64()]
	}
	return string(out), nil
}
