package client

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/models"
)

// UsersService wraps the admin-only /users endpoints.
type UsersService struct {
	api *API
}

func NewUsersService(api *API) *UsersService {
	return &UsersService{api: api}
}

func (s *UsersService) GetAll(ctx context.Context) []models.User {
	var list models.UserList
	if err := s.api.Get(ctx, "/users", nil, &list); err != nil {
		s.api.logger.Warn("list users failed", zap.Error(err))
		return []models.User{}
	}
	if list.Users == nil {
		return []models.User{}
	}
	return list.Users
}

func (s *UsersService) GetByID(ctx context.Context, id int64) *models.User {
	var user models.User
	if err := s.api.Get(ctx, "/users/"+strconv.FormatInt(id, 10), nil, &user); err != nil {
		s.api.logger.Warn("get user failed", zap.Int64("user_id", id), zap.Error(err))
		return nil
	}
	return &user
}

// Create returns the generated one-time password with the new user. It is
// the only time the password can be read.
func (s *UsersService) Create(ctx context.Context, req *models.CreateUserRequest) *models.CreatedUser {
	var created models.CreatedUser
	if err := s.api.Post(ctx, "/users", req, &created); err != nil {
		s.api.logger.Warn("create user failed", zap.String("email", req.Email), zap.Error(err))
		return nil
	}
	return &created
}

func (s *UsersService) Update(ctx context.Context, id int64, req *models.UpdateUserRequest) *models.User {
	user := &models.User{}
	if err := s.api.Put(ctx, "/users/"+strconv.FormatInt(id, 10), req, user); err != nil {
		s.api.logger.Warn("update user failed", zap.Int64("user_id", id), zap.Error(err))
		return nil
	}
	return user
}

func (s *UsersService) Delete(ctx context.Context, id int64) bool {
	if err := s.api.Delete(ctx, "/users/"+strconv.FormatInt(id, 10), nil); err != nil {
		s.api.logger.Warn("delete user failed", zap.Int64("user_id", id), zap.Error(err))
		return false
	}
	return true
}
