// Package repository is the persistence layer. Services depend on the
// interfaces declared here; the SQLite implementations live in sqlite_*.go
// and accept a database.TxQuerier so they run inside or outside a
// transaction unchanged.
package repository

import (
	"context"

	"github.com/cargaslack/carga/models"
)

// UserRepository stores dashboard accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetByLogin matches either the username or the email.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	// Update writes username, email and role.
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string, mustChange bool) error
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int64) error
}
