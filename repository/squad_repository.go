package repository

import (
	"context"

	"github.com/cargaslack/carga/models"
)

// SquadRepository stores squads. WebhookURL is persisted as given; the
// service layer decides whether that value is encrypted.
type SquadRepository interface {
	Create(ctx context.Context, squad *models.Squad) error
	GetByName(ctx context.Context, name string) (*models.Squad, error)
	// List returns every squad with its site names, ordered by name.
	List(ctx context.Context) ([]models.Squad, error)
	Update(ctx context.Context, squad *models.Squad) error
	Delete(ctx context.Context, id int64) error
	CountSites(ctx context.Context, squadID int64) (int, error)
	Count(ctx context.Context) (int, error)
}
