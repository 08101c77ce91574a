package repository

import (
	"context"

	"github.com/cargaslack/carga/models"
)

// SiteRepository stores sites and their column mapping. Reads join the
// squad so SquadName and HasWebhook are always filled.
type SiteRepository interface {
	Create(ctx context.Context, site *models.Site) error
	GetByID(ctx context.Context, id int64) (*models.Site, error)
	GetByName(ctx context.Context, name string) (*models.Site, error)
	List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error)
	ListActive(ctx context.Context) ([]models.Site, error)
	Update(ctx context.Context, site *models.Site) error
	Delete(ctx context.Context, id int64) error
	DeleteByName(ctx context.Context, name string) error
	// Count returns the total and the active number of sites.
	Count(ctx context.Context) (total int, active int, err error)
}
