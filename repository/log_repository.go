package repository

import (
	"context"
	"time"

	"github.com/cargaslack/carga/models"
)

// LogRepository is the append-only processing log.
type LogRepository interface {
	Create(ctx context.Context, log *models.ProcessingLog) error
	// ListRecent returns at most limit rows, newest first.
	ListRecent(ctx context.Context, limit int) ([]models.ProcessingLog, error)
	// LastCreatedAt is nil when no log exists yet.
	LastCreatedAt(ctx context.Context) (*time.Time, error)
}
