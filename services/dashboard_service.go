package services

import (
	"context"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/repository"
)

const (
	DefaultLogLimit = 50
	MaxLogLimit     = 500
)

// DashboardService answers the read-only dashboard endpoints.
type DashboardService interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
	// Logs returns the newest logs. limit <= 0 means DefaultLogLimit and
	// anything above MaxLogLimit is capped.
	Logs(ctx context.Context, limit int) ([]models.ProcessingLog, error)
}

type dashboardService struct {
	siteRepo  repository.SiteRepository
	squadRepo repository.SquadRepository
	userRepo  repository.UserRepository
	logRepo   repository.LogRepository
}

// NewDashboardService wires the service.
func NewDashboardService(
	siteRepo repository.SiteRepository,
	squadRepo repository.SquadRepository,
	userRepo repository.UserRepository,
	logRepo repository.LogRepository,
) DashboardService {
	return &dashboardService{
		siteRepo:  siteRepo,
		squadRepo: squadRepo,
		userRepo:  userRepo,
		logRepo:   logRepo,
	}
}

func (s *dashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	total, active, err := s.siteRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	squads, err := s.squadRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.logRepo.LastCreatedAt(ctx)
	if err != nil {
		return nil, err
	}

	return &models.DashboardStats{
		TotalSites:  total,
		ActiveSites: active,
		TotalUsers:  users,
		TotalSquads: squads,
		LastUpdate:  last,
	}, nil
}

func (s *dashboardService) Logs(ctx context.Context, limit int) ([]models.ProcessingLog, error) {
	return s.logRepo.ListRecent(ctx, ClampLogLimit(limit))
}

// ClampLogLimit applies the default and the cap of the logs endpoint.
func ClampLogLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLogLimit
	case limit > MaxLogLimit:
		return MaxLogLimit
	default:
		return limit
	}
}
