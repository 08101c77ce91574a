package client

import (
	"context"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/models"
)

// DefaultLogLimit is how many log rows the dashboard asks for.
const DefaultLogLimit = 50

// DashboardService wraps /dashboard and the manual processing trigger.
type DashboardService struct {
	api *API
}

func NewDashboardService(api *API) *DashboardService {
	return &DashboardService{api: api}
}

func (s *DashboardService) GetStats(ctx context.Context) *models.DashboardStats {
	var stats models.DashboardStats
	if err := s.api.Get(ctx, "/dashboard/stats", nil, &stats); err != nil {
		s.api.logger.Warn("dashboard stats failed", zap.Error(err))
		return nil
	}
	return &stats
}

// GetLogs returns the newest rows first. limit <= 0 means DefaultLogLimit.
func (s *DashboardService) GetLogs(ctx context.Context, limit int) []models.ProcessingLog {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}

	var list models.LogList
	if err := s.api.Get(ctx, "/dashboard/logs", query, &list); err != nil {
		s.api.logger.Warn("dashboard logs failed", zap.Error(err))
		return []models.ProcessingLog{}
	}
	if list.Logs == nil {
		return []models.ProcessingLog{}
	}
	return list.Logs
}

// TriggerManualProcessing reports whether the server accepted the request.
// Joining a run that is already going counts as accepted.
func (s *DashboardService) TriggerManualProcessing(ctx context.Context) bool {
	if err := s.api.Post(ctx, "/process/manual", nil, nil); err != nil {
		s.api.logger.Warn("manual processing failed", zap.Error(err))
		return false
	}
	return true
}
