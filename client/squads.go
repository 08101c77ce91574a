package client

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/models"
)

// SquadsService wraps /squads. Squads are addressed by name.
type SquadsService struct {
	api *API
}

func NewSquadsService(api *API) *SquadsService {
	return &SquadsService{api: api}
}

func (s *SquadsService) GetAll(ctx context.Context) []models.Squad {
	var list models.SquadList
	if err := s.api.Get(ctx, "/squads", nil, &list); err != nil {
		s.api.logger.Warn("list squads failed", zap.Error(err))
		return []models.Squad{}
	}
	if list.Squads == nil {
		return []models.Squad{}
	}
	return list.Squads
}

func (s *SquadsService) Create(ctx context.Context, req *models.CreateSquadRequest) *models.Squad {
	squad := &models.Squad{}
	if err := s.api.Post(ctx, "/squads", req, squad); err != nil {
		s.api.logger.Warn("create squad failed", zap.String("squad", req.Name), zap.Error(err))
		return nil
	}
	return squad
}

func (s *SquadsService) Update(ctx context.Context, name string, req *models.UpdateSquadRequest) *models.Squad {
	squad := &models.Squad{}
	if err := s.api.Put(ctx, "/squads/"+url.PathEscape(name), req, squad); err != nil {
		s.api.logger.Warn("update squad failed", zap.String("squad", name), zap.Error(err))
		return nil
	}
	return squad
}

func (s *SquadsService) Delete(ctx context.Context, name string) bool {
	if err := s.api.Delete(ctx, "/squads/"+url.PathEscape(name), nil); err != nil {
		s.api.logger.Warn("delete squad failed", zap.String("squad", name), zap.Error(err))
		return false
	}
	return true
}
