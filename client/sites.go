package client

import (
	"context"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/models"
)

// SitesService wraps /sites and the sheet header lookups used while
// editing a site.
type SitesService struct {
	api *API
}

func NewSitesService(api *API) *SitesService {
	return &SitesService{api: api}
}

// GetAll never returns nil.
func (s *SitesService) GetAll(ctx context.Context, filter models.SiteFilter) []models.Site {
	query := url.Values{}
	if filter.Name != "" {
		query.Set("name", filter.Name)
	}
	if filter.Squad != "" {
		query.Set("squad", filter.Squad)
	}

	var list models.SiteList
	if err := s.api.Get(ctx, "/sites", query, &list); err != nil {
		s.api.logger.Warn("list sites failed", zap.Error(err))
		return []models.Site{}
	}
	if list.Sites == nil {
		return []models.Site{}
	}
	return list.Sites
}

func (s *SitesService) GetByID(ctx context.Context, id int64) *models.Site {
	var site models.Site
	if err := s.api.Get(ctx, "/sites/"+strconv.FormatInt(id, 10), nil, &site); err != nil {
		s.api.logger.Warn("get site failed", zap.Int64("site_id", id), zap.Error(err))
		return nil
	}
	return &site
}

// GetSheetHeaders reads the first tab of the sheet at sheetURL.
func (s *SitesService) GetSheetHeaders(ctx context.Context, sheetURL string) *models.SheetHeaders {
	var headers models.SheetHeaders
	body := models.SheetHeadersRequest{SheetURL: sheetURL}
	if err := s.api.Post(ctx, "/sheets/headers", body, &headers); err != nil {
		s.api.logger.Warn("read sheet headers failed", zap.Error(err))
		return nil
	}
	return &headers
}

func (s *SitesService) GetSheetHeadersByName(ctx context.Context, sheetURL, sheetName string) *models.SheetHeaders {
	var headers models.SheetHeaders
	body := models.SheetHeadersRequest{SheetURL: sheetURL}
	if err := s.api.Post(ctx, "/sheets/headers/"+url.PathEscape(sheetName), body, &headers); err != nil {
		s.api.logger.Warn("read sheet headers failed", zap.String("sheet", sheetName), zap.Error(err))
		return nil
	}
	return &headers
}

// TestMapping reads the configured columns of the last data row.
func (s *SitesService) TestMapping(ctx context.Context, name string) *models.MappingTest {
	var result models.MappingTest
	if err := s.api.Get(ctx, "/sites/test/"+url.PathEscape(name), nil, &result); err != nil {
		s.api.logger.Warn("mapping test failed", zap.String("site", name), zap.Error(err))
		return nil
	}
	return &result
}

// Create returns an empty site when the server accepted the request but
// sent nothing back.
func (s *SitesService) Create(ctx context.Context, req *models.CreateSiteRequest) *models.Site {
	site := &models.Site{}
	if err := s.api.Post(ctx, "/sites", req, site); err != nil {
		s.api.logger.Warn("create site failed", zap.String("site", req.Name), zap.Error(err))
		return nil
	}
	return site
}

func (s *SitesService) Update(ctx context.Context, id int64, req *models.UpdateSiteRequest) *models.Site {
	site := &models.Site{}
	if err := s.api.Put(ctx, "/sites/"+strconv.FormatInt(id, 10), req, site); err != nil {
		s.api.logger.Warn("update site failed", zap.Int64("site_id", id), zap.Error(err))
		return nil
	}
	return site
}

func (s *SitesService) Delete(ctx context.Context, id int64) bool {
	if err := s.api.Delete(ctx, "/sites/"+strconv.FormatInt(id, 10), nil); err != nil {
		s.api.logger.Warn("delete site failed", zap.Int64("site_id", id), zap.Error(err))
		return false
	}
	return true
}
