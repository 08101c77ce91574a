package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/database"
	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/sheets"
	"github.com/cargaslack/carga/repository"
)

// NotAvailable is shown for a mapped column the last row does not reach.
const NotAvailable = "N/A"

// SiteService manages sites and their column mapping.
type SiteService interface {
	List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error)
	Get(ctx context.Context, id int64) (*models.Site, error)
	GetByName(ctx context.Context, name string) (*models.Site, error)
	// Create attaches the site to req.SquadName, creating that squad when it
	// does not exist yet.
	Create(ctx context.Context, req *models.CreateSiteRequest) (*models.Site, error)
	Update(ctx context.Context, id int64, req *models.UpdateSiteRequest) (*models.Site, error)
	Delete(ctx context.Context, id int64) error
	DeleteByName(ctx context.Context, name string) error
	// TestMapping reads the site's sheet and reports, per metric, the mapped
	// header and the value in the last row. A nil tabIndex uses the site's
	// configured tab.
	TestMapping(ctx context.Context, name string, tabIndex *int) (*models.MappingTest, error)
}

type siteService struct {
	db       *sql.DB
	siteRepo repository.SiteRepository
	reader   WorkbookReader
	logger   *zap.Logger
}

// NewSiteService wires the service. db is needed for the transaction that
// creates a squad and its first site together.
func NewSiteService(db *sql.DB, siteRepo repository.SiteRepository, reader WorkbookReader, logger *zap.Logger) SiteService {
	return &siteService{
		db:       db,
		siteRepo: siteRepo,
		reader:   reader,
		logger:   logger,
	}
}

func (s *siteService) List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error) {
	return s.siteRepo.List(ctx, filter)
}

func (s *siteService) Get(ctx context.Context, id int64) (*models.Site, error) {
	return s.siteRepo.GetByID(ctx, id)
}

func (s *siteService) GetByName(ctx context.Context, name string) (*models.Site, error) {
	return s.siteRepo.GetByName(ctx, name)
}

func (s *siteService) Create(ctx context.Context, req *models.CreateSiteRequest) (*models.Site, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	site := &models.Site{
		Name:            req.Name,
		SheetURL:        req.SheetURL,
		SheetName:       strings.TrimSpace(req.SheetName),
		Status:          req.Status,
		InvestimentoIdx: *req.InvestimentoIdx,
		ReceitaIdx:      *req.ReceitaIdx,
		RoasIdx:         *req.RoasIdx,
		McIdx:           *req.McIdx,
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		squadID, err := s.ensureSquad(ctx, repository.NewSQLiteSquadRepo(tx), req.SquadName)
		if err != nil {
			return err
		}
		site.SquadID = squadID
		return repository.NewSQLiteSiteRepo(tx).Create(ctx, site)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("site created", zap.String("site", site.Name), zap.String("squad", req.SquadName))
	return s.siteRepo.GetByID(ctx, site.ID)
}

func (s *siteService) Update(ctx context.Context, id int64, req *models.UpdateSiteRequest) (*models.Site, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		sites := repository.NewSQLiteSiteRepo(tx)
		site, err := sites.GetByID(ctx, id)
		if err != nil {
			return err
		}

		req.Apply(site)
		if req.SquadName != nil {
			squadID, err := s.ensureSquad(ctx, repository.NewSQLiteSquadRepo(tx), strings.TrimSpace(*req.SquadName))
			if err != nil {
				return err
			}
			site.SquadID = squadID
		}
		return sites.Update(ctx, site)
	})
	if err != nil {
		return nil, err
	}

	return s.siteRepo.GetByID(ctx, id)
}

func (s *siteService) Delete(ctx context.Context, id int64) error {
	if err := s.siteRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("site deleted", zap.Int64("site_id", id))
	return nil
}

func (s *siteService) DeleteByName(ctx context.Context, name string) error {
	if err := s.siteRepo.DeleteByName(ctx, name); err != nil {
		return err
	}
	s.logger.Info("site deleted", zap.String("site", name))
	return nil
}

func (s *siteService) TestMapping(ctx context.Context, name string, tabIndex *int) (*models.MappingTest, error) {
	site, err := s.siteRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if site.SheetURL == "" {
		return nil, fmt.Errorf("%w: site has no spreadsheet configured", pkg.ErrBadRequest)
	}

	wb, err := s.reader.Workbook(ctx, site.SheetURL)
	if err != nil {
		return nil, sheetFetchError(err)
	}

	var tab *sheets.Tab
	if tabIndex != nil {
		tab, err = wb.TabAt(*tabIndex)
	} else {
		tab, err = siteTab(wb, site)
	}
	if err != nil {
		return nil, sheetFetchError(err)
	}
	if len(tab.Rows) < 2 {
		return nil, fmt.Errorf("%w: sheet is empty or has no data", pkg.ErrBadRequest)
	}

	header := tab.Header()
	last, _ := tab.LastRow()

	result := &models.MappingTest{
		Site:      site.Name,
		TotalRows: tab.DataRows(),
		LastRow:   len(tab.Rows),
		Results:   make([]models.MappingResult, 0, 4),
	}
	for _, m := range siteMetrics(site) {
		column, ok := sheets.Cell(header, m.index)
		if !ok {
			column = fmt.Sprintf("Coluna %d", m.index)
		}
		value, ok := sheets.Cell(last, m.index)
		if !ok {
			value = NotAvailable
		}
		result.Results = append(result.Results, models.MappingResult{
			Metric:     m.metric,
			ColumnName: column,
			Index:      m.index,
			Value:      value,
		})
	}
	return result, nil
}

// ensureSquad resolves a squad name to its ID inside the caller's
// transaction, creating the squad on first use. An empty name detaches.
func (s *siteService) ensureSquad(ctx context.Context, squads repository.SquadRepository, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}

	squad, err := squads.GetByName(ctx, name)
	if err == nil {
		return &squad.ID, nil
	}
	if !errors.Is(err, pkg.ErrNotFound) {
		return nil, err
	}

	squad = &models.Squad{Name: name}
	if err := squads.Create(ctx, squad); err != nil {
		return nil, err
	}
	s.logger.Info("squad created for site", zap.String("squad", name))
	return &squad.ID, nil
}

type siteMetric struct {
	metric string
	index  int
}

func siteMetrics(site *models.Site) []siteMetric {
	idx := site.ColumnIndices()
	return []siteMetric{
		{models.MetricInvestimento, idx.Investimento},
		{models.MetricReceita, idx.Receita},
		{models.MetricROAS, idx.Roas},
		{models.MetricMC, idx.Mc},
	}
}

// siteTab picks the configured tab, or the first one when none is set.
func siteTab(wb *sheets.Workbook, site *models.Site) (*sheets.Tab, error) {
	if site.SheetName != "" {
		return wb.Tab(site.SheetName)
	}
	return wb.TabAt(0)
}
