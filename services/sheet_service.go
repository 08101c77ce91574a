package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/sheets"
)

// CodeSheetFetchFailed marks errors caused by an unreadable spreadsheet.
const CodeSheetFetchFailed = "SHEET_FETCH_FAILED"

// WorkbookReader loads a parsed spreadsheet; *sheets.Client implements it.
type WorkbookReader interface {
	Workbook(ctx context.Context, sheetURL string) (*sheets.Workbook, error)
}

// SheetFetcher reads a spreadsheet from its source, skipping any cache;
// *sheets.Client implements it.
type SheetFetcher interface {
	Fetch(ctx context.Context, sheetURL string) (*sheets.Workbook, error)
}

// SheetService lists the tabs and header cells of a spreadsheet so a site's
// columns can be mapped.
type SheetService interface {
	// Headers reads the first tab.
	Headers(ctx context.Context, sheetURL string) (*models.SheetHeaders, error)
	// HeadersForTab reads the tab titled tabName; unknown tabs are 404.
	HeadersForTab(ctx context.Context, sheetURL, tabName string) (*models.SheetHeaders, error)
}

type sheetService struct {
	reader WorkbookReader
	logger *zap.Logger
}

// NewSheetService wires the service.
func NewSheetService(reader WorkbookReader, logger *zap.Logger) SheetService {
	return &sheetService{reader: reader, logger: logger}
}

func (s *sheetService) Headers(ctx context.Context, sheetURL string) (*models.SheetHeaders, error) {
	wb, err := s.load(ctx, sheetURL)
	if err != nil {
		return nil, err
	}
	tab, err := wb.TabAt(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}
	return headersOf(wb, tab, ""), nil
}

func (s *sheetService) HeadersForTab(ctx context.Context, sheetURL, tabName string) (*models.SheetHeaders, error) {
	wb, err := s.load(ctx, sheetURL)
	if err != nil {
		return nil, err
	}
	tab, err := wb.Tab(tabName)
	if err != nil {
		return nil, pkg.NewAPIError(http.StatusNotFound,
			fmt.Sprintf("Aba %q não encontrada", tabName), "", pkg.ErrNotFound)
	}
	return headersOf(wb, tab, tab.Name), nil
}

func (s *sheetService) load(ctx context.Context, sheetURL string) (*sheets.Workbook, error) {
	sheetURL = strings.TrimSpace(sheetURL)
	if sheetURL == "" {
		return nil, fmt.Errorf("%w: sheet_url is required", pkg.ErrBadRequest)
	}
	wb, err := s.reader.Workbook(ctx, sheetURL)
	if err != nil {
		s.logger.Warn("failed to read spreadsheet", zap.String("url", sheetURL), zap.Error(err))
		return nil, sheetFetchError(err)
	}
	return wb, nil
}

func sheetFetchError(err error) error {
	switch {
	case errors.Is(err, sheets.ErrEmptySheet):
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	case errors.Is(err, sheets.ErrTabNotFound):
		return fmt.Errorf("%w: %s", pkg.ErrNotFound, err.Error())
	}
	return pkg.NewAPIError(http.StatusBadGateway, "failed to read spreadsheet: "+err.Error(), CodeSheetFetchFailed, err)
}

// headersOf skips blank header cells but keeps their column numbers, so the
// returned indices are always real column positions.
func headersOf(wb *sheets.Workbook, tab *sheets.Tab, sheetName string) *models.SheetHeaders {
	out := &models.SheetHeaders{
		SheetName: sheetName,
		Sheets:    make([]models.SheetInfo, 0, len(wb.Tabs)),
		Headers:   []models.SheetHeader{},
	}
	for _, t := range wb.Tabs {
		out.Sheets = append(out.Sheets, models.SheetInfo{ID: t.ID, Name: t.Name})
	}

	header := tab.Header()
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			continue
		}
		out.Headers = append(out.Headers, models.SheetHeader{Index: i, Name: name})
	}
	out.TotalColumns = len(header)
	return out
}
