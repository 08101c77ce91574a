package client

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/models"
)

// Form validation errors. MessageKey maps them to the locale text shown to
// the user.
var (
	ErrNameRequired      = errors.New("name is required")
	ErrSheetURLRequired  = errors.New("sheet url is required")
	ErrHeadersFailed     = errors.New("could not read sheet headers")
	ErrMappingIncomplete = errors.New("every metric needs a column")
	ErrEmailRequired     = errors.New("email is required")
	ErrUsernameRequired  = errors.New("username is required")
	ErrInvalidRole       = errors.New("role must be admin or viewer")
)

// CanManage is the role gate for every create, edit, delete and toggle.
func CanManage(user *models.User) bool {
	return user.IsAdmin()
}

// Mapping names the header chosen for each metric.
type Mapping struct {
	Investimento string
	Receita      string
	Roas         string
	Mc           string
}

func (m Mapping) complete() bool {
	return m.Investimento != "" && m.Receita != "" && m.Roas != "" && m.Mc != ""
}

// SiteForm is the two-step site editor: step 1 asks for the name and
// sheet, step 2 maps header names to the four metrics.
type SiteForm struct {
	Name      string
	SheetURL  string
	SquadName string
	Status    models.SiteStatus

	Step    int
	Headers []models.SheetHeader
	Sheets  []models.SheetInfo
	Mapping Mapping
	Err     error

	editing *models.Site
	logger  *zap.Logger
}

// NewSiteForm starts a blank form, or an edit form when site is non-nil.
func NewSiteForm(site *models.Site, logger *zap.Logger) *SiteForm {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &SiteForm{Step: 1, Status: models.SiteActive, logger: logger}
	if site != nil {
		edit := *site
		f.editing = &edit
		f.Name = site.Name
		f.SheetURL = site.SheetURL
		f.SquadName = site.SquadName
		f.Status = site.Status
	}
	return f
}

// Editing returns the site being edited, or nil for a new one.
func (f *SiteForm) Editing() *models.Site { return f.editing }

func (f *SiteForm) ValidateStep1() bool {
	f.Err = nil
	switch {
	case strings.TrimSpace(f.Name) == "":
		f.Err = ErrNameRequired
	case strings.TrimSpace(f.SheetURL) == "":
		f.Err = ErrSheetURLRequired
	}
	return f.Err == nil
}

// LoadHeaders fetches the sheet headers and moves to step 2. When editing,
// the stored indices preselect the matching headers.
func (f *SiteForm) LoadHeaders(ctx context.Context, sites *SitesService) bool {
	if !f.ValidateStep1() {
		return false
	}
	headers := sites.GetSheetHeaders(ctx, strings.TrimSpace(f.SheetURL))
	if headers == nil || len(headers.Headers) == 0 {
		f.Err = ErrHeadersFailed
		return false
	}

	f.Headers = headers.Headers
	f.Sheets = headers.Sheets
	if f.editing != nil {
		f.Mapping = Mapping{
			Investimento: f.headerAt(f.editing.InvestimentoIdx),
			Receita:      f.headerAt(f.editing.ReceitaIdx),
			Roas:         f.headerAt(f.editing.RoasIdx),
			Mc:           f.headerAt(f.editing.McIdx),
		}
	}
	f.Step = 2
	return true
}

// Back returns to step 1 keeping what was typed.
func (f *SiteForm) Back() {
	f.Step = 1
	f.Err = nil
}

func (f *SiteForm) MapColumns(m Mapping) bool {
	f.Mapping = m
	f.Err = nil
	if !m.complete() {
		f.Err = ErrMappingIncomplete
	}
	return f.Err == nil
}

// Request builds the create body. A header name that is no longer in the
// sheet falls back to column 0.
func (f *SiteForm) Request() *models.CreateSiteRequest {
	inv, rec, roas, mc := f.indices()
	return &models.CreateSiteRequest{
		Name:            strings.TrimSpace(f.Name),
		SheetURL:        strings.TrimSpace(f.SheetURL),
		SquadName:       f.SquadName,
		Status:          f.Status,
		InvestimentoIdx: &inv,
		ReceitaIdx:      &rec,
		RoasIdx:         &roas,
		McIdx:           &mc,
	}
}

// UpdateRequest builds the edit body with every field set.
func (f *SiteForm) UpdateRequest() *models.UpdateSiteRequest {
	req := f.Request()
	return &models.UpdateSiteRequest{
		Name:            &req.Name,
		SheetURL:        &req.SheetURL,
		SquadName:       &req.SquadName,
		Status:          &req.Status,
		InvestimentoIdx: req.InvestimentoIdx,
		ReceitaIdx:      req.ReceitaIdx,
		RoasIdx:         req.RoasIdx,
		McIdx:           req.McIdx,
	}
}

func (f *SiteForm) indices() (inv, rec, roas, mc int) {
	return f.indexOf(models.MetricInvestimento, f.Mapping.Investimento),
		f.indexOf(models.MetricReceita, f.Mapping.Receita),
		f.indexOf(models.MetricROAS, f.Mapping.Roas),
		f.indexOf(models.MetricMC, f.Mapping.Mc)
}

func (f *SiteForm) indexOf(metric, name string) int {
	for _, h := range f.Headers {
		if h.Name == name {
			return h.Index
		}
	}
	f.logger.Warn("mapped header not found, using column 0",
		zap.String("metric", metric), zap.String("header", name))
	return 0
}

func (f *SiteForm) headerAt(index int) string {
	for _, h := range f.Headers {
		if h.Index == index {
			return h.Name
		}
	}
	return ""
}

// SquadForm creates a squad, or renames one when Original is set.
type SquadForm struct {
	Original   string
	Name       string
	WebhookURL string
	Err        error
}

func (f *SquadForm) Validate() bool {
	f.Err = nil
	if strings.TrimSpace(f.Name) == "" {
		f.Err = ErrNameRequired
	}
	return f.Err == nil
}

func (f *SquadForm) CreateRequest() *models.CreateSquadRequest {
	return &models.CreateSquadRequest{Name: strings.TrimSpace(f.Name), WebhookURL: strings.TrimSpace(f.WebhookURL)}
}

func (f *SquadForm) UpdateRequest() *models.UpdateSquadRequest {
	webhook := strings.TrimSpace(f.WebhookURL)
	return &models.UpdateSquadRequest{NewName: strings.TrimSpace(f.Name), WebhookURL: &webhook}
}

// UserForm creates a user, or edits one when ID is set. Creating needs an
// email; editing needs a username, since accounts such as the seeded admin
// may have no email. Password and email are only sent on edit when typed.
type UserForm struct {
	ID       int64
	Email    string
	Username string
	Role     models.Role
	Password string
	Err      error
}

func (f *UserForm) Validate() bool {
	f.Err = nil
	if f.Role == "" {
		f.Role = models.RoleViewer
	}
	switch {
	case f.ID == 0 && strings.TrimSpace(f.Email) == "":
		f.Err = ErrEmailRequired
	case f.ID != 0 && strings.TrimSpace(f.Username) == "":
		f.Err = ErrUsernameRequired
	case !f.Role.Valid():
		f.Err = ErrInvalidRole
	}
	return f.Err == nil
}

func (f *UserForm) CreateRequest() *models.CreateUserRequest {
	return &models.CreateUserRequest{
		Email:    strings.TrimSpace(f.Email),
		Username: strings.TrimSpace(f.Username),
		Role:     f.Role,
	}
}

func (f *UserForm) UpdateRequest() *models.UpdateUserRequest {
	role := f.Role
	req := &models.UpdateUserRequest{Role: &role}
	if email := strings.TrimSpace(f.Email); email != "" {
		req.Email = &email
	}
	if username := strings.TrimSpace(f.Username); username != "" {
		req.Username = &username
	}
	if f.Password != "" {
		password := f.Password
		req.Password = &password
	}
	return req
}
