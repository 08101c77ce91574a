package models

import (
	"fmt"
	"strings"
	"time"
)

// SiteStatus toggles whether the processing job reads a site.
type SiteStatus string

const (
	SiteActive   SiteStatus = "active"
	SiteInactive SiteStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s SiteStatus) Valid() bool {
	return s == SiteActive || s == SiteInactive
}

// Toggle returns the opposite status.
func (s SiteStatus) Toggle() SiteStatus {
	if s == SiteActive {
		return SiteInactive
	}
	return SiteActive
}

// Site is a spreadsheet-backed data source. The four *Idx fields are
// zero-based column indices of the header row.
type Site struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	SheetURL        string     `json:"sheet_url"`
	SheetName       string     `json:"sheet_name,omitempty"`
	SquadID         *int64     `json:"-"`
	SquadName       string     `json:"squad_name,omitempty"`
	HasWebhook      bool       `json:"has_webhook"`
	Status          SiteStatus `json:"status"`
	InvestimentoIdx int        `json:"investimento_idx"`
	ReceitaIdx      int        `json:"receita_idx"`
	RoasIdx         int        `json:"roas_idx"`
	McIdx           int        `json:"mc_idx"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ColumnIndices returns the mapping as a value, in metric order.
func (s *Site) ColumnIndices() ColumnIndices {
	return ColumnIndices{
		Investimento: s.InvestimentoIdx,
		Receita:      s.ReceitaIdx,
		Roas:         s.RoasIdx,
		Mc:           s.McIdx,
	}
}

// ColumnIndices maps the four financial metrics to sheet columns.
type ColumnIndices struct {
	Investimento int
	Receita      int
	Roas         int
	Mc           int
}

// SiteFilter narrows GET /api/sites. Name is a substring match, Squad an
// exact squad name.
type SiteFilter struct {
	Name  string
	Squad string
}

// CreateSiteRequest is the body of POST /api/sites. The indices are
// pointers so a missing index can be told apart from column 0.
type CreateSiteRequest struct {
	Name            string     `json:"name"`
	SheetURL        string     `json:"sheet_url"`
	SheetName       string     `json:"sheet_name,omitempty"`
	SquadName       string     `json:"squad_name,omitempty"`
	Status          SiteStatus `json:"status,omitempty"`
	InvestimentoIdx *int       `json:"investimento_idx"`
	ReceitaIdx      *int       `json:"receita_idx"`
	RoasIdx         *int       `json:"roas_idx"`
	McIdx           *int       `json:"mc_idx"`
}

// Validate requires the name, the sheet URL and all four indices.
func (r *CreateSiteRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.SheetURL = strings.TrimSpace(r.SheetURL)
	r.SquadName = strings.TrimSpace(r.SquadName)

	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.SheetURL == "" {
		missing = append(missing, "sheet_url")
	}
	for field, idx := range map[string]*int{
		"investimento_idx": r.InvestimentoIdx,
		"receita_idx":      r.ReceitaIdx,
		"roas_idx":         r.RoasIdx,
		"mc_idx":           r.McIdx,
	} {
		if idx == nil {
			missing = append(missing, field)
		} else if *idx < 0 {
			return fmt.Errorf("%s must not be negative", field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(sortedFields(missing), ", "))
	}

	if r.Status == "" {
		r.Status = SiteActive
	}
	if !r.Status.Valid() {
		return fmt.Errorf("status must be active or inactive")
	}
	return nil
}

// UpdateSiteRequest is a partial update. SquadName set to "" detaches the
// site from its squad.
type UpdateSiteRequest struct {
	Name            *string     `json:"name,omitempty"`
	SheetURL        *string     `json:"sheet_url,omitempty"`
	SheetName       *string     `json:"sheet_name,omitempty"`
	SquadName       *string     `json:"squad_name,omitempty"`
	Status          *SiteStatus `json:"status,omitempty"`
	InvestimentoIdx *int        `json:"investimento_idx,omitempty"`
	ReceitaIdx      *int        `json:"receita_idx,omitempty"`
	RoasIdx         *int        `json:"roas_idx,omitempty"`
	McIdx           *int        `json:"mc_idx,omitempty"`
}

// Validate checks the fields that are present.
func (r *UpdateSiteRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if r.SheetURL != nil && strings.TrimSpace(*r.SheetURL) == "" {
		return fmt.Errorf("sheet_url cannot be empty")
	}
	if r.Status != nil && !r.Status.Valid() {
		return fmt.Errorf("status must be active or inactive")
	}
	for _, idx := range []*int{r.InvestimentoIdx, r.ReceitaIdx, r.RoasIdx, r.McIdx} {
		if idx != nil && *idx < 0 {
			return fmt.Errorf("column indices must not be negative")
		}
	}
	return nil
}

// Apply copies the present fields onto site. The squad is resolved by the
// caller because it needs a lookup.
func (r *UpdateSiteRequest) Apply(site *Site) {
	if r.Name != nil {
		site.Name = strings.TrimSpace(*r.Name)
	}
	if r.SheetURL != nil {
		site.SheetURL = strings.TrimSpace(*r.SheetURL)
	}
	if r.SheetName != nil {
		site.SheetName = strings.TrimSpace(*r.SheetName)
	}
	if r.Status != nil {
		site.Status = *r.Status
	}
	if r.InvestimentoIdx != nil {
		site.InvestimentoIdx = *r.InvestimentoIdx
	}
	if r.ReceitaIdx != nil {
		site.ReceitaIdx = *r.ReceitaIdx
	}
	if r.RoasIdx != nil {
		site.RoasIdx = *r.RoasIdx
	}
	if r.McIdx != nil {
		site.McIdx = *r.McIdx
	}
}

// sortedFields keeps validation messages deterministic despite map iteration.
func sortedFields(fields []string) []string {
	order := []string{"name", "sheet_url", "investimento_idx", "receita_idx", "roas_idx", "mc_idx"}
	out := make([]string, 0, len(fields))
	for _, f := range order {
		for _, m := range fields {
			if m == f {
				out = append(out, f)
			}
		}
	}
	return out
}
