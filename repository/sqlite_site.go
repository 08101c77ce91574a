package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cargaslack/carga/database"
	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
)

type sqliteSiteRepo struct {
	db database.TxQuerier
}

// NewSQLiteSiteRepo returns the SQLite SiteRepository.
func NewSQLiteSiteRepo(db database.TxQuerier) SiteRepository {
	return &sqliteSiteRepo{db: db}
}

const siteSelect = `
	SELECT s.id, s.name, s.sheet_url, s.sheet_name, s.squad_id,
	       COALESCE(q.name, ''), COALESCE(q.webhook_url, '') <> '',
	       s.status, s.investimento_idx, s.receita_idx, s.roas_idx, s.mc_idx,
	       s.created_at, s.updated_at
	FROM sites s
	LEFT JOIN squads q ON q.id = s.squad_id`

func scanSite(row interface{ Scan(...any) error }) (*models.Site, error) {
	s := &models.Site{}
	err := row.Scan(&s.ID, &s.Name, &s.SheetURL, &s.SheetName, &s.SquadID,
		&s.SquadName, &s.HasWebhook,
		&s.Status, &s.InvestimentoIdx, &s.ReceitaIdx, &s.RoasIdx, &s.McIdx,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sqliteSiteRepo) Create(ctx context.Context, site *models.Site) error {
	query := `
		INSERT INTO sites (name, sheet_url, sheet_name, squad_id, status,
		                   investimento_idx, receita_idx, roas_idx, mc_idx)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		site.Name, site.SheetURL, site.SheetName, site.SquadID, site.Status,
		site.InvestimentoIdx, site.ReceitaIdx, site.RoasIdx, site.McIdx,
	).Scan(&site.ID, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: a site named %q already exists", pkg.ErrAlreadyExists, site.Name)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: squad does not exist", pkg.ErrBadRequest)
		}
		return fmt.Errorf("failed to create site: %w", err)
	}
	return nil
}

func (r *sqliteSiteRepo) GetByID(ctx context.Context, id int64) (*models.Site, error) {
	site, err := scanSite(r.db.QueryRowContext(ctx, siteSelect+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site by id: %w", err)
	}
	return site, nil
}

func (r *sqliteSiteRepo) GetByName(ctx context.Context, name string) (*models.Site, error) {
	site, err := scanSite(r.db.QueryRowContext(ctx, siteSelect+` WHERE s.name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site by name: %w", err)
	}
	return site, nil
}

func (r *sqliteSiteRepo) List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error) {
	var (
		where []string
		args  []any
	)
	if name := strings.TrimSpace(filter.Name); name != "" {
		where = append(where, `s.name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(name)+"%")
	}
	if squad := strings.TrimSpace(filter.Squad); squad != "" {
		where = append(where, `q.name = ?`)
		args = append(args, squad)
	}

	query := siteSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY s.name`

	return r.query(ctx, query, args...)
}

func (r *sqliteSiteRepo) ListActive(ctx context.Context) ([]models.Site, error) {
	return r.query(ctx, siteSelect+` WHERE s.status = 'active' ORDER BY s.name`)
}

func (r *sqliteSiteRepo) query(ctx context.Context, query string, args ...any) ([]models.Site, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := []models.Site{}
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site row: %w", err)
		}
		sites = append(sites, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating site rows: %w", err)
	}
	return sites, nil
}

func (r *sqliteSiteRepo) Update(ctx context.Context, site *models.Site) error {
	query := `
		UPDATE sites SET name = ?, sheet_url = ?, sheet_name = ?, squad_id = ?, status = ?,
		       investimento_idx = ?, receita_idx = ?, roas_idx = ?, mc_idx = ?,
		       updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		site.Name, site.SheetURL, site.SheetName, site.SquadID, site.Status,
		site.InvestimentoIdx, site.ReceitaIdx, site.RoasIdx, site.McIdx,
		site.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: a site named %q already exists", pkg.ErrAlreadyExists, site.Name)
		}
		return fmt.Errorf("failed to update site: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteSiteRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteSiteRepo) DeleteByName(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sites WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteSiteRepo) Count(ctx context.Context) (int, int, error) {
	var total, active int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0) FROM sites`,
	).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count sites: %w", err)
	}
	return total, active, nil
}
