package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cargaslack/carga/database"
	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
)

type sqliteSquadRepo struct {
	db database.TxQuerier
}

// NewSQLiteSquadRepo returns the SQLite SquadRepository.
func NewSQLiteSquadRepo(db database.TxQuerier) SquadRepository {
	return &sqliteSquadRepo{db: db}
}

func (r *sqliteSquadRepo) Create(ctx context.Context, squad *models.Squad) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO squads (name, webhook_url) VALUES (?, ?) RETURNING id`,
		squad.Name, squad.WebhookURL,
	).Scan(&squad.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: squad %q already exists", pkg.ErrAlreadyExists, squad.Name)
		}
		return fmt.Errorf("failed to create squad: %w", err)
	}
	if squad.Sites == nil {
		squad.Sites = []string{}
	}
	return nil
}

func (r *sqliteSquadRepo) GetByName(ctx context.Context, name string) (*models.Squad, error) {
	squad := &models.Squad{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, webhook_url FROM squads WHERE name = ?`, name,
	).Scan(&squad.ID, &squad.Name, &squad.WebhookURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get squad: %w", err)
	}

	sites, err := r.siteNames(ctx, squad.ID)
	if err != nil {
		return nil, err
	}
	squad.Sites = sites
	squad.SitesCount = len(sites)
	return squad, nil
}

func (r *sqliteSquadRepo) List(ctx context.Context) ([]models.Squad, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, webhook_url FROM squads ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list squads: %w", err)
	}
	defer rows.Close()

	squads := []models.Squad{}
	index := make(map[int64]int)
	for rows.Next() {
		var s models.Squad
		if err := rows.Scan(&s.ID, &s.Name, &s.WebhookURL); err != nil {
			return nil, fmt.Errorf("failed to scan squad row: %w", err)
		}
		s.Sites = []string{}
		index[s.ID] = len(squads)
		squads = append(squads, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating squad rows: %w", err)
	}

	// Site names are attached in a second query; names may contain commas,
	// so group_concat is not an option.
	siteRows, err := r.db.QueryContext(ctx,
		`SELECT squad_id, name FROM sites WHERE squad_id IS NOT NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list squad sites: %w", err)
	}
	defer siteRows.Close()

	for siteRows.Next() {
		var (
			squadID int64
			name    string
		)
		if err := siteRows.Scan(&squadID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan squad site row: %w", err)
		}
		if i, ok := index[squadID]; ok {
			squads[i].Sites = append(squads[i].Sites, name)
			squads[i].SitesCount++
		}
	}
	if err := siteRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating squad site rows: %w", err)
	}

	return squads, nil
}

func (r *sqliteSquadRepo) Update(ctx context.Context, squad *models.Squad) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE squads SET name = ?, webhook_url = ? WHERE id = ?`,
		squad.Name, squad.WebhookURL, squad.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: squad %q already exists", pkg.ErrAlreadyExists, squad.Name)
		}
		return fmt.Errorf("failed to update squad: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteSquadRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM squads WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: squad still has sites", pkg.ErrConflict)
		}
		return fmt.Errorf("failed to delete squad: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteSquadRepo) CountSites(ctx context.Context, squadID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sites WHERE squad_id = ?`, squadID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count squad sites: %w", err)
	}
	return count, nil
}

func (r *sqliteSquadRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM squads`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count squads: %w", err)
	}
	return count, nil
}

func (r *sqliteSquadRepo) siteNames(ctx context.Context, squadID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM sites WHERE squad_id = ? ORDER BY name`, squadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list squad sites: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan site name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
