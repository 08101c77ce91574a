package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cargaslack/carga/database"
	"github.com/cargaslack/carga/models"
)

type sqliteLogRepo struct {
	db database.TxQuerier
}

// NewSQLiteLogRepo returns the SQLite LogRepository.
func NewSQLiteLogRepo(db database.TxQuerier) LogRepository {
	return &sqliteLogRepo{db: db}
}

func (r *sqliteLogRepo) Create(ctx context.Context, log *models.ProcessingLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO processing_logs (site_name, status, message, run_id, created_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		log.SiteName, log.Status, log.Message, log.RunID, log.CreatedAt,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("failed to create processing log: %w", err)
	}
	return nil
}

func (r *sqliteLogRepo) ListRecent(ctx context.Context, limit int) ([]models.ProcessingLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, site_name, status, message, run_id, created_at
		FROM processing_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list processing logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ProcessingLog{}
	for rows.Next() {
		var l models.ProcessingLog
		if err := rows.Scan(&l.ID, &l.SiteName, &l.Status, &l.Message, &l.RunID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan processing log row: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating processing log rows: %w", err)
	}
	return logs, nil
}

func (r *sqliteLogRepo) LastCreatedAt(ctx context.Context) (*time.Time, error) {
	// MAX() loses the column's declared type, so read the newest row instead.
	var last time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT created_at FROM processing_logs ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last processing time: %w", err)
	}
	return &last, nil
}
