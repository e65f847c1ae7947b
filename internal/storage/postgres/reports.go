package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mealminder/server/internal/storage"
)

// PostgresReportsStorage implements storage.ReportsStorage for Postgres.
// Only metadata lives here; report bytes go to the blob store.
type PostgresReportsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresReportsStorage(pool *pgxpool.Pool) *PostgresReportsStorage {
	return &PostgresReportsStorage{pool: pool}
}

const reportColumns = `id, owner_user_id, format, from_date, to_date, object_key, size_bytes, status, error, created_at`

func scanReport(row pgx.Row) (storage.ReportMeta, error) {
	var report storage.ReportMeta
	err := row.Scan(
		&report.ID,
		&report.OwnerUserID,
		&report.Format,
		&report.FromDate,
		&report.ToDate,
		&report.ObjectKey,
		&report.SizeBytes,
		&report.Status,
		&report.Error,
		&report.CreatedAt,
	)
	return report, err
}

func (s *PostgresReportsStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	query := `
		INSERT INTO reports (id, owner_user_id, format, from_date, to_date, object_key, size_bytes, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	return s.pool.QueryRow(ctx, query,
		report.ID, report.OwnerUserID, report.Format, report.FromDate, report.ToDate,
		report.ObjectKey, report.SizeBytes, report.Status, report.Error,
	).Scan(&report.CreatedAt)
}

func (s *PostgresReportsStorage) GetReport(ctx context.Context, ownerUserID string, id uuid.UUID) (storage.ReportMeta, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + reportColumns + ` FROM reports WHERE owner_user_id = $1 AND id = $2`

	report, err := scanReport(s.pool.QueryRow(ctx, query, ownerUserID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ReportMeta{}, false, nil
		}
		return storage.ReportMeta{}, false, err
	}

	return report, true, nil
}

func (s *PostgresReportsStorage) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ReportMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + reportColumns + ` FROM reports
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, ownerUserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []storage.ReportMeta{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

func (s *PostgresReportsStorage) DeleteReport(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE owner_user_id = $1 AND id = $2`, ownerUserID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
