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

// PostgresLedgerStorage implements storage.LedgerStorage for Postgres. The
// ON CONFLICT upsert on (owner_user_id, template_id, date) is what makes
// concurrent writes to the same occurrence collapse into one row.
type PostgresLedgerStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresLedgerStorage(pool *pgxpool.Pool) *PostgresLedgerStorage {
	return &PostgresLedgerStorage{pool: pool}
}

const recordColumns = `id, owner_user_id, template_id, date, was_completed, completed_meal_id, completed_at,
	goal_achieved, goal_deviation, created_at, updated_at`

func scanRecord(row pgx.Row) (storage.CompletionRecord, error) {
	var rec storage.CompletionRecord
	err := row.Scan(
		&rec.ID,
		&rec.OwnerUserID,
		&rec.TemplateID,
		&rec.Date,
		&rec.WasCompleted,
		&rec.CompletedMealID,
		&rec.CompletedAt,
		&rec.GoalAchieved,
		&rec.GoalDeviation,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}

func (s *PostgresLedgerStorage) UpsertRecord(ctx context.Context, ownerUserID string, templateID uuid.UUID, date string, wasCompleted bool, mealID *uuid.UUID, completedAt *time.Time) (storage.CompletionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO completion_records (id, owner_user_id, template_id, date, was_completed, completed_meal_id, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_user_id, template_id, date)
		DO UPDATE SET
			was_completed = EXCLUDED.was_completed,
			completed_meal_id = EXCLUDED.completed_meal_id,
			completed_at = EXCLUDED.completed_at,
			goal_achieved = NULL,
			goal_deviation = NULL,
			updated_at = now()
		RETURNING ` + recordColumns

	return scanRecord(s.pool.QueryRow(ctx, query, uuid.New(), ownerUserID, templateID, date, wasCompleted, mealID, completedAt))
}

func (s *PostgresLedgerStorage) GetRecord(ctx context.Context, ownerUserID string, templateID uuid.UUID, date string) (storage.CompletionRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + recordColumns + ` FROM completion_records
		WHERE owner_user_id = $1 AND template_id = $2 AND date = $3`

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, ownerUserID, templateID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.CompletionRecord{}, false, nil
		}
		return storage.CompletionRecord{}, false, err
	}

	return rec, true, nil
}

func (s *PostgresLedgerStorage) ListRecords(ctx context.Context, ownerUserID string, from, to string) ([]storage.CompletionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + recordColumns + ` FROM completion_records
		WHERE owner_user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC, created_at ASC`

	rows, err := s.pool.Query(ctx, query, ownerUserID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []storage.CompletionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *PostgresLedgerStorage) SetGoalEvaluation(ctx context.Context, ownerUserID string, recordID uuid.UUID, achieved bool, deviation float64) (storage.CompletionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE completion_records
		SET goal_achieved = $3, goal_deviation = $4, updated_at = now()
		WHERE owner_user_id = $1 AND id = $2
		RETURNING ` + recordColumns

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, ownerUserID, recordID, achieved, deviation))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.CompletionRecord{}, ErrNotFound
		}
		return storage.CompletionRecord{}, err
	}

	return rec, nil
}
