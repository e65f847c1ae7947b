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

// PostgresMealsStorage implements storage.MealsStorage for Postgres.
type PostgresMealsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresMealsStorage(pool *pgxpool.Pool) *PostgresMealsStorage {
	return &PostgresMealsStorage{pool: pool}
}

const mealColumns = `id, owner_user_id, name, category, eaten_at, date, calories, protein_g, fat_g, carbs_g, items, created_at`

func scanMeal(row pgx.Row) (storage.LoggedMeal, error) {
	var meal storage.LoggedMeal
	err := row.Scan(
		&meal.ID,
		&meal.OwnerUserID,
		&meal.Name,
		&meal.Category,
		&meal.EatenAt,
		&meal.Date,
		&meal.Calories,
		&meal.ProteinG,
		&meal.FatG,
		&meal.CarbsG,
		&meal.Items,
		&meal.CreatedAt,
	)
	return meal, err
}

func (s *PostgresMealsStorage) CreateMeal(ctx context.Context, meal *storage.LoggedMeal) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if meal.ID == uuid.Nil {
		meal.ID = uuid.New()
	}

	query := `
		INSERT INTO logged_meals (id, owner_user_id, name, category, eaten_at, date, calories, protein_g, fat_g, carbs_g, items)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	return s.pool.QueryRow(ctx, query,
		meal.ID, meal.OwnerUserID, meal.Name, meal.Category, meal.EatenAt, meal.Date,
		meal.Calories, meal.ProteinG, meal.FatG, meal.CarbsG, meal.Items,
	).Scan(&meal.CreatedAt)
}

func (s *PostgresMealsStorage) GetMeal(ctx context.Context, ownerUserID string, id uuid.UUID) (storage.LoggedMeal, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + mealColumns + ` FROM logged_meals WHERE owner_user_id = $1 AND id = $2`

	meal, err := scanMeal(s.pool.QueryRow(ctx, query, ownerUserID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.LoggedMeal{}, false, nil
		}
		return storage.LoggedMeal{}, false, err
	}

	return meal, true, nil
}

func (s *PostgresMealsStorage) ListMealsByDate(ctx context.Context, ownerUserID string, date string) ([]storage.LoggedMeal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + mealColumns + ` FROM logged_meals
		WHERE owner_user_id = $1 AND date = $2
		ORDER BY eaten_at ASC`

	rows, err := s.pool.Query(ctx, query, ownerUserID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meals := []storage.LoggedMeal{}
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, meal)
	}

	return meals, rows.Err()
}
