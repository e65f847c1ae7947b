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

// PostgresPlansStorage implements storage.PlansStorage for Postgres.
type PostgresPlansStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresPlansStorage(pool *pgxpool.Pool) *PostgresPlansStorage {
	return &PostgresPlansStorage{pool: pool}
}

const planColumns = `id, owner_user_id, name, description, is_active, daily_calorie_goal, created_at, updated_at`

const templateColumns = `id, plan_id, owner_user_id, name, category, time_minutes, weekdays, position,
	expected_calories, expected_protein_g, expected_fat_g, expected_carbs_g, created_at, updated_at`

func scanPlan(row pgx.Row) (storage.DietPlan, error) {
	var plan storage.DietPlan
	err := row.Scan(
		&plan.ID,
		&plan.OwnerUserID,
		&plan.Name,
		&plan.Description,
		&plan.IsActive,
		&plan.DailyCalorieGoal,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	return plan, err
}

func (s *PostgresPlansStorage) CreatePlan(ctx context.Context, ownerUserID string, upsert storage.PlanUpsert) (storage.DietPlan, []storage.MealTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.DietPlan{}, nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO diet_plans (id, owner_user_id, name, description, daily_calorie_goal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + planColumns

	plan, err := scanPlan(tx.QueryRow(ctx, query, uuid.New(), ownerUserID, upsert.Name, upsert.Description, upsert.DailyCalorieGoal))
	if err != nil {
		return storage.DietPlan{}, nil, err
	}

	templates, err := replaceTemplatesTx(ctx, tx, ownerUserID, plan.ID, upsert.Templates)
	if err != nil {
		return storage.DietPlan{}, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.DietPlan{}, nil, err
	}

	return plan, templates, nil
}

func (s *PostgresPlansStorage) UpdatePlan(ctx context.Context, ownerUserID string, planID uuid.UUID, upsert storage.PlanUpsert) (storage.DietPlan, []storage.MealTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.DietPlan{}, nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE diet_plans
		SET name = $3, description = $4, daily_calorie_goal = $5, updated_at = now()
		WHERE owner_user_id = $1 AND id = $2
		RETURNING ` + planColumns

	plan, err := scanPlan(tx.QueryRow(ctx, query, ownerUserID, planID, upsert.Name, upsert.Description, upsert.DailyCalorieGoal))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.DietPlan{}, nil, ErrNotFound
		}
		return storage.DietPlan{}, nil, err
	}

	templates, err := replaceTemplatesTx(ctx, tx, ownerUserID, planID, upsert.Templates)
	if err != nil {
		return storage.DietPlan{}, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.DietPlan{}, nil, err
	}

	return plan, templates, nil
}

// replaceTemplatesTx stores the new ordered template set inside the caller's
// transaction. Rows matched by item ID are updated in place so completion
// records keep pointing at them; rows absent from the new set are deleted.
func replaceTemplatesTx(ctx context.Context, tx pgx.Tx, ownerUserID string, planID uuid.UUID, items []storage.TemplateUpsert) ([]storage.MealTemplate, error) {
	keep := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.ID != uuid.Nil {
			keep = append(keep, item.ID)
		}
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM meal_templates
		WHERE owner_user_id = $1 AND plan_id = $2 AND id <> ALL($3)`,
		ownerUserID, planID, keep); err != nil {
		return nil, err
	}

	// The conflict update is guarded on plan and owner: an id belonging to
	// another plan returns no row and fails the update.
	query := `
		INSERT INTO meal_templates (id, plan_id, owner_user_id, name, category, time_minutes, weekdays, position,
			expected_calories, expected_protein_g, expected_fat_g, expected_carbs_g)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			time_minutes = EXCLUDED.time_minutes,
			weekdays = EXCLUDED.weekdays,
			position = EXCLUDED.position,
			expected_calories = EXCLUDED.expected_calories,
			expected_protein_g = EXCLUDED.expected_protein_g,
			expected_fat_g = EXCLUDED.expected_fat_g,
			expected_carbs_g = EXCLUDED.expected_carbs_g,
			updated_at = now()
		WHERE meal_templates.owner_user_id = EXCLUDED.owner_user_id
			AND meal_templates.plan_id = EXCLUDED.plan_id
		RETURNING ` + templateColumns

	templates := make([]storage.MealTemplate, 0, len(items))
	for i, item := range items {
		id := item.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		row := tx.QueryRow(ctx, query,
			id, planID, ownerUserID, item.Name, item.Category, item.TimeMinutes,
			weekdaysToInt32(item.Weekdays), i,
			item.ExpectedCalories, item.ExpectedProteinG, item.ExpectedFatG, item.ExpectedCarbsG,
		)
		tmpl, err := scanTemplate(row)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}

	return templates, nil
}

func scanTemplate(row pgx.Row) (storage.MealTemplate, error) {
	var tmpl storage.MealTemplate
	var weekdays []int32
	err := row.Scan(
		&tmpl.ID,
		&tmpl.PlanID,
		&tmpl.OwnerUserID,
		&tmpl.Name,
		&tmpl.Category,
		&tmpl.TimeMinutes,
		&weekdays,
		&tmpl.Position,
		&tmpl.ExpectedCalories,
		&tmpl.ExpectedProteinG,
		&tmpl.ExpectedFatG,
		&tmpl.ExpectedCarbsG,
		&tmpl.CreatedAt,
		&tmpl.UpdatedAt,
	)
	if err != nil {
		return storage.MealTemplate{}, err
	}
	tmpl.Weekdays = weekdaysFromInt32(weekdays)
	return tmpl, nil
}

func (s *PostgresPlansStorage) GetPlan(ctx context.Context, ownerUserID string, planID uuid.UUID) (storage.DietPlan, []storage.MealTemplate, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + planColumns + ` FROM diet_plans WHERE owner_user_id = $1 AND id = $2`

	plan, err := scanPlan(s.pool.QueryRow(ctx, query, ownerUserID, planID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.DietPlan{}, nil, false, nil
		}
		return storage.DietPlan{}, nil, false, err
	}

	templates, err := s.listTemplates(ctx, ownerUserID, planID)
	if err != nil {
		return storage.DietPlan{}, nil, false, err
	}

	return plan, templates, true, nil
}

func (s *PostgresPlansStorage) listTemplates(ctx context.Context, ownerUserID string, planID uuid.UUID) ([]storage.MealTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM meal_templates
		WHERE owner_user_id = $1 AND plan_id = $2
		ORDER BY position ASC`

	rows, err := s.pool.Query(ctx, query, ownerUserID, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []storage.MealTemplate{}
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}

	return templates, rows.Err()
}

func (s *PostgresPlansStorage) ListPlans(ctx context.Context, ownerUserID string) ([]storage.DietPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + planColumns + ` FROM diet_plans
		WHERE owner_user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []storage.DietPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	return plans, rows.Err()
}

func (s *PostgresPlansStorage) GetActivePlan(ctx context.Context, ownerUserID string) (storage.DietPlan, []storage.MealTemplate, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + planColumns + ` FROM diet_plans
		WHERE owner_user_id = $1 AND is_active = true
		LIMIT 1`

	plan, err := scanPlan(s.pool.QueryRow(ctx, query, ownerUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.DietPlan{}, nil, false, nil
		}
		return storage.DietPlan{}, nil, false, err
	}

	templates, err := s.listTemplates(ctx, ownerUserID, plan.ID)
	if err != nil {
		return storage.DietPlan{}, nil, false, err
	}

	return plan, templates, true, nil
}

// SetActivePlan clears the previous active flag and sets the new one in a
// single transaction, so the single-active-plan invariant holds even if the
// process dies between statements.
func (s *PostgresPlansStorage) SetActivePlan(ctx context.Context, ownerUserID string, planID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE diet_plans SET is_active = true, updated_at = now()
		WHERE owner_user_id = $1 AND id = $2`, ownerUserID, planID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
		UPDATE diet_plans SET is_active = false, updated_at = now()
		WHERE owner_user_id = $1 AND is_active = true AND id <> $2`, ownerUserID, planID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresPlansStorage) DeletePlan(ctx context.Context, ownerUserID string, planID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// meal_templates has ON DELETE CASCADE on plan_id.
	tag, err := s.pool.Exec(ctx, `DELETE FROM diet_plans WHERE owner_user_id = $1 AND id = $2`, ownerUserID, planID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresPlansStorage) GetTemplate(ctx context.Context, ownerUserID string, templateID uuid.UUID) (storage.MealTemplate, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + templateColumns + ` FROM meal_templates WHERE owner_user_id = $1 AND id = $2`

	tmpl, err := scanTemplate(s.pool.QueryRow(ctx, query, ownerUserID, templateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.MealTemplate{}, false, nil
		}
		return storage.MealTemplate{}, false, err
	}

	return tmpl, true, nil
}
