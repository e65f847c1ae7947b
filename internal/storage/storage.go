package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Meal categories a template or logged meal may carry.
const (
	CategoryBreakfast = "breakfast"
	CategoryLunch     = "lunch"
	CategoryDinner    = "dinner"
	CategorySnack     = "snack"
)

// DietPlan is a user-defined recurring meal schedule. At most one plan per
// owner has IsActive=true; SetActivePlan enforces the flip atomically.
type DietPlan struct {
	ID               uuid.UUID
	OwnerUserID      string
	Name             string
	Description      string
	IsActive         bool
	DailyCalorieGoal *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MealTemplate is one recurring slot inside a plan. Weekdays uses 1=Sunday …
// 7=Saturday numbering and is never empty for a persisted row.
type MealTemplate struct {
	ID               uuid.UUID
	PlanID           uuid.UUID
	OwnerUserID      string
	Name             string
	Category         string // breakfast|lunch|dinner|snack
	TimeMinutes      int    // 0..1439, wall clock
	Weekdays         []int
	Position         int
	ExpectedCalories *int
	ExpectedProteinG *int
	ExpectedFatG     *int
	ExpectedCarbsG   *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TemplateUpsert is the input shape for creating/replacing plan templates.
// ID set to an existing template of the same plan keeps that template's
// identity across the update, so completion records stay attached;
// uuid.Nil (or an id the plan does not own) creates a new template.
type TemplateUpsert struct {
	ID               uuid.UUID
	Name             string
	Category         string
	TimeMinutes      int
	Weekdays         []int
	ExpectedCalories *int
	ExpectedProteinG *int
	ExpectedFatG     *int
	ExpectedCarbsG   *int
}

// PlanUpsert is the input shape for creating/updating a plan. Templates are
// replace-all: the stored set becomes exactly this list, in order, with
// rows matched by TemplateUpsert.ID updated in place.
type PlanUpsert struct {
	Name             string
	Description      string
	DailyCalorieGoal *int
	Templates        []TemplateUpsert
}

// PlansStorage owns diet plans and their meal templates.
type PlansStorage interface {
	// CreatePlan persists a plan with its templates.
	CreatePlan(ctx context.Context, ownerUserID string, upsert PlanUpsert) (DietPlan, []MealTemplate, error)

	// UpdatePlan updates plan fields and atomically replaces its templates.
	UpdatePlan(ctx context.Context, ownerUserID string, planID uuid.UUID, upsert PlanUpsert) (DietPlan, []MealTemplate, error)

	// GetPlan returns a plan with its templates. bool=false means not found.
	GetPlan(ctx context.Context, ownerUserID string, planID uuid.UUID) (DietPlan, []MealTemplate, bool, error)

	// ListPlans returns all plans for an owner, newest first.
	ListPlans(ctx context.Context, ownerUserID string) ([]DietPlan, error)

	// GetActivePlan returns the active plan with templates. bool=false means none active.
	GetActivePlan(ctx context.Context, ownerUserID string) (DietPlan, []MealTemplate, bool, error)

	// SetActivePlan atomically deactivates the previous active plan and
	// activates planID, in one transaction.
	SetActivePlan(ctx context.Context, ownerUserID string, planID uuid.UUID) error

	// DeletePlan removes a plan and cascades to its templates.
	DeletePlan(ctx context.Context, ownerUserID string, planID uuid.UUID) error

	// GetTemplate returns a single template by id. bool=false means not found.
	GetTemplate(ctx context.Context, ownerUserID string, templateID uuid.UUID) (MealTemplate, bool, error)
}

// CompletionRecord tracks fulfillment of one occurrence, unique per
// (owner_user_id, template_id, date). WasCompleted=true means a meal was
// eaten for the slot; a row with WasCompleted=false is an explicit skip.
// Rows are created lazily; the scheduler never materializes them.
type CompletionRecord struct {
	ID              uuid.UUID
	OwnerUserID     string
	TemplateID      uuid.UUID
	Date            string // YYYY-MM-DD
	WasCompleted    bool
	CompletedMealID *uuid.UUID
	CompletedAt     *time.Time
	GoalAchieved    *bool
	GoalDeviation   *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LedgerStorage persists completion records. All writes are upserts keyed on
// (owner_user_id, template_id, date); blind inserts are not part of the API.
type LedgerStorage interface {
	// UpsertRecord creates or updates the record for (owner, template, date).
	// The last write wins on conflict.
	UpsertRecord(ctx context.Context, ownerUserID string, templateID uuid.UUID, date string, wasCompleted bool, mealID *uuid.UUID, completedAt *time.Time) (CompletionRecord, error)

	// GetRecord returns the record for a key. bool=false means no record yet.
	GetRecord(ctx context.Context, ownerUserID string, templateID uuid.UUID, date string) (CompletionRecord, bool, error)

	// ListRecords returns records in a date range (inclusive).
	ListRecords(ctx context.Context, ownerUserID string, from, to string) ([]CompletionRecord, error)

	// SetGoalEvaluation stores the goal verdict on an existing record.
	SetGoalEvaluation(ctx context.Context, ownerUserID string, recordID uuid.UUID, achieved bool, deviation float64) (CompletionRecord, error)
}

// LoggedMeal is a meal produced by the food-logging flow. This core reads
// meals and links them from completion records; it never mutates them after
// creation.
type LoggedMeal struct {
	ID          uuid.UUID
	OwnerUserID string
	Name        string
	Category    string
	EatenAt     time.Time
	Date        string // YYYY-MM-DD, local calendar date of EatenAt
	Calories    int
	ProteinG    int
	FatG        int
	CarbsG      int
	Items       []byte // JSON line items, optional
	CreatedAt   time.Time
}

// MealsStorage persists logged meals.
type MealsStorage interface {
	// CreateMeal persists a logged meal. ID is assigned when nil.
	CreateMeal(ctx context.Context, meal *LoggedMeal) error

	// GetMeal returns a meal by id. bool=false means not found.
	GetMeal(ctx context.Context, ownerUserID string, id uuid.UUID) (LoggedMeal, bool, error)

	// ListMealsByDate returns meals whose local calendar date matches.
	ListMealsByDate(ctx context.Context, ownerUserID string, date string) ([]LoggedMeal, error)
}

// ReportMeta describes a generated adherence report artifact.
type ReportMeta struct {
	ID          uuid.UUID
	OwnerUserID string
	Format      string // "pdf" or "csv"
	FromDate    string // YYYY-MM-DD
	ToDate      string // YYYY-MM-DD
	ObjectKey   *string
	SizeBytes   int64
	Status      string // "ready" or "failed"
	Error       *string
	CreatedAt   time.Time
	Data        []byte // inline bytes, memory mode only
}

// ReportsStorage persists report metadata (and bytes, in memory mode).
type ReportsStorage interface {
	CreateReport(ctx context.Context, report *ReportMeta) error
	GetReport(ctx context.Context, ownerUserID string, id uuid.UUID) (ReportMeta, bool, error)
	ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]ReportMeta, error)
	DeleteReport(ctx context.Context, ownerUserID string, id uuid.UUID) error
}
