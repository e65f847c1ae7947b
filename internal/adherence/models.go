package adherence

import (
	"time"

	"github.com/google/uuid"
)

// Occurrence statuses in a day report.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusMissed    = "missed"
	StatusPending   = "pending"
)

// Goal verdicts for a completed occurrence with an expected calorie target.
const (
	VerdictMatch    = "match"
	VerdictClose    = "close"
	VerdictMismatch = "mismatch"
)

// ScheduledItemDTO is one expected occurrence on the report date with its
// resolved status.
type ScheduledItemDTO struct {
	TemplateID       uuid.UUID  `json:"template_id"`
	Name             string     `json:"name"`
	Category         string     `json:"category"`
	TimeMinutes      int        `json:"time_minutes"`
	Status           string     `json:"status"`
	ExpectedCalories *int       `json:"expected_calories,omitempty"`
	CompletedMealID  *uuid.UUID `json:"completed_meal_id,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	GoalVerdict      *string    `json:"goal_verdict,omitempty"`
	GoalAchieved     *bool      `json:"goal_achieved,omitempty"`
	GoalDeviation    *float64   `json:"goal_deviation,omitempty"`
}

// OffPlanMealDTO is a logged meal not linked to any scheduled occurrence.
type OffPlanMealDTO struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category,omitempty"`
	Calories int       `json:"calories"`
	EatenAt  time.Time `json:"eaten_at"`
}

// DayReport is the adherence evaluation for one calendar date.
type DayReport struct {
	Date             string             `json:"date"`
	PlanID           *uuid.UUID         `json:"plan_id,omitempty"`
	PlanName         string             `json:"plan_name,omitempty"`
	DailyCalorieGoal *int               `json:"daily_calorie_goal,omitempty"`
	Items            []ScheduledItemDTO `json:"items"`
	ScheduledCount   int                `json:"scheduled_count"`
	CompletedCount   int                `json:"completed_count"`
	SkippedCount     int                `json:"skipped_count"`
	MissedCount      int                `json:"missed_count"`
	PendingCount     int                `json:"pending_count"`
	CompletionRate   float64            `json:"completion_rate"`
	OffPlanMeals     []OffPlanMealDTO   `json:"off_plan_meals"`
	OffPlanCalories  int                `json:"off_plan_calories"`
	ConsumedCalories int                `json:"consumed_calories"`
}

// TrendResponse covers a span of consecutive days.
type TrendResponse struct {
	From string      `json:"from"`
	To   string      `json:"to"`
	Days []DayReport `json:"days"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
