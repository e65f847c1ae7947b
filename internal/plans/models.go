package plans

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/recurrence"
	"github.com/mealminder/server/internal/storage"
)

const maxTemplatesPerPlan = 30

type TemplateDTO struct {
	ID               uuid.UUID `json:"id"`
	PlanID           uuid.UUID `json:"plan_id"`
	Name             string    `json:"name"`
	Category         string    `json:"category"`
	TimeMinutes      int       `json:"time_minutes"`
	Weekdays         []int     `json:"weekdays"`
	Position         int       `json:"position"`
	ExpectedCalories *int      `json:"expected_calories,omitempty"`
	ExpectedProteinG *int      `json:"expected_protein_g,omitempty"`
	ExpectedFatG     *int      `json:"expected_fat_g,omitempty"`
	ExpectedCarbsG   *int      `json:"expected_carbs_g,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type PlanDTO struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	IsActive         bool          `json:"is_active"`
	DailyCalorieGoal *int          `json:"daily_calorie_goal,omitempty"`
	Templates        []TemplateDTO `json:"templates,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type ListPlansResponse struct {
	Plans []PlanDTO `json:"plans"`
}

// TemplateInput carries an optional id on updates: sending an existing
// template's id keeps its identity, so completion history stays attached.
type TemplateInput struct {
	ID               *uuid.UUID `json:"id,omitempty"`
	Name             string     `json:"name"`
	Category         string     `json:"category"`
	TimeMinutes      int        `json:"time_minutes"`
	Weekdays         []int      `json:"weekdays"`
	ExpectedCalories *int       `json:"expected_calories,omitempty"`
	ExpectedProteinG *int       `json:"expected_protein_g,omitempty"`
	ExpectedFatG     *int       `json:"expected_fat_g,omitempty"`
	ExpectedCarbsG   *int       `json:"expected_carbs_g,omitempty"`
}

type UpsertPlanRequest struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	DailyCalorieGoal *int            `json:"daily_calorie_goal,omitempty"`
	Templates        []TemplateInput `json:"templates"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func validCategory(category string) bool {
	switch category {
	case storage.CategoryBreakfast, storage.CategoryLunch, storage.CategoryDinner, storage.CategorySnack:
		return true
	}
	return false
}

func (r UpsertPlanRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.Templates) == 0 {
		return fmt.Errorf("at least one template is required")
	}
	if len(r.Templates) > maxTemplatesPerPlan {
		return fmt.Errorf("too many templates")
	}
	if r.DailyCalorieGoal != nil && *r.DailyCalorieGoal <= 0 {
		return fmt.Errorf("daily_calorie_goal must be positive")
	}

	for i, t := range r.Templates {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("templates[%d].name is required", i)
		}
		if !validCategory(t.Category) {
			return fmt.Errorf("templates[%d].category must be breakfast, lunch, dinner or snack", i)
		}
		rule := recurrence.Rule{TimeMinutes: t.TimeMinutes, Weekdays: t.Weekdays}
		if err := recurrence.ValidateRule(rule); err != nil {
			return fmt.Errorf("templates[%d]: %w", i, err)
		}
		if t.ExpectedCalories != nil && *t.ExpectedCalories < 0 {
			return fmt.Errorf("templates[%d].expected_calories must not be negative", i)
		}
	}

	return nil
}

func (r UpsertPlanRequest) toUpsert() storage.PlanUpsert {
	templates := make([]storage.TemplateUpsert, 0, len(r.Templates))
	for _, t := range r.Templates {
		id := uuid.Nil
		if t.ID != nil {
			id = *t.ID
		}
		templates = append(templates, storage.TemplateUpsert{
			ID:               id,
			Name:             strings.TrimSpace(t.Name),
			Category:         t.Category,
			TimeMinutes:      t.TimeMinutes,
			Weekdays:         t.Weekdays,
			ExpectedCalories: t.ExpectedCalories,
			ExpectedProteinG: t.ExpectedProteinG,
			ExpectedFatG:     t.ExpectedFatG,
			ExpectedCarbsG:   t.ExpectedCarbsG,
		})
	}

	return storage.PlanUpsert{
		Name:             strings.TrimSpace(r.Name),
		Description:      strings.TrimSpace(r.Description),
		DailyCalorieGoal: r.DailyCalorieGoal,
		Templates:        templates,
	}
}

func toTemplateDTO(row storage.MealTemplate) TemplateDTO {
	return TemplateDTO{
		ID:               row.ID,
		PlanID:           row.PlanID,
		Name:             row.Name,
		Category:         row.Category,
		TimeMinutes:      row.TimeMinutes,
		Weekdays:         row.Weekdays,
		Position:         row.Position,
		ExpectedCalories: row.ExpectedCalories,
		ExpectedProteinG: row.ExpectedProteinG,
		ExpectedFatG:     row.ExpectedFatG,
		ExpectedCarbsG:   row.ExpectedCarbsG,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func toPlanDTO(plan storage.DietPlan, templates []storage.MealTemplate) PlanDTO {
	dto := PlanDTO{
		ID:               plan.ID,
		Name:             plan.Name,
		Description:      plan.Description,
		IsActive:         plan.IsActive,
		DailyCalorieGoal: plan.DailyCalorieGoal,
		CreatedAt:        plan.CreatedAt,
		UpdatedAt:        plan.UpdatedAt,
	}
	for _, t := range templates {
		dto.Templates = append(dto.Templates, toTemplateDTO(t))
	}
	return dto
}
