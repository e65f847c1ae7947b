package meals

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/ledger"
	"github.com/mealminder/server/internal/storage"
)

type MealDTO struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	EatenAt   time.Time       `json:"eaten_at"`
	Date      string          `json:"date"`
	Calories  int             `json:"calories"`
	ProteinG  int             `json:"protein_g"`
	FatG      int             `json:"fat_g"`
	CarbsG    int             `json:"carbs_g"`
	Items     json.RawMessage `json:"items,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type ListMealsResponse struct {
	Meals []MealDTO `json:"meals"`
}

// LogMealRequest logs an eaten meal. When template_id is set the meal is
// also linked to that scheduled occurrence in one call.
type LogMealRequest struct {
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	EatenAt    *time.Time      `json:"eaten_at,omitempty"`
	Calories   int             `json:"calories"`
	ProteinG   int             `json:"protein_g"`
	FatG       int             `json:"fat_g"`
	CarbsG     int             `json:"carbs_g"`
	Items      json.RawMessage `json:"items,omitempty"`
	TemplateID *uuid.UUID      `json:"template_id,omitempty"`
}

// LinkMealRequest links an already logged meal to a scheduled occurrence.
// Date defaults to the meal's own calendar date.
type LinkMealRequest struct {
	TemplateID uuid.UUID `json:"template_id"`
	Date       string    `json:"date,omitempty"`
}

// LogMealResponse returns the meal plus the completion record created by a
// linked log.
type LogMealResponse struct {
	Meal   MealDTO           `json:"meal"`
	Record *ledger.RecordDTO `json:"record,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r LogMealRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if r.Calories < 0 || r.ProteinG < 0 || r.FatG < 0 || r.CarbsG < 0 {
		return fmt.Errorf("nutrition values must not be negative")
	}
	if r.Category != "" {
		switch r.Category {
		case storage.CategoryBreakfast, storage.CategoryLunch, storage.CategoryDinner, storage.CategorySnack:
		default:
			return fmt.Errorf("category must be breakfast, lunch, dinner or snack")
		}
	}
	if len(r.Items) > 0 && !json.Valid(r.Items) {
		return fmt.Errorf("items must be valid JSON")
	}
	return nil
}

func toMealDTO(row storage.LoggedMeal) MealDTO {
	return MealDTO{
		ID:        row.ID,
		Name:      row.Name,
		Category:  row.Category,
		EatenAt:   row.EatenAt,
		Date:      row.Date,
		Calories:  row.Calories,
		ProteinG:  row.ProteinG,
		FatG:      row.FatG,
		CarbsG:    row.CarbsG,
		Items:     row.Items,
		CreatedAt: row.CreatedAt,
	}
}
