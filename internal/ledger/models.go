package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/storage"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RecordDTO struct {
	ID              uuid.UUID  `json:"id"`
	TemplateID      uuid.UUID  `json:"template_id"`
	Date            string     `json:"date"`
	WasCompleted    bool       `json:"was_completed"`
	CompletedMealID *uuid.UUID `json:"completed_meal_id,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	GoalAchieved    *bool      `json:"goal_achieved,omitempty"`
	GoalDeviation   *float64   `json:"goal_deviation,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SkipRequest marks a scheduled occurrence as deliberately skipped.
type SkipRequest struct {
	TemplateID string `json:"template_id"`
	Date       string `json:"date"`
}

type SkipResponse struct {
	Record RecordDTO `json:"record"`
}

func ToRecordDTO(row storage.CompletionRecord) RecordDTO {
	return RecordDTO{
		ID:              row.ID,
		TemplateID:      row.TemplateID,
		Date:            row.Date,
		WasCompleted:    row.WasCompleted,
		CompletedMealID: row.CompletedMealID,
		CompletedAt:     row.CompletedAt,
		GoalAchieved:    row.GoalAchieved,
		GoalDeviation:   row.GoalDeviation,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}
