package meals

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/adherence"
	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/events"
	"github.com/mealminder/server/internal/ledger"
	"github.com/mealminder/server/internal/storage"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrMealNotFound     = errors.New("meal not found")
	ErrTemplateNotFound = errors.New("template not found")
)

// Service logs eaten meals and links them to scheduled occurrences. Linking
// marks the occurrence completed and, when the template carries a calorie
// target, evaluates the goal in the same pass.
type Service struct {
	storage storage.MealsStorage
	plans   storage.PlansStorage
	ledger  *ledger.Service
	bus     *events.Bus
	clock   clock.Clock
}

func NewService(mealsStorage storage.MealsStorage, plansStorage storage.PlansStorage, ledgerService *ledger.Service, bus *events.Bus, clk clock.Clock) *Service {
	return &Service{
		storage: mealsStorage,
		plans:   plansStorage,
		ledger:  ledgerService,
		bus:     bus,
		clock:   clk,
	}
}

// Log persists a meal. With a template_id it also completes that occurrence
// for the meal's calendar date.
func (s *Service) Log(ctx context.Context, ownerUserID string, req LogMealRequest) (LogMealResponse, error) {
	if err := req.Validate(); err != nil {
		return LogMealResponse{}, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	eatenAt := s.clock.Now()
	if req.EatenAt != nil {
		eatenAt = *req.EatenAt
	}
	eatenAt = eatenAt.In(s.clock.Location())

	meal := &storage.LoggedMeal{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Name:        strings.TrimSpace(req.Name),
		Category:    req.Category,
		EatenAt:     eatenAt,
		Date:        clock.DateString(eatenAt),
		Calories:    req.Calories,
		ProteinG:    req.ProteinG,
		FatG:        req.FatG,
		CarbsG:      req.CarbsG,
		Items:       req.Items,
	}

	if err := s.storage.CreateMeal(ctx, meal); err != nil {
		return LogMealResponse{}, fmt.Errorf("failed to create meal: %w", err)
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Kind:    events.KindMealLogged,
			Owner:   ownerUserID,
			Payload: map[string]string{"meal_id": meal.ID.String(), "date": meal.Date},
		})
	}

	resp := LogMealResponse{Meal: toMealDTO(*meal)}

	if req.TemplateID != nil {
		record, err := s.link(ctx, ownerUserID, *meal, *req.TemplateID, meal.Date)
		if err != nil {
			return LogMealResponse{}, err
		}
		dto := ledger.ToRecordDTO(record)
		resp.Record = &dto
	}

	return resp, nil
}

// Link attaches an existing meal to a scheduled occurrence. Relinking the
// occurrence to a different meal overwrites the previous completion.
func (s *Service) Link(ctx context.Context, ownerUserID string, mealID uuid.UUID, req LinkMealRequest) (LogMealResponse, error) {
	meal, found, err := s.storage.GetMeal(ctx, ownerUserID, mealID)
	if err != nil {
		return LogMealResponse{}, fmt.Errorf("failed to get meal: %w", err)
	}
	if !found {
		return LogMealResponse{}, ErrMealNotFound
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = meal.Date
	}

	record, err := s.link(ctx, ownerUserID, meal, req.TemplateID, date)
	if err != nil {
		return LogMealResponse{}, err
	}

	dto := ledger.ToRecordDTO(record)
	return LogMealResponse{Meal: toMealDTO(meal), Record: &dto}, nil
}

// ListByDate returns the owner's meals for a local calendar date.
func (s *Service) ListByDate(ctx context.Context, ownerUserID string, date string) (ListMealsResponse, error) {
	if _, err := clock.ParseDate(date, s.clock.Location()); err != nil {
		return ListMealsResponse{}, ErrInvalidRequest
	}

	rows, err := s.storage.ListMealsByDate(ctx, ownerUserID, date)
	if err != nil {
		return ListMealsResponse{}, fmt.Errorf("failed to list meals: %w", err)
	}

	resp := ListMealsResponse{Meals: []MealDTO{}}
	for _, row := range rows {
		resp.Meals = append(resp.Meals, toMealDTO(row))
	}
	return resp, nil
}

func (s *Service) link(ctx context.Context, ownerUserID string, meal storage.LoggedMeal, templateID uuid.UUID, date string) (storage.CompletionRecord, error) {
	tpl, found, err := s.plans.GetTemplate(ctx, ownerUserID, templateID)
	if err != nil {
		return storage.CompletionRecord{}, fmt.Errorf("failed to load template: %w", err)
	}
	if !found {
		return storage.CompletionRecord{}, ErrTemplateNotFound
	}

	mealID := meal.ID
	record, err := s.ledger.MarkCompleted(ctx, ownerUserID, templateID, date, &mealID)
	if err != nil {
		if errors.Is(err, ledger.ErrTemplateNotFound) {
			return storage.CompletionRecord{}, ErrTemplateNotFound
		}
		if errors.Is(err, ledger.ErrInvalidRequest) {
			return storage.CompletionRecord{}, ErrInvalidRequest
		}
		return storage.CompletionRecord{}, err
	}

	if tpl.ExpectedCalories != nil {
		verdict, deviation := adherence.ClassifyGoal(*tpl.ExpectedCalories, meal.Calories)
		evaluated, err := s.ledger.RecordGoalEvaluation(ctx, ownerUserID, record.ID, adherence.GoalAchieved(verdict), deviation)
		if err != nil {
			// The completion itself stands; the verdict can be recomputed on
			// the next link.
			log.Printf("meals: goal evaluation failed for record %s: %v", record.ID, err)
		} else {
			record = evaluated
		}
	}

	return record, nil
}
