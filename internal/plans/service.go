package plans

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/events"
	"github.com/mealminder/server/internal/storage"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrPlanNotFound   = errors.New("plan not found")
)

// Rescheduler regenerates pending reminders after structural plan changes.
type Rescheduler interface {
	Reschedule(ctx context.Context, ownerUserID string) error
}

// Service owns diet plan CRUD and the single-active-plan invariant.
type Service struct {
	storage     storage.PlansStorage
	bus         *events.Bus
	rescheduler Rescheduler
}

func NewService(plansStorage storage.PlansStorage, bus *events.Bus) *Service {
	return &Service{
		storage: plansStorage,
		bus:     bus,
	}
}

// WithRescheduler wires the reminder scheduler in after construction.
func (s *Service) WithRescheduler(r Rescheduler) *Service {
	s.rescheduler = r
	return s
}

func (s *Service) Create(ctx context.Context, ownerUserID string, req UpsertPlanRequest) (PlanDTO, error) {
	if err := req.Validate(); err != nil {
		return PlanDTO{}, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	plan, templates, err := s.storage.CreatePlan(ctx, ownerUserID, req.toUpsert())
	if err != nil {
		return PlanDTO{}, fmt.Errorf("failed to create plan: %w", err)
	}

	s.afterStructuralChange(ctx, ownerUserID, plan.ID)
	return toPlanDTO(plan, templates), nil
}

func (s *Service) Update(ctx context.Context, ownerUserID string, planID uuid.UUID, req UpsertPlanRequest) (PlanDTO, error) {
	if err := req.Validate(); err != nil {
		return PlanDTO{}, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	plan, templates, err := s.storage.UpdatePlan(ctx, ownerUserID, planID, req.toUpsert())
	if err != nil {
		if isNotFound(err) {
			return PlanDTO{}, ErrPlanNotFound
		}
		return PlanDTO{}, fmt.Errorf("failed to update plan: %w", err)
	}

	s.afterStructuralChange(ctx, ownerUserID, plan.ID)
	return toPlanDTO(plan, templates), nil
}

func (s *Service) Get(ctx context.Context, ownerUserID string, planID uuid.UUID) (PlanDTO, error) {
	plan, templates, found, err := s.storage.GetPlan(ctx, ownerUserID, planID)
	if err != nil {
		return PlanDTO{}, fmt.Errorf("failed to get plan: %w", err)
	}
	if !found {
		return PlanDTO{}, ErrPlanNotFound
	}
	return toPlanDTO(plan, templates), nil
}

func (s *Service) List(ctx context.Context, ownerUserID string) (ListPlansResponse, error) {
	rows, err := s.storage.ListPlans(ctx, ownerUserID)
	if err != nil {
		return ListPlansResponse{}, fmt.Errorf("failed to list plans: %w", err)
	}

	resp := ListPlansResponse{Plans: []PlanDTO{}}
	for _, plan := range rows {
		resp.Plans = append(resp.Plans, toPlanDTO(plan, nil))
	}
	return resp, nil
}

// Active returns the owner's active plan with templates, or ErrPlanNotFound
// when no plan is active.
func (s *Service) Active(ctx context.Context, ownerUserID string) (PlanDTO, error) {
	plan, templates, found, err := s.storage.GetActivePlan(ctx, ownerUserID)
	if err != nil {
		return PlanDTO{}, fmt.Errorf("failed to get active plan: %w", err)
	}
	if !found {
		return PlanDTO{}, ErrPlanNotFound
	}
	return toPlanDTO(plan, templates), nil
}

// Activate makes planID the owner's single active plan. The previous active
// plan, if any, is deactivated in the same transaction.
func (s *Service) Activate(ctx context.Context, ownerUserID string, planID uuid.UUID) (PlanDTO, error) {
	if err := s.storage.SetActivePlan(ctx, ownerUserID, planID); err != nil {
		if isNotFound(err) {
			return PlanDTO{}, ErrPlanNotFound
		}
		return PlanDTO{}, fmt.Errorf("failed to activate plan: %w", err)
	}

	plan, templates, found, err := s.storage.GetPlan(ctx, ownerUserID, planID)
	if err != nil || !found {
		return PlanDTO{}, fmt.Errorf("failed to reload activated plan: %w", err)
	}

	s.afterStructuralChange(ctx, ownerUserID, planID)
	return toPlanDTO(plan, templates), nil
}

// Delete removes a plan and its templates, then rebuilds reminders so none
// point at the deleted templates.
func (s *Service) Delete(ctx context.Context, ownerUserID string, planID uuid.UUID) error {
	if err := s.storage.DeletePlan(ctx, ownerUserID, planID); err != nil {
		if isNotFound(err) {
			return ErrPlanNotFound
		}
		return fmt.Errorf("failed to delete plan: %w", err)
	}

	s.afterStructuralChange(ctx, ownerUserID, planID)
	return nil
}

// afterStructuralChange publishes a change event and rebuilds reminders.
// Both are best effort; the mutation itself has already committed.
func (s *Service) afterStructuralChange(ctx context.Context, ownerUserID string, planID uuid.UUID) {
	if s.bus != nil {
		s.bus.Publish(events.Event{
			Kind:    events.KindPlanChanged,
			Owner:   ownerUserID,
			Payload: map[string]string{"plan_id": planID.String()},
		})
	}

	if s.rescheduler != nil {
		if err := s.rescheduler.Reschedule(ctx, ownerUserID); err != nil {
			log.Printf("plans: reschedule after plan change failed: %v", err)
		}
	}
}

// isNotFound matches the not-found sentinel of either storage backend.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}
