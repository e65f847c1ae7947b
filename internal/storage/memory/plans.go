package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/storage"
)

// PlansMemoryStorage implements storage.PlansStorage in memory.
type PlansMemoryStorage struct {
	mu        sync.RWMutex
	plans     map[uuid.UUID]*storage.DietPlan
	templates map[uuid.UUID]*storage.MealTemplate
	byPlan    map[uuid.UUID][]uuid.UUID // plan_id -> ordered template_ids
}

func NewPlansMemoryStorage() *PlansMemoryStorage {
	return &PlansMemoryStorage{
		plans:     make(map[uuid.UUID]*storage.DietPlan),
		templates: make(map[uuid.UUID]*storage.MealTemplate),
		byPlan:    make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *PlansMemoryStorage) CreatePlan(ctx context.Context, ownerUserID string, upsert storage.PlanUpsert) (storage.DietPlan, []storage.MealTemplate, error) {
	_ = ctx

	now := time.Now().UTC()
	plan := storage.DietPlan{
		ID:               uuid.New(),
		OwnerUserID:      ownerUserID,
		Name:             upsert.Name,
		Description:      upsert.Description,
		DailyCalorieGoal: upsert.DailyCalorieGoal,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.plans[plan.ID] = &plan
	templates := s.replaceTemplatesLocked(ownerUserID, plan.ID, upsert.Templates, now)

	return plan, templates, nil
}

func (s *PlansMemoryStorage) UpdatePlan(ctx context.Context, ownerUserID string, planID uuid.UUID, upsert storage.PlanUpsert) (storage.DietPlan, []storage.MealTemplate, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[planID]
	if !ok || plan.OwnerUserID != ownerUserID {
		return storage.DietPlan{}, nil, ErrNotFound
	}

	now := time.Now().UTC()
	plan.Name = upsert.Name
	plan.Description = upsert.Description
	plan.DailyCalorieGoal = upsert.DailyCalorieGoal
	plan.UpdatedAt = now

	templates := s.replaceTemplatesLocked(ownerUserID, planID, upsert.Templates, now)

	return *plan, templates, nil
}

// replaceTemplatesLocked stores the new ordered template list for the plan.
// Items whose ID matches an existing template of this plan keep that id and
// created_at; everything else becomes a fresh row. Templates absent from the
// new list are dropped. Caller holds the write lock.
func (s *PlansMemoryStorage) replaceTemplatesLocked(ownerUserID string, planID uuid.UUID, items []storage.TemplateUpsert, now time.Time) []storage.MealTemplate {
	existing := make(map[uuid.UUID]*storage.MealTemplate, len(s.byPlan[planID]))
	for _, id := range s.byPlan[planID] {
		if row, ok := s.templates[id]; ok {
			existing[id] = row
		}
		delete(s.templates, id)
	}
	delete(s.byPlan, planID)

	templates := make([]storage.MealTemplate, 0, len(items))
	for i, item := range items {
		id := uuid.New()
		createdAt := now
		if prev, ok := existing[item.ID]; ok {
			id = item.ID
			createdAt = prev.CreatedAt
			delete(existing, item.ID)
		}
		row := storage.MealTemplate{
			ID:               id,
			PlanID:           planID,
			OwnerUserID:      ownerUserID,
			Name:             item.Name,
			Category:         item.Category,
			TimeMinutes:      item.TimeMinutes,
			Weekdays:         append([]int(nil), item.Weekdays...),
			Position:         i,
			ExpectedCalories: item.ExpectedCalories,
			ExpectedProteinG: item.ExpectedProteinG,
			ExpectedFatG:     item.ExpectedFatG,
			ExpectedCarbsG:   item.ExpectedCarbsG,
			CreatedAt:        createdAt,
			UpdatedAt:        now,
		}
		s.templates[row.ID] = &row
		s.byPlan[planID] = append(s.byPlan[planID], row.ID)
		templates = append(templates, row)
	}
	return templates
}

func (s *PlansMemoryStorage) GetPlan(ctx context.Context, ownerUserID string, planID uuid.UUID) (storage.DietPlan, []storage.MealTemplate, bool, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[planID]
	if !ok || plan.OwnerUserID != ownerUserID {
		return storage.DietPlan{}, nil, false, nil
	}

	return *plan, s.listTemplatesLocked(planID), true, nil
}

func (s *PlansMemoryStorage) listTemplatesLocked(planID uuid.UUID) []storage.MealTemplate {
	ids := s.byPlan[planID]
	templates := make([]storage.MealTemplate, 0, len(ids))
	for _, id := range ids {
		if row, ok := s.templates[id]; ok {
			templates = append(templates, *row)
		}
	}
	return templates
}

func (s *PlansMemoryStorage) ListPlans(ctx context.Context, ownerUserID string) ([]storage.DietPlan, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.DietPlan, 0)
	for _, plan := range s.plans {
		if plan.OwnerUserID == ownerUserID {
			result = append(result, *plan)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (s *PlansMemoryStorage) GetActivePlan(ctx context.Context, ownerUserID string) (storage.DietPlan, []storage.MealTemplate, bool, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, plan := range s.plans {
		if plan.OwnerUserID == ownerUserID && plan.IsActive {
			return *plan, s.listTemplatesLocked(plan.ID), true, nil
		}
	}

	return storage.DietPlan{}, nil, false, nil
}

// SetActivePlan flips the previous active plan off and the target on under a
// single lock, so no reader ever observes two active plans.
func (s *PlansMemoryStorage) SetActivePlan(ctx context.Context, ownerUserID string, planID uuid.UUID) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.plans[planID]
	if !ok || target.OwnerUserID != ownerUserID {
		return ErrNotFound
	}

	now := time.Now().UTC()
	for _, plan := range s.plans {
		if plan.OwnerUserID == ownerUserID && plan.IsActive && plan.ID != planID {
			plan.IsActive = false
			plan.UpdatedAt = now
		}
	}
	target.IsActive = true
	target.UpdatedAt = now

	return nil
}

func (s *PlansMemoryStorage) DeletePlan(ctx context.Context, ownerUserID string, planID uuid.UUID) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[planID]
	if !ok || plan.OwnerUserID != ownerUserID {
		return ErrNotFound
	}

	for _, id := range s.byPlan[planID] {
		delete(s.templates, id)
	}
	delete(s.byPlan, planID)
	delete(s.plans, planID)

	return nil
}

func (s *PlansMemoryStorage) GetTemplate(ctx context.Context, ownerUserID string, templateID uuid.UUID) (storage.MealTemplate, bool, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.templates[templateID]
	if !ok || row.OwnerUserID != ownerUserID {
		return storage.MealTemplate{}, false, nil
	}

	return *row, true, nil
}
