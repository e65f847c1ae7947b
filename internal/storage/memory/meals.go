package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/storage"
)

// MealsMemoryStorage implements storage.MealsStorage in memory.
type MealsMemoryStorage struct {
	mu    sync.RWMutex
	meals map[uuid.UUID]storage.LoggedMeal
}

func NewMealsMemoryStorage() *MealsMemoryStorage {
	return &MealsMemoryStorage{
		meals: make(map[uuid.UUID]storage.LoggedMeal),
	}
}

func (s *MealsMemoryStorage) CreateMeal(ctx context.Context, meal *storage.LoggedMeal) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if meal.ID == uuid.Nil {
		meal.ID = uuid.New()
	}
	meal.CreatedAt = time.Now().UTC()

	s.meals[meal.ID] = *meal

	return nil
}

func (s *MealsMemoryStorage) GetMeal(ctx context.Context, ownerUserID string, id uuid.UUID) (storage.LoggedMeal, bool, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	meal, ok := s.meals[id]
	if !ok || meal.OwnerUserID != ownerUserID {
		return storage.LoggedMeal{}, false, nil
	}

	return meal, true, nil
}

func (s *MealsMemoryStorage) ListMealsByDate(ctx context.Context, ownerUserID string, date string) ([]storage.LoggedMeal, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.LoggedMeal, 0)
	for _, meal := range s.meals {
		if meal.OwnerUserID != ownerUserID || meal.Date != date {
			continue
		}
		result = append(result, meal)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EatenAt.Before(result[j].EatenAt)
	})

	return result, nil
}
