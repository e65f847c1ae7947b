package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/storage"
)

// LedgerMemoryStorage implements storage.LedgerStorage in memory. The unique
// index on owner:template:date gives the same upsert semantics as the
// postgres ON CONFLICT path.
type LedgerMemoryStorage struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*storage.CompletionRecord
	unique  map[string]uuid.UUID // owner:template:date -> record_id
}

func NewLedgerMemoryStorage() *LedgerMemoryStorage {
	return &LedgerMemoryStorage{
		records: make(map[uuid.UUID]*storage.CompletionRecord),
		unique:  make(map[string]uuid.UUID),
	}
}

func recordKey(ownerUserID string, templateID uuid.UUID, date string) string {
	return ownerUserID + ":" + templateID.String() + ":" + date
}

func (s *LedgerMemoryStorage) UpsertRecord(ctx context.Context, ownerUserID string, templateID uuid.UUID, date string, wasCompleted bool, mealID *uuid.UUID, completedAt *time.Time) (storage.CompletionRecord, error) {
	_ = ctx

	key := recordKey(ownerUserID, templateID, date)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.unique[key]; ok {
		existing := s.records[id]
		existing.WasCompleted = wasCompleted
		existing.CompletedMealID = mealID
		existing.CompletedAt = completedAt
		// A rewrite of the completion invalidates any prior goal verdict.
		existing.GoalAchieved = nil
		existing.GoalDeviation = nil
		existing.UpdatedAt = now
		return *existing, nil
	}

	row := storage.CompletionRecord{
		ID:              uuid.New(),
		OwnerUserID:     ownerUserID,
		TemplateID:      templateID,
		Date:            date,
		WasCompleted:    wasCompleted,
		CompletedMealID: mealID,
		CompletedAt:     completedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.records[row.ID] = &row
	s.unique[key] = row.ID

	return row, nil
}

func (s *LedgerMemoryStorage) GetRecord(ctx context.Context, ownerUserID string, templateID uuid.UUID, date string) (storage.CompletionRecord, bool, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.unique[recordKey(ownerUserID, templateID, date)]
	if !ok {
		return storage.CompletionRecord{}, false, nil
	}
	row, ok := s.records[id]
	if !ok {
		return storage.CompletionRecord{}, false, nil
	}

	return *row, true, nil
}

func (s *LedgerMemoryStorage) ListRecords(ctx context.Context, ownerUserID string, from, to string) ([]storage.CompletionRecord, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.CompletionRecord, 0)
	for _, row := range s.records {
		if row.OwnerUserID != ownerUserID {
			continue
		}
		if row.Date < from || row.Date > to {
			continue
		}
		result = append(result, *row)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date == result[j].Date {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Date < result[j].Date
	})

	return result, nil
}

func (s *LedgerMemoryStorage) SetGoalEvaluation(ctx context.Context, ownerUserID string, recordID uuid.UUID, achieved bool, deviation float64) (storage.CompletionRecord, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.records[recordID]
	if !ok || row.OwnerUserID != ownerUserID {
		return storage.CompletionRecord{}, ErrNotFound
	}

	row.GoalAchieved = &achieved
	row.GoalDeviation = &deviation
	row.UpdatedAt = time.Now().UTC()

	return *row, nil
}
