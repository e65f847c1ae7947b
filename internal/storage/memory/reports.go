package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/storage"
)

// ReportsMemoryStorage implements storage.ReportsStorage in memory. Report
// bytes are kept inline in Data; there is no blob store in memory mode.
type ReportsMemoryStorage struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]storage.ReportMeta
}

func NewReportsMemoryStorage() *ReportsMemoryStorage {
	return &ReportsMemoryStorage{
		reports: make(map[uuid.UUID]storage.ReportMeta),
	}
}

func (s *ReportsMemoryStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.CreatedAt = time.Now().UTC()

	s.reports[report.ID] = *report

	return nil
}

func (s *ReportsMemoryStorage) GetReport(ctx context.Context, ownerUserID string, id uuid.UUID) (storage.ReportMeta, bool, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok || report.OwnerUserID != ownerUserID {
		return storage.ReportMeta{}, false, nil
	}

	return report, true, nil
}

func (s *ReportsMemoryStorage) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ReportMeta, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]storage.ReportMeta, 0)
	for _, report := range s.reports {
		if report.OwnerUserID == ownerUserID {
			all = append(all, report)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []storage.ReportMeta{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	return all, nil
}

func (s *ReportsMemoryStorage) DeleteReport(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok || report.OwnerUserID != ownerUserID {
		return ErrNotFound
	}

	delete(s.reports, id)

	return nil
}
