package memory

import (
	"errors"

	"github.com/mealminder/server/internal/storage"
)

var ErrNotFound = errors.New("not found")

// MemoryStorage bundles the in-memory stores. Used when no DATABASE_URL is
// configured and in tests.
type MemoryStorage struct {
	plans   *PlansMemoryStorage
	ledger  *LedgerMemoryStorage
	meals   *MealsMemoryStorage
	reports *ReportsMemoryStorage
}

func New() *MemoryStorage {
	return &MemoryStorage{
		plans:   NewPlansMemoryStorage(),
		ledger:  NewLedgerMemoryStorage(),
		meals:   NewMealsMemoryStorage(),
		reports: NewReportsMemoryStorage(),
	}
}

func (m *MemoryStorage) GetPlansStorage() storage.PlansStorage {
	return m.plans
}

func (m *MemoryStorage) GetLedgerStorage() storage.LedgerStorage {
	return m.ledger
}

func (m *MemoryStorage) GetMealsStorage() storage.MealsStorage {
	return m.meals
}

func (m *MemoryStorage) GetReportsStorage() storage.ReportsStorage {
	return m.reports
}

func (m *MemoryStorage) Close() error {
	// no-op for memory
	return nil
}
