package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mealminder/server/internal/storage"
)

var ErrNotFound = errors.New("not found")

// PostgresStorage bundles the Postgres-backed stores over one pgx pool.
type PostgresStorage struct {
	pool    *pgxpool.Pool
	plans   *PostgresPlansStorage
	ledger  *PostgresLedgerStorage
	meals   *PostgresMealsStorage
	reports *PostgresReportsStorage
}

func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStorage{
		pool:    pool,
		plans:   NewPostgresPlansStorage(pool),
		ledger:  NewPostgresLedgerStorage(pool),
		meals:   NewPostgresMealsStorage(pool),
		reports: NewPostgresReportsStorage(pool),
	}, nil
}

func (p *PostgresStorage) GetPlansStorage() storage.PlansStorage {
	return p.plans
}

func (p *PostgresStorage) GetLedgerStorage() storage.LedgerStorage {
	return p.ledger
}

func (p *PostgresStorage) GetMealsStorage() storage.MealsStorage {
	return p.meals
}

func (p *PostgresStorage) GetReportsStorage() storage.ReportsStorage {
	return p.reports
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

func weekdaysToInt32(days []int) []int32 {
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}

func weekdaysFromInt32(days []int32) []int {
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = int(d)
	}
	return out
}
