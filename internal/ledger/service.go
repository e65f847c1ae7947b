package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/storage"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrTemplateNotFound = errors.New("template not found")
	ErrRecordNotFound   = errors.New("record not found")
)

// Rescheduler regenerates pending reminders after ledger mutations.
type Rescheduler interface {
	Reschedule(ctx context.Context, ownerUserID string) error
}

// Service owns the completion ledger. Each (owner, template, date) cell holds
// at most one record; concurrent writers to the same cell are serialized with
// a per-cell mutex so the last write wins cleanly.
type Service struct {
	storage     storage.LedgerStorage
	plans       storage.PlansStorage
	clock       clock.Clock
	rescheduler Rescheduler

	mu    sync.Mutex
	cells map[string]*sync.Mutex
}

func NewService(ledgerStorage storage.LedgerStorage, plansStorage storage.PlansStorage, clk clock.Clock) *Service {
	return &Service{
		storage: ledgerStorage,
		plans:   plansStorage,
		clock:   clk,
		cells:   make(map[string]*sync.Mutex),
	}
}

// WithRescheduler wires the reminder scheduler in after construction. This
// breaks the init cycle between ledger and reminders.
func (s *Service) WithRescheduler(r Rescheduler) *Service {
	s.rescheduler = r
	return s
}

func (s *Service) cellLock(ownerUserID string, templateID uuid.UUID, date string) *sync.Mutex {
	key := ownerUserID + ":" + templateID.String() + ":" + date

	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.cells[key]; ok {
		return m
	}
	m := &sync.Mutex{}
	s.cells[key] = m
	return m
}

// MarkCompleted records that the occurrence was eaten, optionally linked to a
// logged meal. Re-marking overwrites the previous record and clears any goal
// verdict so it can be re-evaluated against the new meal.
func (s *Service) MarkCompleted(ctx context.Context, ownerUserID string, templateID uuid.UUID, date string, mealID *uuid.UUID) (storage.CompletionRecord, error) {
	if err := s.validateCell(ctx, ownerUserID, templateID, date); err != nil {
		return storage.CompletionRecord{}, err
	}

	lock := s.cellLock(ownerUserID, templateID, date)
	lock.Lock()
	defer lock.Unlock()

	now := s.clock.Now()
	record, err := s.storage.UpsertRecord(ctx, ownerUserID, templateID, date, true, mealID, &now)
	if err != nil {
		return storage.CompletionRecord{}, fmt.Errorf("failed to upsert completion: %w", err)
	}

	s.rescheduleBestEffort(ctx, ownerUserID)
	return record, nil
}

// MarkSkipped records an explicit skip for the occurrence. A skipped
// occurrence is settled: it no longer counts as missed and gets no reminder.
func (s *Service) MarkSkipped(ctx context.Context, ownerUserID string, templateID uuid.UUID, date string) (storage.CompletionRecord, error) {
	if err := s.validateCell(ctx, ownerUserID, templateID, date); err != nil {
		return storage.CompletionRecord{}, err
	}

	lock := s.cellLock(ownerUserID, templateID, date)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.storage.UpsertRecord(ctx, ownerUserID, templateID, date, false, nil, nil)
	if err != nil {
		return storage.CompletionRecord{}, fmt.Errorf("failed to upsert skip: %w", err)
	}

	s.rescheduleBestEffort(ctx, ownerUserID)
	return record, nil
}

// rescheduleBestEffort rebuilds reminders after a ledger write. Failures are
// logged and swallowed; the ledger write has already committed and the next
// rebuild heals the alert set.
func (s *Service) rescheduleBestEffort(ctx context.Context, ownerUserID string) {
	if s.rescheduler == nil {
		return
	}
	if err := s.rescheduler.Reschedule(ctx, ownerUserID); err != nil {
		log.Printf("ledger: reschedule after write failed: %v", err)
	}
}

// Fetch returns the record for a cell, or found=false when the occurrence has
// not been acted on yet.
func (s *Service) Fetch(ctx context.Context, ownerUserID string, templateID uuid.UUID, date string) (storage.CompletionRecord, bool, error) {
	return s.storage.GetRecord(ctx, ownerUserID, templateID, date)
}

// RecordGoalEvaluation attaches a calorie verdict to an existing record.
func (s *Service) RecordGoalEvaluation(ctx context.Context, ownerUserID string, recordID uuid.UUID, achieved bool, deviation float64) (storage.CompletionRecord, error) {
	record, err := s.storage.SetGoalEvaluation(ctx, ownerUserID, recordID, achieved, deviation)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return storage.CompletionRecord{}, ErrRecordNotFound
		}
		return storage.CompletionRecord{}, fmt.Errorf("failed to set goal evaluation: %w", err)
	}
	return record, nil
}

// ListRange returns all records for the owner with date in [from, to].
func (s *Service) ListRange(ctx context.Context, ownerUserID string, from, to string) ([]storage.CompletionRecord, error) {
	return s.storage.ListRecords(ctx, ownerUserID, from, to)
}

func (s *Service) validateCell(ctx context.Context, ownerUserID string, templateID uuid.UUID, date string) error {
	if templateID == uuid.Nil {
		return ErrInvalidRequest
	}
	if _, err := clock.ParseDate(date, s.clock.Location()); err != nil {
		return ErrInvalidRequest
	}

	_, found, err := s.plans.GetTemplate(ctx, ownerUserID, templateID)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}
	if !found {
		return ErrTemplateNotFound
	}

	return nil
}
