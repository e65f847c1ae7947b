package reminders

import (
	"context"
	"fmt"

	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/events"
	"github.com/mealminder/server/internal/recurrence"
	"github.com/mealminder/server/internal/storage"
)

// RescheduleResult summarizes one rebuild of the pending alert set.
type RescheduleResult struct {
	Scheduled            int    `json:"scheduled"`
	SkippedCompleted     int    `json:"skipped_completed"`
	SkippedPast          int    `json:"skipped_past"`
	AuthorizationStatus  string `json:"authorization_status"`
	AuthorizationGranted bool   `json:"authorization_granted"`
}

// Scheduler rebuilds reminders for upcoming occurrences. A rebuild always
// starts from cancel-all, so stale alerts from a changed or deleted plan
// cannot survive.
type Scheduler struct {
	plans      storage.PlansStorage
	ledger     storage.LedgerStorage
	notifier   Notifier
	clock      clock.Clock
	bus        *events.Bus
	windowDays int
}

func NewScheduler(plansStorage storage.PlansStorage, ledgerStorage storage.LedgerStorage, notifier Notifier, clk clock.Clock, bus *events.Bus, windowDays int) *Scheduler {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Scheduler{
		plans:      plansStorage,
		ledger:     ledgerStorage,
		notifier:   notifier,
		clock:      clk,
		bus:        bus,
		windowDays: windowDays,
	}
}

func ownerTag(ownerUserID string) string {
	return "mealminder:" + ownerUserID
}

// Reschedule satisfies the Rescheduler interfaces of the write-path services.
func (s *Scheduler) Reschedule(ctx context.Context, ownerUserID string) error {
	_, err := s.RebuildAlerts(ctx, ownerUserID)
	return err
}

// RebuildAlerts cancels every pending alert for the owner and recreates
// alerts for upcoming occurrences of the active plan inside the window.
// Occurrences already completed or skipped, and occurrences whose time has
// passed, get no alert.
func (s *Scheduler) RebuildAlerts(ctx context.Context, ownerUserID string) (RescheduleResult, error) {
	result := RescheduleResult{}

	status, err := s.notifier.AuthorizationStatus(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read authorization status: %w", err)
	}
	result.AuthorizationStatus = status
	result.AuthorizationGranted = status == AuthStatusAuthorized

	tag := ownerTag(ownerUserID)
	if err := s.notifier.CancelAll(ctx, tag); err != nil {
		return result, fmt.Errorf("failed to cancel alerts: %w", err)
	}

	if !result.AuthorizationGranted {
		s.publish(ownerUserID, result)
		return result, nil
	}

	_, templates, found, err := s.plans.GetActivePlan(ctx, ownerUserID)
	if err != nil {
		return result, fmt.Errorf("failed to get active plan: %w", err)
	}
	if !found {
		s.publish(ownerUserID, result)
		return result, nil
	}

	// Window is [today, today+windowDays], both ends inclusive.
	now := s.clock.Now().In(s.clock.Location())
	from := now
	to := now.AddDate(0, 0, s.windowDays)

	records, err := s.ledger.ListRecords(ctx, ownerUserID, clock.DateString(from), clock.DateString(to))
	if err != nil {
		return result, fmt.Errorf("failed to list ledger records: %w", err)
	}
	settled := make(map[string]bool, len(records))
	for _, r := range records {
		settled[r.TemplateID.String()+":"+r.Date] = true
	}

	for _, tpl := range templates {
		rule := recurrence.Rule{TimeMinutes: tpl.TimeMinutes, Weekdays: tpl.Weekdays}
		for _, occ := range recurrence.Expand(tpl.ID, rule, from, to, s.clock.Location()) {
			alertID := occ.TemplateID.String() + ":" + occ.Date

			if settled[alertID] {
				result.SkippedCompleted++
				continue
			}
			if !occ.At.After(now) {
				result.SkippedPast++
				continue
			}

			alert := Alert{
				ID:       alertID,
				OwnerTag: tag,
				Title:    "Meal reminder",
				Body:     fmt.Sprintf("Time for %s", tpl.Name),
				Category: tpl.Category,
				Date:     occ.Date,
				FireAt:   occ.At,
			}
			if err := s.notifier.Schedule(ctx, alert); err != nil {
				return result, fmt.Errorf("failed to schedule alert: %w", err)
			}
			result.Scheduled++
		}
	}

	s.publish(ownerUserID, result)
	return result, nil
}

// RequestAuthorization asks the notification backend for permission and
// returns the resulting status.
func (s *Scheduler) RequestAuthorization(ctx context.Context) (string, error) {
	return s.notifier.RequestAuthorization(ctx)
}

// PendingAlerts lists the owner's scheduled alerts ordered by fire time.
func (s *Scheduler) PendingAlerts(ctx context.Context, ownerUserID string) ([]Alert, error) {
	return s.notifier.Pending(ctx, ownerTag(ownerUserID))
}

func (s *Scheduler) publish(ownerUserID string, result RescheduleResult) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Kind:    events.KindRemindersRescheduled,
		Owner:   ownerUserID,
		Payload: result,
	})
}
