package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/storage"
	"github.com/mealminder/server/internal/storage/memory"
)

// newTestScheduler builds a scheduler with windowDays=3 (today plus the next
// three days) and one daily breakfast slot at 08:00, active for userA.
func newTestScheduler(t *testing.T) (*Scheduler, *LocalNotifier, *clock.Fixed, *memory.MemoryStorage, storage.MealTemplate) {
	t.Helper()

	mem := memory.New()
	clk := clock.NewFixed(time.Date(2025, 6, 4, 7, 0, 0, 0, time.UTC))
	notifier := NewLocalNotifier()

	plan, templates, err := mem.GetPlansStorage().CreatePlan(context.Background(), "userA", storage.PlanUpsert{
		Name: "Daily breakfast",
		Templates: []storage.TemplateUpsert{
			{Name: "Breakfast", Category: storage.CategoryBreakfast, TimeMinutes: 480, Weekdays: []int{1, 2, 3, 4, 5, 6, 7}},
		},
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if err := mem.GetPlansStorage().SetActivePlan(context.Background(), "userA", plan.ID); err != nil {
		t.Fatalf("activate plan: %v", err)
	}

	scheduler := NewScheduler(mem.GetPlansStorage(), mem.GetLedgerStorage(), notifier, clk, nil, 3)
	return scheduler, notifier, clk, mem, templates[0]
}

func TestRebuildAlertsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	scheduler, notifier, _, _, _ := newTestScheduler(t)

	if _, err := notifier.RequestAuthorization(ctx); err != nil {
		t.Fatalf("request authorization: %v", err)
	}

	result, err := scheduler.RebuildAlerts(ctx, "userA")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if result.Scheduled != 4 {
		t.Fatalf("expected 4 alerts in the window, got %d", result.Scheduled)
	}

	// A second rebuild replaces the set instead of stacking duplicates.
	if _, err := scheduler.RebuildAlerts(ctx, "userA"); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	pending, err := scheduler.PendingAlerts(ctx, "userA")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 4 {
		t.Fatalf("expected 4 pending alerts after rebuild, got %d", len(pending))
	}
	if !pending[0].FireAt.Before(pending[1].FireAt) {
		t.Fatal("expected alerts ordered by fire time")
	}
	if pending[0].FireAt != time.Date(2025, 6, 4, 8, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected first fire time %v", pending[0].FireAt)
	}
	// The window end day itself gets an alert.
	if pending[3].FireAt != time.Date(2025, 6, 7, 8, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected last fire time %v", pending[3].FireAt)
	}
}

func TestRebuildSkipsSettledAndPast(t *testing.T) {
	ctx := context.Background()
	scheduler, notifier, clk, mem, template := newTestScheduler(t)

	if _, err := notifier.RequestAuthorization(ctx); err != nil {
		t.Fatalf("request authorization: %v", err)
	}

	// Tomorrow's breakfast is already completed.
	if _, err := mem.GetLedgerStorage().UpsertRecord(ctx, "userA", template.ID, "2025-06-05", true, nil, nil); err != nil {
		t.Fatalf("upsert record: %v", err)
	}
	// Today's breakfast time has passed.
	clk.Set(time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC))

	result, err := scheduler.RebuildAlerts(ctx, "userA")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if result.Scheduled != 2 {
		t.Fatalf("expected 2 scheduled, got %d", result.Scheduled)
	}
	if result.SkippedCompleted != 1 {
		t.Fatalf("expected 1 settled skip, got %d", result.SkippedCompleted)
	}
	if result.SkippedPast != 1 {
		t.Fatalf("expected 1 past skip, got %d", result.SkippedPast)
	}

	pending, err := scheduler.PendingAlerts(ctx, "userA")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].FireAt != time.Date(2025, 6, 6, 8, 0, 0, 0, time.UTC) {
		t.Fatalf("expected 2025-06-06 and 2025-06-07 alerts, got %+v", pending)
	}
}

func TestRebuildWithoutAuthorizationCancelsAll(t *testing.T) {
	ctx := context.Background()
	scheduler, notifier, _, _, _ := newTestScheduler(t)

	if _, err := notifier.RequestAuthorization(ctx); err != nil {
		t.Fatalf("request authorization: %v", err)
	}
	if _, err := scheduler.RebuildAlerts(ctx, "userA"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	notifier.SetAuthorizationStatus(AuthStatusDenied)

	result, err := scheduler.RebuildAlerts(ctx, "userA")
	if err != nil {
		t.Fatalf("rebuild after deny: %v", err)
	}
	if result.AuthorizationGranted || result.Scheduled != 0 {
		t.Fatalf("expected nothing scheduled when denied, got %+v", result)
	}

	pending, err := scheduler.PendingAlerts(ctx, "userA")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending alerts after deny, got %d", len(pending))
	}
}

func TestRebuildWithoutActivePlan(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	clk := clock.NewFixed(time.Date(2025, 6, 4, 7, 0, 0, 0, time.UTC))
	notifier := NewLocalNotifier()
	scheduler := NewScheduler(mem.GetPlansStorage(), mem.GetLedgerStorage(), notifier, clk, nil, 7)

	if _, err := notifier.RequestAuthorization(ctx); err != nil {
		t.Fatalf("request authorization: %v", err)
	}

	result, err := scheduler.RebuildAlerts(ctx, "userA")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if result.Scheduled != 0 {
		t.Fatalf("expected nothing scheduled without a plan, got %d", result.Scheduled)
	}
}
