package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/storage"
	"github.com/mealminder/server/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.MemoryStorage, uuid.UUID) {
	t.Helper()

	mem := memory.New()
	clk := clock.NewFixed(time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC))

	_, templates, err := mem.GetPlansStorage().CreatePlan(context.Background(), "userA", storage.PlanUpsert{
		Name: "Cut",
		Templates: []storage.TemplateUpsert{
			{Name: "Breakfast", Category: storage.CategoryBreakfast, TimeMinutes: 480, Weekdays: []int{1, 2, 3, 4, 5, 6, 7}},
		},
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	svc := NewService(mem.GetLedgerStorage(), mem.GetPlansStorage(), clk)
	return svc, mem, templates[0].ID
}

func TestUpsertSameCellYieldsOneRecord(t *testing.T) {
	ctx := context.Background()
	svc, _, templateID := newTestService(t)

	skipped, err := svc.MarkSkipped(ctx, "userA", templateID, "2025-06-04")
	if err != nil {
		t.Fatalf("mark skipped: %v", err)
	}
	if skipped.WasCompleted {
		t.Fatal("skip must not be completed")
	}

	mealID := uuid.New()
	completed, err := svc.MarkCompleted(ctx, "userA", templateID, "2025-06-04", &mealID)
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if completed.ID != skipped.ID {
		t.Fatalf("expected same record on re-upsert, got %s and %s", skipped.ID, completed.ID)
	}
	if !completed.WasCompleted {
		t.Fatal("expected completed record")
	}
	if completed.CompletedMealID == nil || *completed.CompletedMealID != mealID {
		t.Fatal("expected linked meal id")
	}

	records, err := svc.ListRange(ctx, "userA", "2025-06-04", "2025-06-04")
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestUpsertResetsGoalVerdict(t *testing.T) {
	ctx := context.Background()
	svc, _, templateID := newTestService(t)

	mealID := uuid.New()
	record, err := svc.MarkCompleted(ctx, "userA", templateID, "2025-06-04", &mealID)
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	evaluated, err := svc.RecordGoalEvaluation(ctx, "userA", record.ID, true, 20)
	if err != nil {
		t.Fatalf("record goal evaluation: %v", err)
	}
	if evaluated.GoalAchieved == nil || !*evaluated.GoalAchieved {
		t.Fatal("expected goal achieved")
	}
	if evaluated.GoalDeviation == nil || *evaluated.GoalDeviation != 20 {
		t.Fatal("expected deviation 20")
	}

	// Relinking the occurrence invalidates the previous verdict.
	otherMeal := uuid.New()
	relinked, err := svc.MarkCompleted(ctx, "userA", templateID, "2025-06-04", &otherMeal)
	if err != nil {
		t.Fatalf("relink: %v", err)
	}
	if relinked.GoalAchieved != nil || relinked.GoalDeviation != nil {
		t.Fatal("expected goal verdict reset after relink")
	}
}

func TestFetchAbsentCell(t *testing.T) {
	ctx := context.Background()
	svc, _, templateID := newTestService(t)

	_, found, err := svc.Fetch(ctx, "userA", templateID, "2025-06-04")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if found {
		t.Fatal("expected no record for untouched cell")
	}
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, templateID := newTestService(t)

	if _, err := svc.MarkSkipped(ctx, "userA", uuid.New(), "2025-06-04"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if _, err := svc.MarkSkipped(ctx, "userA", templateID, "not-a-date"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	// Template ownership is scoped per user.
	if _, err := svc.MarkSkipped(ctx, "userB", templateID, "2025-06-04"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound for foreign owner, got %v", err)
	}
}
