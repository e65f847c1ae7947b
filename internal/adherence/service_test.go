package adherence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/storage"
	"github.com/mealminder/server/internal/storage/memory"
)

func intPtr(v int) *int { return &v }

// seedPlan creates and activates a three-slot plan scheduled every day:
// breakfast 08:00 (expected 400 kcal), lunch 12:00, dinner 19:00.
func seedPlan(t *testing.T, mem *memory.MemoryStorage, owner string) []storage.MealTemplate {
	t.Helper()

	allDays := []int{1, 2, 3, 4, 5, 6, 7}
	plan, templates, err := mem.GetPlansStorage().CreatePlan(context.Background(), owner, storage.PlanUpsert{
		Name: "Maintenance",
		Templates: []storage.TemplateUpsert{
			{Name: "Breakfast", Category: storage.CategoryBreakfast, TimeMinutes: 480, Weekdays: allDays, ExpectedCalories: intPtr(400)},
			{Name: "Lunch", Category: storage.CategoryLunch, TimeMinutes: 720, Weekdays: allDays},
			{Name: "Dinner", Category: storage.CategoryDinner, TimeMinutes: 1140, Weekdays: allDays},
		},
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if err := mem.GetPlansStorage().SetActivePlan(context.Background(), owner, plan.ID); err != nil {
		t.Fatalf("activate plan: %v", err)
	}
	return templates
}

func TestEvaluatePartitionsStatuses(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	// Wednesday 13:00: breakfast and lunch are in the past, dinner ahead.
	clk := clock.NewFixed(time.Date(2025, 6, 4, 13, 0, 0, 0, time.UTC))
	templates := seedPlan(t, mem, "userA")

	svc := NewService(mem.GetPlansStorage(), mem.GetLedgerStorage(), mem.GetMealsStorage(), clk)

	breakfastMeal := &storage.LoggedMeal{
		OwnerUserID: "userA",
		Name:        "Oatmeal",
		Category:    storage.CategoryBreakfast,
		EatenAt:     time.Date(2025, 6, 4, 8, 10, 0, 0, time.UTC),
		Date:        "2025-06-04",
		Calories:    420,
	}
	if err := mem.GetMealsStorage().CreateMeal(ctx, breakfastMeal); err != nil {
		t.Fatalf("create meal: %v", err)
	}

	completedAt := time.Date(2025, 6, 4, 8, 15, 0, 0, time.UTC)
	record, err := mem.GetLedgerStorage().UpsertRecord(ctx, "userA", templates[0].ID, "2025-06-04", true, &breakfastMeal.ID, &completedAt)
	if err != nil {
		t.Fatalf("upsert completion: %v", err)
	}
	if _, err := mem.GetLedgerStorage().SetGoalEvaluation(ctx, "userA", record.ID, true, 20); err != nil {
		t.Fatalf("set goal evaluation: %v", err)
	}
	if _, err := mem.GetLedgerStorage().UpsertRecord(ctx, "userA", templates[1].ID, "2025-06-04", false, nil, nil); err != nil {
		t.Fatalf("upsert skip: %v", err)
	}

	offPlan := &storage.LoggedMeal{
		OwnerUserID: "userA",
		Name:        "Ice cream",
		Category:    storage.CategorySnack,
		EatenAt:     time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC),
		Date:        "2025-06-04",
		Calories:    250,
	}
	if err := mem.GetMealsStorage().CreateMeal(ctx, offPlan); err != nil {
		t.Fatalf("create off-plan meal: %v", err)
	}

	report, err := svc.Evaluate(ctx, "userA", "2025-06-04")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if report.ScheduledCount != 3 {
		t.Fatalf("expected 3 scheduled, got %d", report.ScheduledCount)
	}
	if report.CompletedCount != 1 || report.SkippedCount != 1 || report.MissedCount != 0 || report.PendingCount != 1 {
		t.Fatalf("unexpected counts: completed=%d skipped=%d missed=%d pending=%d",
			report.CompletedCount, report.SkippedCount, report.MissedCount, report.PendingCount)
	}
	if report.CompletionRate < 0.333 || report.CompletionRate > 0.334 {
		t.Fatalf("expected completion rate 1/3, got %v", report.CompletionRate)
	}

	breakfast := report.Items[0]
	if breakfast.Status != StatusCompleted {
		t.Fatalf("expected breakfast completed, got %s", breakfast.Status)
	}
	if breakfast.GoalVerdict == nil || *breakfast.GoalVerdict != VerdictMatch {
		t.Fatalf("expected match verdict, got %v", breakfast.GoalVerdict)
	}
	if report.Items[1].Status != StatusSkipped {
		t.Fatalf("expected lunch skipped, got %s", report.Items[1].Status)
	}
	if report.Items[2].Status != StatusPending {
		t.Fatalf("expected dinner pending, got %s", report.Items[2].Status)
	}

	if len(report.OffPlanMeals) != 1 || report.OffPlanMeals[0].Name != "Ice cream" {
		t.Fatalf("expected one off-plan meal, got %+v", report.OffPlanMeals)
	}
	if report.OffPlanCalories != 250 {
		t.Fatalf("expected 250 off-plan calories, got %d", report.OffPlanCalories)
	}
	if report.ConsumedCalories != 670 {
		t.Fatalf("expected 670 consumed calories, got %d", report.ConsumedCalories)
	}

	// After dinner time the untouched slot turns missed.
	clk.Set(time.Date(2025, 6, 4, 20, 0, 0, 0, time.UTC))
	report, err = svc.Evaluate(ctx, "userA", "2025-06-04")
	if err != nil {
		t.Fatalf("evaluate after dinner: %v", err)
	}
	if report.MissedCount != 1 || report.PendingCount != 0 {
		t.Fatalf("expected dinner missed, got missed=%d pending=%d", report.MissedCount, report.PendingCount)
	}
}

func TestEvaluateKeepsLinkedMealOnPlanAfterPlanSwitch(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	clk := clock.NewFixed(time.Date(2025, 6, 4, 13, 0, 0, 0, time.UTC))
	templates := seedPlan(t, mem, "userA")
	svc := NewService(mem.GetPlansStorage(), mem.GetLedgerStorage(), mem.GetMealsStorage(), clk)

	meal := &storage.LoggedMeal{
		OwnerUserID: "userA",
		Name:        "Oatmeal",
		Category:    storage.CategoryBreakfast,
		EatenAt:     time.Date(2025, 6, 4, 8, 10, 0, 0, time.UTC),
		Date:        "2025-06-04",
		Calories:    420,
	}
	if err := mem.GetMealsStorage().CreateMeal(ctx, meal); err != nil {
		t.Fatalf("create meal: %v", err)
	}
	completedAt := time.Date(2025, 6, 4, 8, 15, 0, 0, time.UTC)
	if _, err := mem.GetLedgerStorage().UpsertRecord(ctx, "userA", templates[0].ID, "2025-06-04", true, &meal.ID, &completedAt); err != nil {
		t.Fatalf("upsert completion: %v", err)
	}

	// Switch to a different plan. The meal stays linked to the old plan's
	// completion record and must not resurface as off-plan.
	other, _, err := mem.GetPlansStorage().CreatePlan(ctx, "userA", storage.PlanUpsert{
		Name: "Cutting",
		Templates: []storage.TemplateUpsert{
			{Name: "Late lunch", Category: storage.CategoryLunch, TimeMinutes: 840, Weekdays: []int{1, 2, 3, 4, 5, 6, 7}},
		},
	})
	if err != nil {
		t.Fatalf("create second plan: %v", err)
	}
	if err := mem.GetPlansStorage().SetActivePlan(ctx, "userA", other.ID); err != nil {
		t.Fatalf("activate second plan: %v", err)
	}

	report, err := svc.Evaluate(ctx, "userA", "2025-06-04")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(report.OffPlanMeals) != 0 {
		t.Fatalf("expected no off-plan meals after plan switch, got %+v", report.OffPlanMeals)
	}
	if report.OffPlanCalories != 0 {
		t.Fatalf("expected 0 off-plan calories, got %d", report.OffPlanCalories)
	}
	if report.ConsumedCalories != 420 {
		t.Fatalf("expected 420 consumed calories, got %d", report.ConsumedCalories)
	}
}

func TestEvaluateSurvivesPlanEdit(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	clk := clock.NewFixed(time.Date(2025, 6, 4, 13, 0, 0, 0, time.UTC))
	templates := seedPlan(t, mem, "userA")
	svc := NewService(mem.GetPlansStorage(), mem.GetLedgerStorage(), mem.GetMealsStorage(), clk)

	completedAt := time.Date(2025, 6, 4, 8, 15, 0, 0, time.UTC)
	if _, err := mem.GetLedgerStorage().UpsertRecord(ctx, "userA", templates[0].ID, "2025-06-04", true, nil, &completedAt); err != nil {
		t.Fatalf("upsert completion: %v", err)
	}

	// Rename a slot, keeping the template ids, and drop the dinner slot.
	allDays := []int{1, 2, 3, 4, 5, 6, 7}
	_, updated, err := mem.GetPlansStorage().UpdatePlan(ctx, "userA", templates[0].PlanID, storage.PlanUpsert{
		Name: "Maintenance v2",
		Templates: []storage.TemplateUpsert{
			{ID: templates[0].ID, Name: "Big breakfast", Category: storage.CategoryBreakfast, TimeMinutes: 480, Weekdays: allDays, ExpectedCalories: intPtr(500)},
			{ID: templates[1].ID, Name: "Lunch", Category: storage.CategoryLunch, TimeMinutes: 720, Weekdays: allDays},
		},
	})
	if err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if updated[0].ID != templates[0].ID {
		t.Fatalf("expected breakfast template to keep id %s, got %s", templates[0].ID, updated[0].ID)
	}

	report, err := svc.Evaluate(ctx, "userA", "2025-06-04")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if report.ScheduledCount != 2 {
		t.Fatalf("expected 2 scheduled after edit, got %d", report.ScheduledCount)
	}
	if report.CompletedCount != 1 {
		t.Fatalf("expected completion to survive the edit, got %d completed", report.CompletedCount)
	}
	if report.Items[0].Status != StatusCompleted || report.Items[0].Name != "Big breakfast" {
		t.Fatalf("expected renamed breakfast completed, got %+v", report.Items[0])
	}
}

func TestEvaluateWithoutActivePlan(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	clk := clock.NewFixed(time.Date(2025, 6, 4, 13, 0, 0, 0, time.UTC))
	svc := NewService(mem.GetPlansStorage(), mem.GetLedgerStorage(), mem.GetMealsStorage(), clk)

	meal := &storage.LoggedMeal{
		OwnerUserID: "userB",
		Name:        "Sandwich",
		EatenAt:     time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC),
		Date:        "2025-06-04",
		Calories:    300,
	}
	if err := mem.GetMealsStorage().CreateMeal(ctx, meal); err != nil {
		t.Fatalf("create meal: %v", err)
	}

	report, err := svc.Evaluate(ctx, "userB", "2025-06-04")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if report.PlanID != nil {
		t.Fatal("expected no plan id")
	}
	if report.ScheduledCount != 0 || report.CompletionRate != 0 {
		t.Fatalf("expected empty schedule, got scheduled=%d rate=%v", report.ScheduledCount, report.CompletionRate)
	}
	if len(report.OffPlanMeals) != 1 {
		t.Fatalf("expected every meal off-plan, got %d", len(report.OffPlanMeals))
	}
}

func TestTrendRange(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	clk := clock.NewFixed(time.Date(2025, 6, 4, 13, 0, 0, 0, time.UTC))
	seedPlan(t, mem, "userA")
	svc := NewService(mem.GetPlansStorage(), mem.GetLedgerStorage(), mem.GetMealsStorage(), clk)

	trend, err := svc.Trend(ctx, "userA", "2025-06-02", "2025-06-04")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend.Days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(trend.Days))
	}
	if trend.Days[0].Date != "2025-06-02" || trend.Days[2].Date != "2025-06-04" {
		t.Fatalf("unexpected day ordering: %s .. %s", trend.Days[0].Date, trend.Days[2].Date)
	}
	// Past days with no records are fully missed.
	if trend.Days[0].MissedCount != 3 {
		t.Fatalf("expected 3 missed on past day, got %d", trend.Days[0].MissedCount)
	}

	if _, err := svc.Trend(ctx, "userA", "2025-06-04", "2025-06-02"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := svc.Trend(ctx, "userA", "2025-01-01", "2025-06-04"); !errors.Is(err, ErrRangeTooLarge) {
		t.Fatalf("expected ErrRangeTooLarge, got %v", err)
	}
	if _, err := svc.Trend(ctx, "userA", "bad", "2025-06-04"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
