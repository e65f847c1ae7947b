package meals

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mealminder/server/internal/adherence"
	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/ledger"
	"github.com/mealminder/server/internal/storage"
	"github.com/mealminder/server/internal/storage/memory"
	"github.com/mealminder/server/internal/userctx"
)

func intPtr(v int) *int { return &v }

type testEnv struct {
	handlers  *Handlers
	adherence *adherence.Service
	template  storage.MealTemplate
}

// newTestEnv wires meals over a memory store with an active plan carrying one
// Wednesday breakfast at 08:00, expected 400 kcal. The clock is pinned to
// Wednesday 2025-06-04 09:00 UTC.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	mem := memory.New()
	clk := clock.NewFixed(time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC))

	plan, templates, err := mem.GetPlansStorage().CreatePlan(context.Background(), "userA", storage.PlanUpsert{
		Name: "Breakfast plan",
		Templates: []storage.TemplateUpsert{
			{Name: "Breakfast", Category: storage.CategoryBreakfast, TimeMinutes: 480, Weekdays: []int{4}, ExpectedCalories: intPtr(400)},
		},
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if err := mem.GetPlansStorage().SetActivePlan(context.Background(), "userA", plan.ID); err != nil {
		t.Fatalf("activate plan: %v", err)
	}

	ledgerService := ledger.NewService(mem.GetLedgerStorage(), mem.GetPlansStorage(), clk)
	mealsService := NewService(mem.GetMealsStorage(), mem.GetPlansStorage(), ledgerService, nil, clk)
	adherenceService := adherence.NewService(mem.GetPlansStorage(), mem.GetLedgerStorage(), mem.GetMealsStorage(), clk)

	return testEnv{
		handlers:  NewHandlers(mealsService),
		adherence: adherenceService,
		template:  templates[0],
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, target, owner, body, pathID string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req = req.WithContext(userctx.WithUserID(context.Background(), owner))
	if pathID != "" {
		req.SetPathValue("id", pathID)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestLogMealWithTemplateCompletesOccurrence(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name":"Oatmeal","category":"breakfast","calories":420,` +
		`"eaten_at":"2025-06-04T08:30:00Z","template_id":"` + env.template.ID.String() + `"}`
	w := postJSON(t, env.handlers.HandleLog, "/v1/meals", "userA", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	var resp LogMealResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Meal.Date != "2025-06-04" {
		t.Fatalf("expected meal dated 2025-06-04, got %s", resp.Meal.Date)
	}
	if resp.Record == nil {
		t.Fatal("expected completion record in response")
	}
	if !resp.Record.WasCompleted {
		t.Fatal("expected completed record")
	}
	if resp.Record.CompletedMealID == nil || *resp.Record.CompletedMealID != resp.Meal.ID {
		t.Fatal("expected record linked to logged meal")
	}
	if resp.Record.GoalAchieved == nil || !*resp.Record.GoalAchieved {
		t.Fatalf("expected goal achieved for 420 vs 400, got %+v", resp.Record)
	}
	if resp.Record.GoalDeviation == nil || *resp.Record.GoalDeviation != 20 {
		t.Fatalf("expected deviation 20, got %+v", resp.Record.GoalDeviation)
	}

	report, err := env.adherence.Evaluate(context.Background(), "userA", "2025-06-04")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if report.CompletionRate != 1.0 {
		t.Fatalf("expected completion rate 1.0, got %v", report.CompletionRate)
	}
	if len(report.OffPlanMeals) != 0 {
		t.Fatalf("expected no off-plan meals, got %d", len(report.OffPlanMeals))
	}
}

func TestLinkExistingMeal(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.handlers.HandleLog, "/v1/meals", "userA",
		`{"name":"Granola","category":"breakfast","calories":380,"eaten_at":"2025-06-04T08:15:00Z"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	var logged LogMealResponse
	if err := json.Unmarshal(w.Body.Bytes(), &logged); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if logged.Record != nil {
		t.Fatal("expected no record without template_id")
	}

	// Before linking, the meal counts as off-plan.
	report, err := env.adherence.Evaluate(context.Background(), "userA", "2025-06-04")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(report.OffPlanMeals) != 1 {
		t.Fatalf("expected 1 off-plan meal before link, got %d", len(report.OffPlanMeals))
	}

	w = postJSON(t, env.handlers.HandleLink, "/v1/meals/"+logged.Meal.ID.String()+"/link", "userA",
		`{"template_id":"`+env.template.ID.String()+`"}`, logged.Meal.ID.String())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var linked LogMealResponse
	if err := json.Unmarshal(w.Body.Bytes(), &linked); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if linked.Record == nil || !linked.Record.WasCompleted {
		t.Fatalf("expected completed record after link, got %+v", linked.Record)
	}

	report, err = env.adherence.Evaluate(context.Background(), "userA", "2025-06-04")
	if err != nil {
		t.Fatalf("evaluate after link: %v", err)
	}
	if len(report.OffPlanMeals) != 0 {
		t.Fatalf("expected no off-plan meals after link, got %d", len(report.OffPlanMeals))
	}
	if report.CompletedCount != 1 {
		t.Fatalf("expected 1 completed, got %d", report.CompletedCount)
	}
}

func TestLogMealValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"missing name", `{"calories":100}`, http.StatusBadRequest},
		{"negative calories", `{"name":"X","calories":-5}`, http.StatusBadRequest},
		{"bad category", `{"name":"X","category":"brunch","calories":100}`, http.StatusBadRequest},
		{"unknown template", `{"name":"X","calories":100,"template_id":"00000000-0000-0000-0000-000000000001"}`, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, env.handlers.HandleLog, "/v1/meals", "userA", tc.body, "")
			if w.Code != tc.code {
				t.Fatalf("expected %d, got %d body=%s", tc.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestListMealsByDate(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.handlers.HandleLog, "/v1/meals", "userA",
		`{"name":"Soup","category":"lunch","calories":300,"eaten_at":"2025-06-04T12:00:00Z"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/meals?date=2025-06-04", nil)
	req = req.WithContext(userctx.WithUserID(context.Background(), "userA"))
	rec := httptest.NewRecorder()
	env.handlers.HandleList(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var list ListMealsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Meals) != 1 || list.Meals[0].Name != "Soup" {
		t.Fatalf("unexpected meals: %+v", list.Meals)
	}

	// Other dates and other owners see nothing.
	req = httptest.NewRequest(http.MethodGet, "/v1/meals?date=2025-06-05", nil)
	req = req.WithContext(userctx.WithUserID(context.Background(), "userA"))
	rec = httptest.NewRecorder()
	env.handlers.HandleList(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	list = ListMealsResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Meals) != 0 {
		t.Fatalf("expected no meals on 2025-06-05, got %d", len(list.Meals))
	}
}
