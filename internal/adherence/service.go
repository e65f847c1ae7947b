package adherence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/recurrence"
	"github.com/mealminder/server/internal/storage"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrRangeTooLarge  = errors.New("date range too large")
	ErrInvalidRange   = errors.New("invalid date range")
)

const maxTrendDays = 92

// Service evaluates plan adherence for calendar dates. Evaluation is a pure
// read: it never creates ledger rows for missed or pending occurrences.
type Service struct {
	plans  storage.PlansStorage
	ledger storage.LedgerStorage
	meals  storage.MealsStorage
	clock  clock.Clock
}

func NewService(plansStorage storage.PlansStorage, ledgerStorage storage.LedgerStorage, mealsStorage storage.MealsStorage, clk clock.Clock) *Service {
	return &Service{
		plans:  plansStorage,
		ledger: ledgerStorage,
		meals:  mealsStorage,
		clock:  clk,
	}
}

// Evaluate builds the adherence report for one date against the owner's
// active plan. With no active plan the report has no scheduled items and
// every logged meal for the date is off-plan.
func (s *Service) Evaluate(ctx context.Context, ownerUserID string, date string) (DayReport, error) {
	day, err := clock.ParseDate(date, s.clock.Location())
	if err != nil {
		return DayReport{}, ErrInvalidRequest
	}

	records, err := s.ledger.ListRecords(ctx, ownerUserID, date, date)
	if err != nil {
		return DayReport{}, fmt.Errorf("failed to list ledger records: %w", err)
	}

	meals, err := s.meals.ListMealsByDate(ctx, ownerUserID, date)
	if err != nil {
		return DayReport{}, fmt.Errorf("failed to list meals: %w", err)
	}

	plan, templates, found, err := s.plans.GetActivePlan(ctx, ownerUserID)
	if err != nil {
		return DayReport{}, fmt.Errorf("failed to get active plan: %w", err)
	}
	if !found {
		plan = storage.DietPlan{}
		templates = nil
	}

	return s.buildDayReport(day, date, plan, found, templates, records, meals), nil
}

// Trend evaluates each day in [from, to] inclusive.
func (s *Service) Trend(ctx context.Context, ownerUserID string, from, to string) (TrendResponse, error) {
	fromDay, err := clock.ParseDate(from, s.clock.Location())
	if err != nil {
		return TrendResponse{}, ErrInvalidRequest
	}
	toDay, err := clock.ParseDate(to, s.clock.Location())
	if err != nil {
		return TrendResponse{}, ErrInvalidRequest
	}
	if toDay.Before(fromDay) {
		return TrendResponse{}, ErrInvalidRange
	}
	if toDay.Sub(fromDay) > time.Duration(maxTrendDays)*24*time.Hour {
		return TrendResponse{}, ErrRangeTooLarge
	}

	records, err := s.ledger.ListRecords(ctx, ownerUserID, from, to)
	if err != nil {
		return TrendResponse{}, fmt.Errorf("failed to list ledger records: %w", err)
	}
	recordsByDate := make(map[string][]storage.CompletionRecord)
	for _, r := range records {
		recordsByDate[r.Date] = append(recordsByDate[r.Date], r)
	}

	plan, templates, found, err := s.plans.GetActivePlan(ctx, ownerUserID)
	if err != nil {
		return TrendResponse{}, fmt.Errorf("failed to get active plan: %w", err)
	}

	resp := TrendResponse{From: from, To: to, Days: []DayReport{}}
	for d := fromDay; !d.After(toDay); d = d.AddDate(0, 0, 1) {
		date := clock.DateString(d)

		meals, err := s.meals.ListMealsByDate(ctx, ownerUserID, date)
		if err != nil {
			return TrendResponse{}, fmt.Errorf("failed to list meals: %w", err)
		}

		resp.Days = append(resp.Days, s.buildDayReport(d, date, plan, found, templates, recordsByDate[date], meals))
	}

	return resp, nil
}

func (s *Service) buildDayReport(day time.Time, date string, plan storage.DietPlan, hasPlan bool, templates []storage.MealTemplate, records []storage.CompletionRecord, meals []storage.LoggedMeal) DayReport {
	report := DayReport{
		Date:         date,
		Items:        []ScheduledItemDTO{},
		OffPlanMeals: []OffPlanMealDTO{},
	}
	if hasPlan {
		planID := plan.ID
		report.PlanID = &planID
		report.PlanName = plan.Name
		report.DailyCalorieGoal = plan.DailyCalorieGoal
	}

	// A meal linked from any completion record is on-plan, including records
	// for templates of a plan that is no longer active.
	recordByTemplate := make(map[uuid.UUID]storage.CompletionRecord, len(records))
	linkedMealIDs := make(map[uuid.UUID]bool)
	for _, r := range records {
		recordByTemplate[r.TemplateID] = r
		if r.WasCompleted && r.CompletedMealID != nil {
			linkedMealIDs[*r.CompletedMealID] = true
		}
	}

	now := s.clock.Now()
	weekday := recurrence.WeekdayNumber(day.Weekday())

	for _, tpl := range templates {
		if !scheduledOn(tpl, weekday) {
			continue
		}

		item := ScheduledItemDTO{
			TemplateID:       tpl.ID,
			Name:             tpl.Name,
			Category:         tpl.Category,
			TimeMinutes:      tpl.TimeMinutes,
			ExpectedCalories: tpl.ExpectedCalories,
		}

		occursAt := time.Date(day.Year(), day.Month(), day.Day(), tpl.TimeMinutes/60, tpl.TimeMinutes%60, 0, 0, s.clock.Location())

		if record, ok := recordByTemplate[tpl.ID]; ok {
			if record.WasCompleted {
				item.Status = StatusCompleted
				item.CompletedMealID = record.CompletedMealID
				item.CompletedAt = record.CompletedAt
				item.GoalAchieved = record.GoalAchieved
				item.GoalDeviation = record.GoalDeviation
				if record.GoalAchieved != nil && tpl.ExpectedCalories != nil && record.CompletedMealID != nil {
					item.GoalVerdict = goalVerdictFromRecord(record)
				}
				report.CompletedCount++
			} else {
				item.Status = StatusSkipped
				report.SkippedCount++
			}
		} else if occursAt.Before(now) {
			item.Status = StatusMissed
			report.MissedCount++
		} else {
			item.Status = StatusPending
			report.PendingCount++
		}

		report.Items = append(report.Items, item)
		report.ScheduledCount++
	}

	for _, meal := range meals {
		report.ConsumedCalories += meal.Calories
		if linkedMealIDs[meal.ID] {
			continue
		}
		report.OffPlanMeals = append(report.OffPlanMeals, OffPlanMealDTO{
			ID:       meal.ID,
			Name:     meal.Name,
			Category: meal.Category,
			Calories: meal.Calories,
			EatenAt:  meal.EatenAt,
		})
		report.OffPlanCalories += meal.Calories
	}

	if report.ScheduledCount > 0 {
		report.CompletionRate = float64(report.CompletedCount) / float64(report.ScheduledCount)
	}

	return report
}

// goalVerdictFromRecord reconstructs the band name from the stored verdict
// fields so clients do not reimplement the thresholds.
func goalVerdictFromRecord(record storage.CompletionRecord) *string {
	var verdict string
	switch {
	case record.GoalDeviation != nil && *record.GoalDeviation <= GoalMatchAbsCalories:
		verdict = VerdictMatch
	case record.GoalAchieved != nil && *record.GoalAchieved:
		verdict = VerdictClose
	default:
		verdict = VerdictMismatch
	}
	return &verdict
}

func scheduledOn(tpl storage.MealTemplate, weekday int) bool {
	for _, d := range tpl.Weekdays {
		if d == weekday {
			return true
		}
	}
	return false
}
