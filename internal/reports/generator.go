package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/mealminder/server/internal/adherence"
)

// Generator renders adherence data as PDF or CSV artifacts.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the trend in the requested format.
func (g *Generator) Generate(format string, trend adherence.TrendResponse) ([]byte, error) {
	switch format {
	case FormatPDF:
		return g.generatePDF(trend)
	case FormatCSV:
		return g.generateCSV(trend)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func (g *Generator) generateCSV(trend adherence.TrendResponse) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"date", "scheduled", "completed", "skipped", "missed", "pending", "completion_rate", "off_plan_meals", "off_plan_calories", "consumed_calories"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, day := range trend.Days {
		row := []string{
			day.Date,
			strconv.Itoa(day.ScheduledCount),
			strconv.Itoa(day.CompletedCount),
			strconv.Itoa(day.SkippedCount),
			strconv.Itoa(day.MissedCount),
			strconv.Itoa(day.PendingCount),
			fmt.Sprintf("%.2f", day.CompletionRate),
			strconv.Itoa(len(day.OffPlanMeals)),
			strconv.Itoa(day.OffPlanCalories),
			strconv.Itoa(day.ConsumedCalories),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (g *Generator) generatePDF(trend adherence.TrendResponse) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")

	pdf.SetFont("Helvetica", "", 16)
	pdf.AddPage()

	pdf.Cell(0, 10, "Diet Plan Adherence Report")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s", trend.From, trend.To))
	pdf.Ln(12)

	summary := summarize(trend)

	pdf.SetFont("Helvetica", "", 14)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Scheduled meals: %d", summary.Scheduled))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Completed: %d", summary.Completed))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Skipped: %d", summary.Skipped))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Missed: %d", summary.Missed))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Average completion rate: %s", summary.AvgRate))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Off-plan meals: %d (%d kcal)", summary.OffPlanMeals, summary.OffPlanCalories))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 14)
	pdf.Cell(0, 8, "Daily breakdown")
	pdf.Ln(8)

	g.drawDaysTable(pdf, trend)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

type summaryStats struct {
	Scheduled       int
	Completed       int
	Skipped         int
	Missed          int
	OffPlanMeals    int
	OffPlanCalories int
	AvgRate         string
}

func summarize(trend adherence.TrendResponse) summaryStats {
	var s summaryStats
	var rateSum float64
	var rateDays int

	for _, day := range trend.Days {
		s.Scheduled += day.ScheduledCount
		s.Completed += day.CompletedCount
		s.Skipped += day.SkippedCount
		s.Missed += day.MissedCount
		s.OffPlanMeals += len(day.OffPlanMeals)
		s.OffPlanCalories += day.OffPlanCalories
		if day.ScheduledCount > 0 {
			rateSum += day.CompletionRate
			rateDays++
		}
	}

	if rateDays > 0 {
		s.AvgRate = fmt.Sprintf("%.0f%%", rateSum/float64(rateDays)*100)
	} else {
		s.AvgRate = "n/a"
	}

	return s
}

func (g *Generator) drawDaysTable(pdf *gofpdf.Fpdf, trend adherence.TrendResponse) {
	pdf.SetFont("Helvetica", "", 8)

	pdf.CellFormat(25, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Scheduled", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Completed", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Skipped", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Missed", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Rate", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Off-plan", "1", 1, "C", false, 0, "")

	for _, day := range trend.Days {
		rate := ""
		if day.ScheduledCount > 0 {
			rate = fmt.Sprintf("%.0f%%", day.CompletionRate*100)
		}

		pdf.CellFormat(25, 6, day.Date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, strconv.Itoa(day.ScheduledCount), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, strconv.Itoa(day.CompletedCount), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(day.SkippedCount), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(day.MissedCount), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, rate, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, strconv.Itoa(len(day.OffPlanMeals)), "1", 1, "C", false, 0, "")
	}
}
