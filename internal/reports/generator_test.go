package reports

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mealminder/server/internal/adherence"
)

func sampleTrend() adherence.TrendResponse {
	return adherence.TrendResponse{
		From: "2025-06-02",
		To:   "2025-06-03",
		Days: []adherence.DayReport{
			{
				Date:             "2025-06-02",
				ScheduledCount:   3,
				CompletedCount:   2,
				SkippedCount:     1,
				CompletionRate:   2.0 / 3.0,
				OffPlanCalories:  250,
				ConsumedCalories: 1200,
			},
			{
				Date:           "2025-06-03",
				ScheduledCount: 3,
				MissedCount:    3,
			},
		},
	}
}

func TestGenerateCSV(t *testing.T) {
	g := NewGenerator()

	data, err := g.Generate(FormatCSV, sampleTrend())
	if err != nil {
		t.Fatalf("generate csv: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "date,") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2025-06-02,") {
		t.Fatalf("unexpected first row: %s", lines[1])
	}
	if !strings.Contains(lines[1], "250") {
		t.Fatalf("expected off-plan calories in row: %s", lines[1])
	}
}

func TestGeneratePDF(t *testing.T) {
	g := NewGenerator()

	data, err := g.Generate(FormatPDF, sampleTrend())
	if err != nil {
		t.Fatalf("generate pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("expected PDF magic bytes")
	}
	if len(data) < 500 {
		t.Fatalf("suspiciously small pdf: %d bytes", len(data))
	}
}

func TestGenerateUnknownFormat(t *testing.T) {
	g := NewGenerator()

	if _, err := g.Generate("xlsx", sampleTrend()); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
