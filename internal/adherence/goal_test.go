package adherence

import "testing"

func TestClassifyGoal(t *testing.T) {
	cases := []struct {
		name      string
		expected  int
		actual    int
		verdict   string
		deviation float64
	}{
		{"exact", 500, 500, VerdictMatch, 0},
		{"within absolute band", 500, 540, VerdictMatch, 40},
		{"absolute band boundary", 500, 450, VerdictMatch, 50},
		{"within relative band", 500, 580, VerdictClose, 80},
		{"relative band boundary", 500, 600, VerdictClose, 100},
		{"beyond both bands", 500, 650, VerdictMismatch, 150},
		{"under-eating mismatch", 500, 380, VerdictMismatch, 120},
		{"zero expected zero actual", 0, 0, VerdictMatch, 0},
		{"zero expected small actual", 0, 40, VerdictMatch, 40},
		{"zero expected large actual", 0, 200, VerdictMismatch, 200},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict, deviation := ClassifyGoal(tc.expected, tc.actual)
			if verdict != tc.verdict {
				t.Fatalf("expected verdict %s, got %s", tc.verdict, verdict)
			}
			if deviation != tc.deviation {
				t.Fatalf("expected deviation %v, got %v", tc.deviation, deviation)
			}
		})
	}
}

func TestGoalAchieved(t *testing.T) {
	if !GoalAchieved(VerdictMatch) {
		t.Fatal("match must count as achieved")
	}
	if !GoalAchieved(VerdictClose) {
		t.Fatal("close must count as achieved")
	}
	if GoalAchieved(VerdictMismatch) {
		t.Fatal("mismatch must not count as achieved")
	}
}
