package adherence

import "math"

// Goal band thresholds. A completion within GoalMatchAbsCalories of the
// expected value is a match regardless of the relative error; beyond that,
// within GoalCloseRelPct of the expected value counts as close.
const (
	GoalMatchAbsCalories = 50
	GoalCloseRelPct      = 0.20
)

// ClassifyGoal compares actual calories against the expected target and
// returns the verdict plus the absolute deviation. Match and close verdicts
// both count as achieved.
func ClassifyGoal(expected, actual int) (verdict string, deviation float64) {
	deviation = math.Abs(float64(actual - expected))

	if deviation <= GoalMatchAbsCalories {
		return VerdictMatch, deviation
	}
	if expected > 0 && deviation/float64(expected) <= GoalCloseRelPct {
		return VerdictClose, deviation
	}
	return VerdictMismatch, deviation
}

// GoalAchieved reports whether a verdict counts as meeting the goal.
func GoalAchieved(verdict string) bool {
	return verdict == VerdictMatch || verdict == VerdictClose
}
