package report

import (
	"math"

	"github.com/jonathan/interview-coach/internal/types"
)

// DefaultPercentile is reported when there is no cohort to compare against
const DefaultPercentile = 50

// Percentile returns the share of cohort scores strictly below score, as a rounded
// percentage. An empty cohort yields DefaultPercentile.
func Percentile(cohort []int, score int) int {
	if len(cohort) == 0 {
		return DefaultPercentile
	}
	lower := 0
	for _, c := range cohort {
		if c < score {
			lower++
		}
	}
	return int(math.Round(float64(lower) / float64(len(cohort)) * 100))
}

// Compare builds the comparison block. previous is nil when there is no earlier attempt.
func Compare(score int, previous *types.InterviewResult, cohort []int) types.Comparison {
	c := types.Comparison{PercentileRank: Percentile(cohort, score)}
	if previous == nil {
		return c
	}

	prev := previous.OverallScore
	delta := score - prev
	trend := types.TrendStable
	switch {
	case delta > 0:
		trend = types.TrendImproving
	case delta < 0:
		trend = types.TrendDeclining
	}
	c.PreviousScore = &prev
	c.ScoreChange = &delta
	c.Trend = &trend
	return c
}
