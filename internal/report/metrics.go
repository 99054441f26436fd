package report

import (
	"math"

	"github.com/jonathan/interview-coach/internal/types"
)

// HighScoreThreshold is the minimum score counted as a high-scoring answer
const HighScoreThreshold = 70

// ComputeMetrics gathers counts and timings from a session.
func ComputeMetrics(s *types.InterviewSession) types.ResultMetrics {
	m := types.ResultMetrics{
		TotalQuestions:    len(s.Questions),
		TotalDurationSecs: s.DurationSecs,
	}

	elapsed, closed := 0, 0
	for i := range s.Questions {
		q := &s.Questions[i]
		switch {
		case q.Skipped:
			m.SkippedQuestions++
		case q.Answered():
			m.AnsweredQuestions++
			if q.Evaluation != nil && q.Evaluation.Score >= HighScoreThreshold {
				m.HighScoreAnswers++
			}
		default:
			continue
		}
		closed++
		elapsed += q.ElapsedSecs
	}
	if closed > 0 {
		m.AvgTimePerQuestion = math.Round(float64(elapsed)/float64(closed)*10) / 10
	}
	return m
}
