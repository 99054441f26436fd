package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/ecodeclub/ekit/slice"
	"github.com/jonathan/interview-coach/internal/types"
)

// maxListItems caps merged strength and weakness lists
const maxListItems = 5

// LocalReport derives a minimal report from the per-question evaluations. It is
// used when the report AI is unavailable. Skipped questions score zero in the
// overall and per-skill means.
func LocalReport(s *types.InterviewSession, m types.ResultMetrics) *types.Report {
	answered := slice.FindAll(s.Questions, func(q types.Question) bool {
		return q.Answered() && q.Evaluation != nil
	})
	evals := slice.Map(answered, func(_ int, q types.Question) *types.Evaluation {
		return q.Evaluation
	})
	scored := slice.Map(slice.FindAll(s.Questions, func(q types.Question) bool {
		return q.Closed()
	}), func(_ int, q types.Question) *types.Evaluation {
		if q.Skipped || q.Evaluation == nil {
			return types.SkippedEvaluation()
		}
		return q.Evaluation
	})

	overall := mean(scored, func(e *types.Evaluation) int { return e.Score })
	r := &types.Report{
		OverallScore: overall,
		Skills: types.SkillBreakdown{
			Communication:        mean(scored, func(e *types.Evaluation) int { return (e.Clarity + e.Confidence) / 2 }),
			TechnicalKnowledge:   mean(scored, func(e *types.Evaluation) int { return e.TechnicalAccuracy }),
			ProblemSolving:       mean(scored, func(e *types.Evaluation) int { return (e.Relevance + e.TechnicalAccuracy) / 2 }),
			SituationalAwareness: mean(scored, func(e *types.Evaluation) int { return e.Relevance }),
			CulturalFit:          mean(scored, func(e *types.Evaluation) int { return e.RoleFit }),
		},
		Topics:     topicScores(answered),
		Strengths:  mergeUnique(evals, func(e *types.Evaluation) []string { return e.Strengths }, maxListItems),
		Weaknesses: mergeUnique(evals, func(e *types.Evaluation) []string { return e.Weaknesses }, maxListItems),
		Summary:    fmt.Sprintf("Answered %d of %d questions, overall score %d with skips counted as zero.", m.AnsweredQuestions, m.TotalQuestions, overall),
		Hiring: types.HiringRecommendation{
			Decision:   DecisionForScore(overall),
			Confidence: localConfidence(len(evals)),
			Reasoning:  "Derived from per-question scores.",
		},
	}
	r.MissedKeywords = mergeUnique(evals, func(e *types.Evaluation) []string { return e.MissingKeywords }, 0)
	r.PracticeAreas = slice.Map(slice.FindAll(r.Topics, func(t types.TopicScore) bool {
		return t.Score < HighScoreThreshold
	}), func(_ int, t types.TopicScore) string { return t.Topic })
	r.ExpectedKeywords = []string{}
	r.MentionedKeywords = []string{}
	r.ResumeImprovements = []string{}
	r.DetailedFeedback = strings.Join(slice.Map(answered, func(_ int, q types.Question) string {
		return fmt.Sprintf("Q%d (%d): %s", q.Number, q.Evaluation.Score, q.Evaluation.Feedback)
	}), "\n")
	return r
}

// DecisionForScore maps an overall score to a hiring band.
func DecisionForScore(score int) types.Recommendation {
	switch {
	case score >= 85:
		return types.RecommendStrongHire
	case score >= 70:
		return types.RecommendHire
	case score >= 55:
		return types.RecommendMaybe
	case score >= 40:
		return types.RecommendNoHire
	default:
		return types.RecommendStrongNoHire
	}
}

// localConfidence grows with the number of scored answers.
func localConfidence(n int) int {
	return min(40+5*n, 80)
}

func mean(evals []*types.Evaluation, f func(*types.Evaluation) int) int {
	if len(evals) == 0 {
		return 0
	}
	sum := 0
	for _, e := range evals {
		sum += f(e)
	}
	return int(math.Round(float64(sum) / float64(len(evals))))
}

func topicScores(answered []types.Question) []types.TopicScore {
	var order []string
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, q := range answered {
		topic := q.Category
		if topic == "" {
			topic = string(q.Type)
		}
		if _, ok := counts[topic]; !ok {
			order = append(order, topic)
		}
		sums[topic] += q.Evaluation.Score
		counts[topic]++
	}
	return slice.Map(order, func(_ int, topic string) types.TopicScore {
		return types.TopicScore{
			Topic:     topic,
			Score:     int(math.Round(float64(sums[topic]) / float64(counts[topic]))),
			Questions: counts[topic],
		}
	})
}

// mergeUnique concatenates lists case-insensitively deduplicated. limit 0 means no cap.
func mergeUnique(evals []*types.Evaluation, f func(*types.Evaluation) []string, limit int) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, e := range evals {
		for _, item := range f(e) {
			item = strings.TrimSpace(item)
			key := strings.ToLower(item)
			if item == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
			if limit > 0 && len(out) == limit {
				return out
			}
		}
	}
	return out
}
