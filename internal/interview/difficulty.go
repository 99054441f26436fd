package interview

import "github.com/jonathan/interview-coach/internal/types"

const (
	// difficultyWindow is how many trailing questions feed the difficulty decision
	difficultyWindow = 3
	// unscoredValue stands in for a question in the window without an evaluation
	unscoredValue = 50
	hardThreshold = 80
	easyThreshold = 40
)

// NextDifficulty maps trailing scores to a difficulty tier. Only the last three
// entries are used; a nil entry counts as 50. An empty window yields medium.
func NextDifficulty(scores []*int) types.Difficulty {
	if len(scores) > difficultyWindow {
		scores = scores[len(scores)-difficultyWindow:]
	}
	if len(scores) == 0 {
		return types.DifficultyMedium
	}

	sum := 0
	for _, s := range scores {
		if s == nil {
			sum += unscoredValue
			continue
		}
		sum += *s
	}
	avg := float64(sum) / float64(len(scores))

	switch {
	case avg >= hardThreshold:
		return types.DifficultyHard
	case avg <= easyThreshold:
		return types.DifficultyEasy
	default:
		return types.DifficultyMedium
	}
}

// trailingScores collects the scores of the last questions of a session.
// Follow-ups are ordinary entries; skipped or unevaluated questions count as unscored.
func trailingScores(questions []types.Question) []*int {
	start := max(len(questions)-difficultyWindow, 0)
	out := make([]*int, 0, difficultyWindow)
	for i := start; i < len(questions); i++ {
		q := questions[i]
		if q.Skipped || q.Evaluation == nil {
			out = append(out, nil)
			continue
		}
		score := q.Evaluation.Score
		out = append(out, &score)
	}
	return out
}
