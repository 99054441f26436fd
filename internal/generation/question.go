package generation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
	"go.uber.org/zap"
)

// QuestionGenerator produces interview questions with the LLM
type QuestionGenerator struct {
	client llm.Client
	logger *zap.Logger
}

// NewQuestionGenerator creates a generator over client
func NewQuestionGenerator(client llm.Client, logger *zap.Logger) *QuestionGenerator {
	return &QuestionGenerator{client: client, logger: logging.OrNop(logger)}
}

// Generate returns one question for qc. Follow-up contexts use the follow-up prompt.
func (g *QuestionGenerator) Generate(ctx context.Context, qc types.QuestionContext) (*types.GeneratedQuestion, error) {
	key, data := questionPrompt(qc)

	var q types.GeneratedQuestion
	if err := callJSON(ctx, g.client, g.logger, key, data, llm.ParseTier(qc.ModelTier), schemas.Question, &q); err != nil {
		return nil, err
	}

	q.Text = strings.TrimSpace(q.Text)
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	if isRepeat(q.Text, qc.PriorQuestions) {
		return nil, &ValidationError{Field: "question", Message: "question repeats an earlier one"}
	}
	if qc.FollowUp != nil {
		q.Type = types.QuestionFollowUp
		q.Category = qc.FollowUp.Category
	}

	g.logger.Debug("question generated",
		zap.Int("question", qc.QuestionNumber),
		zap.String("category", q.Category),
		zap.String(logging.FieldModel, g.client.GetModel(llm.ParseTier(qc.ModelTier))))
	return &q, nil
}

func questionPrompt(qc types.QuestionContext) (string, map[string]string) {
	data := map[string]string{
		"InterviewType":   string(qc.InterviewType),
		"ExperienceLevel": string(qc.ExperienceLevel),
		"Role":            qc.Role,
		"History":         formatHistory(qc.PriorQuestions, qc.PriorAnswers),
		"Difficulty":      string(qc.TargetDifficulty),
	}
	if qc.FollowUp != nil {
		data["ParentQuestion"] = qc.FollowUp.ParentQuestion
		data["ParentAnswer"] = qc.FollowUp.ParentAnswer
		data["Reason"] = orDefault(qc.FollowUp.Reason, "the answer needs more depth")
		data["Category"] = orDefault(qc.FollowUp.Category, "general")
		return prompts.KeyFollowUp, data
	}

	data["QuestionNumber"] = strconv.Itoa(qc.QuestionNumber)
	data["TotalQuestions"] = strconv.Itoa(qc.TotalQuestions)
	data["ResumeText"] = orDefault(qc.ResumeText, notProvided)
	data["JobDescription"] = orDefault(qc.JobDescription, notProvided)
	data["TargetSkills"] = joinList(qc.TargetSkills)
	return prompts.KeyQuestion, data
}

func formatHistory(questions, answers []string) string {
	if len(questions) == 0 {
		return noneYet
	}
	var sb strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&sb, "Q%d: %s\n", i+1, q)
		if i < len(answers) && answers[i] != "" {
			fmt.Fprintf(&sb, "A%d: %s\n", i+1, answers[i])
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func isRepeat(text string, prior []string) bool {
	norm := normalizeQuestion(text)
	for _, p := range prior {
		if normalizeQuestion(p) == norm {
			return true
		}
	}
	return false
}

func normalizeQuestion(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimRight(s, "?. "))), " ")
}
