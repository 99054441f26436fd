package generation

import (
	"context"
	"strings"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
	"go.uber.org/zap"
)

// AnswerEvaluator scores answers with the LLM
type AnswerEvaluator struct {
	client llm.Client
	logger *zap.Logger
}

// NewAnswerEvaluator creates an evaluator over client
func NewAnswerEvaluator(client llm.Client, logger *zap.Logger) *AnswerEvaluator {
	return &AnswerEvaluator{client: client, logger: logging.OrNop(logger)}
}

// Evaluate scores one answer
func (e *AnswerEvaluator) Evaluate(ctx context.Context, ec types.EvaluationContext) (*types.Evaluation, error) {
	data := map[string]string{
		"InterviewType":   string(ec.InterviewType),
		"ExperienceLevel": string(ec.ExperienceLevel),
		"Role":            ec.Role,
		"Question":        ec.Question,
		"QuestionType":    string(ec.QuestionType),
		"Category":        orDefault(ec.Category, "general"),
		"Difficulty":      string(ec.Difficulty),
		"Answer":          ec.Answer,
		"AnswerMode":      string(ec.AnswerMode),
		"JobDescription":  orDefault(ec.JobDescription, notProvided),
		"ResumeText":      orDefault(ec.ResumeText, notProvided),
		"TargetSkills":    joinList(ec.TargetSkills),
	}

	var ev types.Evaluation
	if err := callJSON(ctx, e.client, e.logger, prompts.KeyEvaluate, data, llm.ParseTier(ec.ModelTier), schemas.Evaluation, &ev); err != nil {
		return nil, err
	}
	normalizeEvaluation(&ev)
	return &ev, nil
}

func normalizeEvaluation(ev *types.Evaluation) {
	ev.Score = clampScore(ev.Score)
	ev.Relevance = clampScore(ev.Relevance)
	ev.TechnicalAccuracy = clampScore(ev.TechnicalAccuracy)
	ev.Clarity = clampScore(ev.Clarity)
	ev.Confidence = clampScore(ev.Confidence)
	ev.RoleFit = clampScore(ev.RoleFit)
	ev.Strengths = cleanList(ev.Strengths)
	ev.Weaknesses = cleanList(ev.Weaknesses)
	ev.ImprovementTips = cleanList(ev.ImprovementTips)
	ev.MissingKeywords = cleanList(ev.MissingKeywords)
	for i, k := range ev.MissingKeywords {
		ev.MissingKeywords[i] = strings.ToLower(k)
	}
	ev.SuggestedAnswer = strings.TrimSpace(ev.SuggestedAnswer)
	ev.Feedback = strings.TrimSpace(ev.Feedback)
	ev.FollowUpReason = strings.TrimSpace(ev.FollowUpReason)
	if !ev.ShouldAskFollowUp {
		ev.FollowUpReason = ""
	}
}
