package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
	"go.uber.org/zap"
)

// ReportWriter asks the LLM for the holistic end-of-session report
type ReportWriter struct {
	client llm.Client
	logger *zap.Logger
}

// NewReportWriter creates a writer over client
func NewReportWriter(client llm.Client, logger *zap.Logger) *ReportWriter {
	return &ReportWriter{client: client, logger: logging.OrNop(logger)}
}

// Write returns the AI report for rc
func (w *ReportWriter) Write(ctx context.Context, rc types.ReportContext) (*types.Report, error) {
	metrics, err := json.MarshalIndent(rc.Metrics, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metrics: %w", err)
	}
	data := map[string]string{
		"InterviewType":   string(rc.InterviewType),
		"ExperienceLevel": string(rc.ExperienceLevel),
		"Role":            rc.Role,
		"JobDescription":  orDefault(rc.JobDescription, notProvided),
		"TargetSkills":    joinList(rc.TargetSkills),
		"Metrics":         string(metrics),
		"Transcript":      formatTranscript(rc.Questions),
	}

	// Reports always use at least the standard tier
	tier := llm.ParseTier(rc.ModelTier)
	if tier == llm.TierLite {
		tier = llm.TierStandard
	}

	var r types.Report
	if err := callJSON(ctx, w.client, w.logger, prompts.KeyReport, data, tier, schemas.Report, &r); err != nil {
		return nil, err
	}
	r.Strengths = cleanList(r.Strengths)
	r.Weaknesses = cleanList(r.Weaknesses)
	r.Summary = strings.TrimSpace(r.Summary)
	return &r, nil
}

func formatTranscript(questions []types.Question) string {
	var sb strings.Builder
	for _, q := range questions {
		fmt.Fprintf(&sb, "Q%d [%s, %s, %s]", q.Number, q.Type, orDefault(q.Category, "general"), q.Difficulty)
		if q.IsFollowUp && q.ParentQuestionNumber != nil {
			fmt.Fprintf(&sb, " follow-up to Q%d", *q.ParentQuestionNumber)
		}
		fmt.Fprintf(&sb, ": %s\n", q.Text)
		switch {
		case q.Skipped:
			sb.WriteString("Answer: (skipped)\n")
		case q.Answered():
			fmt.Fprintf(&sb, "Answer (%s, %ds): %s\n", q.AnswerMode, q.ElapsedSecs, q.Answer)
		default:
			sb.WriteString("Answer: (none)\n")
		}
		if q.Evaluation != nil && !q.Skipped {
			fmt.Fprintf(&sb, "Score: %d. Feedback: %s\n", q.Evaluation.Score, q.Evaluation.Feedback)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
