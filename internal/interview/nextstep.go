package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecodeclub/ekit/slice"
	"github.com/jonathan/interview-coach/internal/types"
	"go.uber.org/zap"
)

const skippedAnswer = "(skipped)"

// nextStep runs after every closed question: complete the session, issue a
// follow-up or issue a new primary question. s must already be persisted.
func (e *Engine) nextStep(ctx context.Context, op string, s *types.InterviewSession) (*Outcome, error) {
	total := s.Config.TotalQuestions
	if s.ClosedCount() >= total {
		r, err := e.finish(ctx, op, s)
		if err != nil {
			return nil, err
		}
		return &Outcome{Session: s, Completed: true, Result: r}, nil
	}

	last := s.LastQuestion()
	var (
		qc     types.QuestionContext
		reason string
	)
	if fu, ok := e.followUpFor(s, last); ok {
		qc = e.questionContext(s, last.Difficulty, fu)
		reason = fu.Reason
	} else {
		qc = e.questionContext(s, NextDifficulty(trailingScores(s.Questions)), nil)
	}

	gq, err := e.generate(ctx, op, qc)
	if err != nil {
		return nil, err
	}

	now := e.now()
	q := buildQuestion(last.Number+1, gq, now)
	if qc.FollowUp != nil {
		parent := last.Number
		q.Type = types.QuestionFollowUp
		q.Category = last.Category
		q.Difficulty = last.Difficulty
		q.IsFollowUp = true
		q.ParentQuestionNumber = &parent
	} else {
		q.Difficulty = qc.TargetDifficulty
	}
	s.Questions = append(s.Questions, q)
	s.CurrentIndex = len(s.Questions) - 1

	if err := e.save(ctx, op, s); err != nil {
		return nil, err
	}
	e.metrics.QuestionIssued(q.IsFollowUp)
	e.logger.Info("question issued",
		zap.String("session_id", s.ID.String()),
		zap.Int("question", q.Number),
		zap.String("difficulty", string(q.Difficulty)),
		zap.Bool("follow_up", q.IsFollowUp))

	return &Outcome{
		Session:        s,
		NextQuestion:   s.LastQuestion(),
		QuestionAudio:  e.speak(ctx, s, q.Text),
		FollowUpReason: reason,
	}, nil
}

// followUpFor applies the follow-up policy and gate to the last question. Only
// answered primary questions spawn follow-ups, and only while a slot is free.
func (e *Engine) followUpFor(s *types.InterviewSession, last *types.Question) (*types.FollowUpContext, bool) {
	if last == nil || !last.Answered() || last.IsFollowUp {
		return nil, false
	}
	if len(s.Questions) >= s.Config.TotalQuestions {
		return nil, false
	}
	d := DecideFollowUp(last.Evaluation)
	if !d.Ask || !e.gate.Pass() {
		return nil, false
	}
	return &types.FollowUpContext{
		ParentNumber:   last.Number,
		ParentQuestion: last.Text,
		ParentAnswer:   last.Answer,
		Reason:         d.Reason,
		Category:       last.Category,
	}, true
}

func (e *Engine) questionContext(s *types.InterviewSession, difficulty types.Difficulty, fu *types.FollowUpContext) types.QuestionContext {
	return types.QuestionContext{
		InterviewType:   s.Config.InterviewType,
		Role:            s.Config.TargetRole,
		ExperienceLevel: s.Config.ExperienceLevel,
		ResumeText:      s.Config.ResumeText,
		JobDescription:  s.Config.JobDescription,
		TargetSkills:    s.Config.TargetSkills,
		PriorQuestions: slice.Map(s.Questions, func(_ int, q types.Question) string {
			return q.Text
		}),
		PriorAnswers: slice.Map(s.Questions, func(_ int, q types.Question) string {
			if q.Skipped {
				return skippedAnswer
			}
			return q.Answer
		}),
		TargetDifficulty: difficulty,
		QuestionNumber:   len(s.Questions) + 1,
		TotalQuestions:   s.Config.TotalQuestions,
		ModelTier:        s.Config.ModelTier,
		FollowUp:         fu,
	}
}

func (e *Engine) generate(ctx context.Context, op string, qc types.QuestionContext) (*types.GeneratedQuestion, error) {
	started := e.now()
	gq, err := e.questions.Generate(ctx, qc)
	e.metrics.AICall("generate_question", outcomeLabel(err), e.now().Sub(started))
	if err != nil {
		return nil, newError(KindGenerationFailed, op, fmt.Sprintf("failed to generate question %d", qc.QuestionNumber), err)
	}
	return gq, nil
}

func buildQuestion(number int, gq *types.GeneratedQuestion, now time.Time) types.Question {
	q := types.Question{
		Number:     number,
		Text:       gq.Text,
		Type:       gq.Type,
		Category:   gq.Category,
		Difficulty: gq.Difficulty,
		AskedAt:    now,
	}
	if q.Difficulty == "" {
		q.Difficulty = types.DifficultyMedium
	}
	return q
}

// speak synthesizes question audio for live sessions. Failures only log.
func (e *Engine) speak(ctx context.Context, s *types.InterviewSession, text string) []byte {
	if s.Config.AnswerMode != types.AnswerLive {
		return nil
	}
	if e.synth == nil {
		e.logger.Warn("no synthesizer configured for live session", zap.String("session_id", s.ID.String()))
		return nil
	}
	started := e.now()
	audio, err := e.synth.Synthesize(ctx, text)
	e.metrics.AICall("synthesize", outcomeLabel(err), e.now().Sub(started))
	if err != nil {
		e.logger.Warn("question audio unavailable",
			zap.String("session_id", s.ID.String()),
			zap.Error(err))
		return nil
	}
	return audio
}

// finish moves s to completed and stores it together with its result.
func (e *Engine) finish(ctx context.Context, op string, s *types.InterviewSession) (*types.InterviewResult, error) {
	prev := *s
	restore := func() {
		s.Status, s.CompletedAt, s.DurationSecs, s.ActiveSince = prev.Status, prev.CompletedAt, prev.DurationSecs, prev.ActiveSince
	}

	now := e.now()
	stopClock(s, now)
	s.Status = types.StatusCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now

	r, err := e.reporter.Build(ctx, s)
	if err != nil {
		restore()
		return nil, newError(KindInternal, op, "failed to build result", err)
	}

	stored, err := e.store.SaveCompletion(ctx, s, r)
	if err != nil {
		restore()
		if errors.Is(err, ErrStoreConflict) {
			return nil, e.completionConflict(ctx, op, s)
		}
		return nil, newError(KindInternal, op, "failed to store result", err)
	}

	e.metrics.SessionTransition(string(types.StatusCompleted))
	e.logger.Info("session completed",
		zap.String("session_id", s.ID.String()),
		zap.Int("overall_score", stored.OverallScore),
		zap.String("report_source", string(stored.Source)))
	return stored, nil
}

func (e *Engine) completionConflict(ctx context.Context, op string, s *types.InterviewSession) error {
	current, err := e.store.GetSession(ctx, s.ID)
	if err == nil && current != nil && current.Status == types.StatusAbandoned {
		return invalidState(op, "session was abandoned while the report was generated")
	}
	return newError(KindConflict, op, "session was modified concurrently", nil)
}
