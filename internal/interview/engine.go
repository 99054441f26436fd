// Package interview implements the interview session state machine: lifecycle
// transitions, answer evaluation orchestration and the next-step algorithm that
// picks between a follow-up, a new question and completion.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/lock"
	"github.com/jonathan/interview-coach/internal/metrics"
	"github.com/jonathan/interview-coach/internal/types"
	"go.uber.org/zap"
)

const (
	// MinAnswerLength is the minimum trimmed length, in characters, of an answer or transcript
	MinAnswerLength = 10
	// MinQuestions and MaxQuestions bound the configured question count
	MinQuestions = 5
	MaxQuestions = 15
	// DefaultQuestions is used when the request leaves the count unset
	DefaultQuestions = 10

	// abandonAttempts bounds the optimistic retries of Abandon
	abandonAttempts = 3
)

// Options wires an Engine. Store, Questions, Evaluator and Reporter are required.
type Options struct {
	Store       Store
	Resumes     ResumeLookup
	Questions   QuestionGenerator
	Evaluator   AnswerEvaluator
	Transcriber Transcriber
	Synthesizer Synthesizer
	Reporter    Reporter
	Locker      Locker
	Gate        Gate
	// ResolveTier maps a subscription plan to a model tier at creation time
	ResolveTier func(plan string) string
	// DefaultQuestions replaces an unset question count; zero keeps the package default
	DefaultQuestions int
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
	Now              func() time.Time
}

// Engine runs interview sessions. It keeps no state between calls beyond what the Store holds.
type Engine struct {
	store       Store
	resumes     ResumeLookup
	questions   QuestionGenerator
	evaluator   AnswerEvaluator
	transcriber Transcriber
	synth       Synthesizer
	reporter    Reporter
	locker      Locker
	gate        Gate
	resolveTier func(plan string) string
	defaultQs   int
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// Outcome is the result of a mutating operation.
type Outcome struct {
	Session        *types.InterviewSession `json:"session"`
	Evaluation     *types.Evaluation       `json:"evaluation,omitempty"`
	NextQuestion   *types.Question         `json:"next_question,omitempty"`
	QuestionAudio  []byte                  `json:"question_audio,omitempty"`
	FollowUpReason string                  `json:"follow_up_reason,omitempty"`
	Completed      bool                    `json:"completed"`
	Result         *types.InterviewResult  `json:"result,omitempty"`
}

// New creates an Engine from opts.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("interview: store is required")
	case opts.Questions == nil:
		return nil, errors.New("interview: question generator is required")
	case opts.Evaluator == nil:
		return nil, errors.New("interview: answer evaluator is required")
	case opts.Reporter == nil:
		return nil, errors.New("interview: reporter is required")
	}

	e := &Engine{
		store:       opts.Store,
		resumes:     opts.Resumes,
		questions:   opts.Questions,
		evaluator:   opts.Evaluator,
		transcriber: opts.Transcriber,
		synth:       opts.Synthesizer,
		reporter:    opts.Reporter,
		locker:      opts.Locker,
		gate:        opts.Gate,
		resolveTier: opts.ResolveTier,
		defaultQs:   ClampQuestions(opts.DefaultQuestions),
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
	}
	if e.locker == nil {
		e.locker = lock.NewLocal()
	}
	if e.gate == nil {
		e.gate = NewRandomGate(DefaultFollowUpRate)
	}
	if e.resolveTier == nil {
		e.resolveTier = func(string) string { return "standard" }
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Create validates req and stores a new session in the created state.
func (e *Engine) Create(ctx context.Context, userID uuid.UUID, req types.CreateSessionRequest) (*types.InterviewSession, error) {
	const op = "create"

	if !req.InterviewType.Valid() {
		return nil, newError(KindInvalidConfiguration, op, fmt.Sprintf("unknown interview type %q", req.InterviewType), nil)
	}
	if err := req.Validate(); err != nil {
		return nil, newError(KindInvalidConfiguration, op, "invalid session configuration", err)
	}

	cfg := types.SessionConfig{
		InterviewType:   req.InterviewType,
		TargetRole:      strings.TrimSpace(req.TargetRole),
		ExperienceLevel: req.ExperienceLevel,
		AnswerMode:      req.AnswerMode,
		ResumeID:        req.ResumeID,
		JobDescription:  strings.TrimSpace(req.JobDescription),
		TargetSkills:    req.TargetSkills,
		TotalQuestions:  e.questionCount(req.TotalQuestions),
		ModelTier:       e.resolveTier(req.Plan),
	}
	if cfg.AnswerMode == "" {
		cfg.AnswerMode = types.AnswerText
	}

	if req.InterviewType == types.InterviewResumeBased && req.ResumeID == nil {
		return nil, newError(KindInvalidConfiguration, op, "resume-based interviews require a resume", nil)
	}
	if req.InterviewType == types.InterviewJobDescription && cfg.JobDescription == "" {
		return nil, newError(KindInvalidConfiguration, op, "job-description interviews require a job description", nil)
	}
	if req.ResumeID != nil {
		text, err := e.resumeText(ctx, op, userID, *req.ResumeID)
		if err != nil {
			return nil, err
		}
		cfg.ResumeText = text
	}

	now := e.now()
	s := &types.InterviewSession{
		ID:        uuid.New(),
		UserID:    userID,
		Config:    cfg,
		Status:    types.StatusCreated,
		Questions: []types.Question{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateSession(ctx, s); err != nil {
		return nil, newError(KindInternal, op, "failed to store session", err)
	}

	e.metrics.SessionTransition(string(types.StatusCreated))
	e.logger.Info("session created",
		zap.String("session_id", s.ID.String()),
		zap.String("type", string(cfg.InterviewType)),
		zap.Int("total_questions", cfg.TotalQuestions),
		zap.String("model_tier", cfg.ModelTier))
	return s, nil
}

// ClampQuestions maps a requested question count into [MinQuestions, MaxQuestions].
// Zero selects DefaultQuestions.
func ClampQuestions(n int) int {
	if n == 0 {
		return DefaultQuestions
	}
	return min(max(n, MinQuestions), MaxQuestions)
}

func (e *Engine) questionCount(n int) int {
	if n == 0 {
		return e.defaultQs
	}
	return ClampQuestions(n)
}

func (e *Engine) resumeText(ctx context.Context, op string, userID, resumeID uuid.UUID) (string, error) {
	if e.resumes == nil {
		return "", newError(KindInvalidConfiguration, op, "resume lookup is not configured", nil)
	}
	text, err := e.resumes.GetResumeText(ctx, userID, resumeID)
	if err != nil {
		return "", newError(KindInternal, op, "failed to load resume", err)
	}
	if text == nil {
		return "", notFound(op, "resume")
	}
	if strings.TrimSpace(*text) == "" {
		return "", newError(KindInvalidConfiguration, op, "resume has no text", nil)
	}
	return *text, nil
}

// Start issues question 1 and moves the session to in-progress.
func (e *Engine) Start(ctx context.Context, userID, sessionID uuid.UUID) (*Outcome, error) {
	const op = "start"

	unlock, err := e.acquire(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := e.load(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != types.StatusCreated {
		return nil, invalidState(op, "session is %s", s.Status)
	}

	gq, err := e.generate(ctx, op, e.questionContext(s, types.DifficultyMedium, nil))
	if err != nil {
		return nil, err
	}

	now := e.now()
	s.Status = types.StatusInProgress
	s.StartedAt = &now
	s.ActiveSince = &now
	q := buildQuestion(1, gq, now)
	q.Difficulty = types.DifficultyMedium
	s.Questions = append(s.Questions, q)
	s.CurrentIndex = 0

	if err := e.save(ctx, op, s); err != nil {
		return nil, err
	}
	e.metrics.SessionTransition(string(types.StatusInProgress))
	e.metrics.QuestionIssued(false)
	e.logger.Info("session started", zap.String("session_id", s.ID.String()))

	out := &Outcome{Session: s, NextQuestion: s.LastQuestion()}
	out.QuestionAudio = e.speak(ctx, s, q.Text)
	return out, nil
}

// SubmitAnswer records a text answer, evaluates it and runs the next step.
// On GenerationFailed the returned Outcome still carries the stored evaluation.
func (e *Engine) SubmitAnswer(ctx context.Context, userID, sessionID uuid.UUID, number int, answer string, mode types.AnswerMode) (*Outcome, error) {
	const op = "submit_answer"

	unlock, err := e.acquire(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := e.load(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := openQuestion(op, s, number); err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if utf8.RuneCountInString(answer) < MinAnswerLength {
		return nil, newError(KindAnswerTooShort, op, fmt.Sprintf("answer must be at least %d characters", MinAnswerLength), nil)
	}
	if mode == "" {
		mode = types.AnswerText
	}
	return e.answer(ctx, op, s, number, answer, mode, nil)
}

// SubmitVoiceAnswer transcribes audio and then proceeds as SubmitAnswer in voice mode.
func (e *Engine) SubmitVoiceAnswer(ctx context.Context, userID, sessionID uuid.UUID, number int, audio []byte, mimeType string) (*Outcome, error) {
	const op = "submit_voice_answer"

	if e.transcriber == nil {
		return nil, newError(KindInvalidConfiguration, op, "voice answers are not enabled", nil)
	}

	unlock, err := e.acquire(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := e.load(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := openQuestion(op, s, number); err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, newError(KindTranscriptionFailed, op, "audio is empty", nil)
	}

	started := e.now()
	tr, err := e.transcriber.Transcribe(ctx, audio, mimeType, s.Config.ModelTier)
	e.metrics.AICall("transcribe", outcomeLabel(err), e.now().Sub(started))
	if err != nil {
		return nil, newError(KindTranscriptionFailed, op, "failed to transcribe answer", err)
	}
	text := strings.TrimSpace(tr.Text)
	if utf8.RuneCountInString(text) < MinAnswerLength {
		return nil, newError(KindTranscriptionTooShort, op, fmt.Sprintf("transcript must be at least %d characters", MinAnswerLength), nil)
	}
	tr.Text = text
	return e.answer(ctx, op, s, number, text, types.AnswerVoice, tr)
}

// answer evaluates and records an already validated answer.
func (e *Engine) answer(ctx context.Context, op string, s *types.InterviewSession, number int, text string, mode types.AnswerMode, tr *types.Transcript) (*Outcome, error) {
	q := s.QuestionByNumber(number)

	started := e.now()
	eval, err := e.evaluator.Evaluate(ctx, types.EvaluationContext{
		InterviewType:   s.Config.InterviewType,
		Role:            s.Config.TargetRole,
		ExperienceLevel: s.Config.ExperienceLevel,
		Question:        q.Text,
		QuestionType:    q.Type,
		Category:        q.Category,
		Difficulty:      q.Difficulty,
		Answer:          text,
		AnswerMode:      mode,
		ResumeText:      s.Config.ResumeText,
		JobDescription:  s.Config.JobDescription,
		TargetSkills:    s.Config.TargetSkills,
		ModelTier:       s.Config.ModelTier,
	})
	e.metrics.AICall("evaluate", outcomeLabel(err), e.now().Sub(started))
	if err != nil {
		return nil, newError(KindEvaluationFailed, op, fmt.Sprintf("failed to evaluate answer to question %d", number), err)
	}

	now := e.now()
	q.Answer = text
	q.AnswerMode = mode
	q.AnsweredAt = &now
	q.ElapsedSecs = elapsedSeconds(q.AskedAt, now)
	q.Evaluation = eval
	if tr != nil {
		q.Transcript = tr.Text
		q.AudioDurationSecs = tr.DurationSeconds
		q.WordCount = tr.WordCount
	} else {
		q.WordCount = len(strings.Fields(text))
	}

	if err := e.save(ctx, op, s); err != nil {
		return nil, err
	}
	e.logger.Info("answer evaluated",
		zap.String("session_id", s.ID.String()),
		zap.Int("question", number),
		zap.Int("score", eval.Score))

	out, err := e.nextStep(ctx, op, s)
	if err != nil {
		return &Outcome{Session: s, Evaluation: eval}, err
	}
	out.Evaluation = eval
	return out, nil
}

// Skip closes the current question with a zero score and runs the next step.
func (e *Engine) Skip(ctx context.Context, userID, sessionID uuid.UUID, number int) (*Outcome, error) {
	const op = "skip"

	unlock, err := e.acquire(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := e.load(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	q, err := openQuestion(op, s, number)
	if err != nil {
		return nil, err
	}

	q.Skipped = true
	q.ElapsedSecs = elapsedSeconds(q.AskedAt, e.now())
	q.Evaluation = types.SkippedEvaluation()
	if err := e.save(ctx, op, s); err != nil {
		return nil, err
	}
	e.logger.Info("question skipped", zap.String("session_id", s.ID.String()), zap.Int("question", number))

	out, err := e.nextStep(ctx, op, s)
	if err != nil {
		return &Outcome{Session: s, Evaluation: q.Evaluation}, err
	}
	out.Evaluation = q.Evaluation
	return out, nil
}

// Advance re-runs the next step after an earlier GenerationFailed.
func (e *Engine) Advance(ctx context.Context, userID, sessionID uuid.UUID) (*Outcome, error) {
	const op = "advance"

	unlock, err := e.acquire(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := e.load(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != types.StatusInProgress {
		return nil, invalidState(op, "session is %s", s.Status)
	}
	if last := s.LastQuestion(); last != nil && !last.Closed() {
		return nil, invalidState(op, "question %d is still open", last.Number)
	}
	return e.nextStep(ctx, op, s)
}

// Pause stops the active clock of an in-progress session.
func (e *Engine) Pause(ctx context.Context, userID, sessionID uuid.UUID) (*types.InterviewSession, error) {
	return e.transition(ctx, "pause", userID, sessionID, types.StatusInProgress, types.StatusPaused)
}

// Resume restarts a paused session.
func (e *Engine) Resume(ctx context.Context, userID, sessionID uuid.UUID) (*types.InterviewSession, error) {
	return e.transition(ctx, "resume", userID, sessionID, types.StatusPaused, types.StatusInProgress)
}

func (e *Engine) transition(ctx context.Context, op string, userID, sessionID uuid.UUID, from, to types.SessionStatus) (*types.InterviewSession, error) {
	unlock, err := e.acquire(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := e.load(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != from {
		return nil, invalidState(op, "session is %s", s.Status)
	}

	now := e.now()
	if to == types.StatusPaused {
		stopClock(s, now)
	} else {
		s.ActiveSince = &now
	}
	s.Status = to
	if err := e.save(ctx, op, s); err != nil {
		return nil, err
	}
	e.metrics.SessionTransition(string(to))
	e.logger.Info("session "+string(to), zap.String("session_id", s.ID.String()))
	return s, nil
}

// Abandon ends a non-terminal session. It does not take the session lock so it can
// cancel a session while an AI call is in flight; that call's save then fails.
func (e *Engine) Abandon(ctx context.Context, userID, sessionID uuid.UUID) (*types.InterviewSession, error) {
	const op = "abandon"

	for attempt := 1; ; attempt++ {
		s, err := e.load(ctx, op, userID, sessionID)
		if err != nil {
			return nil, err
		}
		if s.Status.Terminal() {
			return nil, invalidState(op, "session is already %s", s.Status)
		}

		stopClock(s, e.now())
		s.Status = types.StatusAbandoned
		err = e.store.UpdateSession(ctx, s)
		if err == nil {
			e.metrics.SessionTransition(string(types.StatusAbandoned))
			e.logger.Info("session abandoned", zap.String("session_id", s.ID.String()))
			return s, nil
		}
		if !errors.Is(err, ErrStoreConflict) {
			return nil, newError(KindInternal, op, "failed to store session", err)
		}
		if attempt == abandonAttempts {
			return nil, newError(KindConflict, op, "session is being modified", err)
		}
	}
}

// Complete finishes an in-progress session whose questions are all closed and
// returns its result. A session that already has a result gets it back unchanged.
func (e *Engine) Complete(ctx context.Context, userID, sessionID uuid.UUID) (*types.InterviewResult, error) {
	const op = "complete"

	unlock, err := e.acquire(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := e.load(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	existing, err := e.store.GetResultBySession(ctx, s.ID)
	if err != nil {
		return nil, newError(KindInternal, op, "failed to load result", err)
	}
	if existing != nil {
		return existing, nil
	}

	if s.Status != types.StatusInProgress {
		return nil, invalidState(op, "session is %s", s.Status)
	}
	if closed := s.ClosedCount(); closed < s.Config.TotalQuestions {
		return nil, invalidState(op, "%d of %d questions closed", closed, s.Config.TotalQuestions)
	}
	return e.finish(ctx, op, s)
}

// Get returns a session owned by userID.
func (e *Engine) Get(ctx context.Context, userID, sessionID uuid.UUID) (*types.InterviewSession, error) {
	return e.load(ctx, "get", userID, sessionID)
}

// Result returns the result of a completed session owned by userID.
func (e *Engine) Result(ctx context.Context, userID, sessionID uuid.UUID) (*types.InterviewResult, error) {
	const op = "result"

	s, err := e.load(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	r, err := e.store.GetResultBySession(ctx, s.ID)
	if err != nil {
		return nil, newError(KindInternal, op, "failed to load result", err)
	}
	if r == nil {
		return nil, notFound(op, "result")
	}
	return r, nil
}

func (e *Engine) acquire(ctx context.Context, op string, sessionID uuid.UUID) (func(), error) {
	unlock, err := e.locker.TryLock(ctx, "session:"+sessionID.String())
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, newError(KindConflict, op, "another operation is in progress for this session", nil)
		}
		return nil, newError(KindInternal, op, "failed to lock session", err)
	}
	return unlock, nil
}

func (e *Engine) load(ctx context.Context, op string, userID, sessionID uuid.UUID) (*types.InterviewSession, error) {
	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, newError(KindInternal, op, "failed to load session", err)
	}
	if s == nil || s.UserID != userID {
		return nil, notFound(op, "session")
	}
	return s, nil
}

// save persists s. A version conflict against a session that became terminal
// means the in-flight work is discarded.
func (e *Engine) save(ctx context.Context, op string, s *types.InterviewSession) error {
	s.UpdatedAt = e.now()
	err := e.store.UpdateSession(ctx, s)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrStoreConflict) {
		return newError(KindInternal, op, "failed to store session", err)
	}

	current, gerr := e.store.GetSession(ctx, s.ID)
	if gerr == nil && current != nil && current.Status.Terminal() {
		e.logger.Warn("discarding work on terminal session",
			zap.String("session_id", s.ID.String()),
			zap.String("status", string(current.Status)),
			zap.String("op", op))
		return invalidState(op, "session was %s while the request was in flight", current.Status)
	}
	return newError(KindConflict, op, "session was modified concurrently", err)
}

func openQuestion(op string, s *types.InterviewSession, number int) (*types.Question, error) {
	if s.Status != types.StatusInProgress {
		return nil, invalidState(op, "session is %s", s.Status)
	}
	q := s.QuestionByNumber(number)
	if q == nil {
		return nil, notFound(op, fmt.Sprintf("question %d", number))
	}
	if q.Closed() {
		return nil, invalidState(op, "question %d is already closed", number)
	}
	if last := s.LastQuestion(); last.Number != number {
		return nil, invalidState(op, "question %d is not the current question", number)
	}
	return q, nil
}

func stopClock(s *types.InterviewSession, now time.Time) {
	if s.ActiveSince == nil {
		return
	}
	s.DurationSecs += elapsedSeconds(*s.ActiveSince, now)
	s.ActiveSince = nil
}

func elapsedSeconds(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Seconds())
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
