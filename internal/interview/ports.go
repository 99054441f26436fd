package interview

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/types"
)

// Store persists sessions and results. Get methods return nil, nil when nothing matches.
type Store interface {
	CreateSession(ctx context.Context, s *types.InterviewSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*types.InterviewSession, error)
	// UpdateSession writes s if its Version still matches the stored one and bumps
	// s.Version. It returns ErrStoreConflict otherwise.
	UpdateSession(ctx context.Context, s *types.InterviewSession) error
	// SaveCompletion writes the completed session and inserts the result in one
	// transaction. An existing result for the session wins and is returned.
	SaveCompletion(ctx context.Context, s *types.InterviewSession, r *types.InterviewResult) (*types.InterviewResult, error)
	GetResultBySession(ctx context.Context, sessionID uuid.UUID) (*types.InterviewResult, error)
}

// ResumeLookup resolves a stored resume owned by a user to its text.
type ResumeLookup interface {
	GetResumeText(ctx context.Context, userID, resumeID uuid.UUID) (*string, error)
}

// QuestionGenerator produces one question for the given context.
type QuestionGenerator interface {
	Generate(ctx context.Context, qc types.QuestionContext) (*types.GeneratedQuestion, error)
}

// AnswerEvaluator scores one answer.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, ec types.EvaluationContext) (*types.Evaluation, error)
}

// Transcriber converts an audio answer to text with the model of the given tier.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, tier string) (*types.Transcript, error)
}

// Synthesizer converts question text to speech for live mode.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Reporter builds the final result for a completed session.
type Reporter interface {
	Build(ctx context.Context, s *types.InterviewSession) (*types.InterviewResult, error)
}

// Locker grants the single writer slot for a session.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}
