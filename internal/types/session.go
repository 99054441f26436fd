// Package types provides type definitions for the interview sessions, questions and results
// exchanged between the engine, storage and the HTTP API.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// InterviewType selects how questions are sourced for a session
type InterviewType string

// Interview types
const (
	InterviewResumeBased    InterviewType = "resume-based"
	InterviewJobDescription InterviewType = "job-description"
	InterviewTechnical      InterviewType = "technical"
	InterviewBehavioral     InterviewType = "behavioral"
	InterviewMixed          InterviewType = "mixed"
)

// Valid reports whether t is one of the known interview types
func (t InterviewType) Valid() bool {
	switch t {
	case InterviewResumeBased, InterviewJobDescription, InterviewTechnical, InterviewBehavioral, InterviewMixed:
		return true
	}
	return false
}

// ExperienceLevel is the candidate's seniority
type ExperienceLevel string

// Experience levels
const (
	LevelFresher ExperienceLevel = "fresher"
	LevelJunior  ExperienceLevel = "junior"
	LevelMid     ExperienceLevel = "mid"
	LevelSenior  ExperienceLevel = "senior"
	LevelLead    ExperienceLevel = "lead"
)

// AnswerMode is how answers are submitted
type AnswerMode string

// Answer modes
const (
	AnswerText  AnswerMode = "text"
	AnswerVoice AnswerMode = "voice"
	AnswerMixed AnswerMode = "mixed"
	AnswerLive  AnswerMode = "live"
)

// SessionStatus is the lifecycle state of a session
type SessionStatus string

// Session statuses
const (
	StatusCreated    SessionStatus = "created"
	StatusInProgress SessionStatus = "in-progress"
	StatusPaused     SessionStatus = "paused"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// Terminal reports whether no further transitions are possible
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// QuestionType classifies a question
type QuestionType string

// Question types
const (
	QuestionTechnical   QuestionType = "technical"
	QuestionBehavioral  QuestionType = "behavioral"
	QuestionSituational QuestionType = "situational"
	QuestionResumeBased QuestionType = "resume-based"
	QuestionFollowUp    QuestionType = "follow-up"
)

// Difficulty is the difficulty tier of a question
type Difficulty string

// Difficulty tiers
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// SessionConfig is fixed when the session is created
type SessionConfig struct {
	InterviewType   InterviewType   `json:"interview_type"`
	TargetRole      string          `json:"target_role"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	AnswerMode      AnswerMode      `json:"answer_mode"`
	ResumeID        *uuid.UUID      `json:"resume_id,omitempty"`
	ResumeText      string          `json:"resume_text,omitempty"`
	JobDescription  string          `json:"job_description,omitempty"`
	TargetSkills    []string        `json:"target_skills,omitempty"`
	TotalQuestions  int             `json:"total_questions"`
	// ModelTier is resolved from the subscription plan at creation and never re-resolved
	ModelTier string `json:"model_tier"`
}

// InterviewSession is one interview attempt
type InterviewSession struct {
	ID           uuid.UUID     `json:"id"`
	UserID       uuid.UUID     `json:"user_id"`
	Config       SessionConfig `json:"config"`
	Status       SessionStatus `json:"status"`
	CurrentIndex int           `json:"current_question_index"`
	Questions    []Question    `json:"questions"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	DurationSecs int           `json:"duration_seconds"`
	ActiveSince  *time.Time    `json:"active_since,omitempty"`
	Version      int           `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Question is one turn of a session, embedded in its session
type Question struct {
	Number               int          `json:"number"`
	Text                 string       `json:"text"`
	Type                 QuestionType `json:"type"`
	Category             string       `json:"category"`
	Difficulty           Difficulty   `json:"difficulty"`
	IsFollowUp           bool         `json:"is_follow_up"`
	ParentQuestionNumber *int         `json:"parent_question_number,omitempty"`
	Answer               string       `json:"answer,omitempty"`
	AnswerMode           AnswerMode   `json:"answer_mode,omitempty"`
	Transcript           string       `json:"transcript,omitempty"`
	AudioDurationSecs    float64      `json:"audio_duration_seconds,omitempty"`
	WordCount            int          `json:"word_count,omitempty"`
	AskedAt              time.Time    `json:"asked_at"`
	AnsweredAt           *time.Time   `json:"answered_at,omitempty"`
	ElapsedSecs          int          `json:"elapsed_seconds,omitempty"`
	Skipped              bool         `json:"skipped"`
	Evaluation           *Evaluation  `json:"evaluation,omitempty"`
}

// Answered reports whether the question has an answer
func (q *Question) Answered() bool {
	return q.AnsweredAt != nil && !q.Skipped
}

// Closed reports whether the question was answered or skipped
func (q *Question) Closed() bool {
	return q.AnsweredAt != nil || q.Skipped
}

// Evaluation is the AI assessment of one answer
type Evaluation struct {
	Score             int      `json:"score"`
	Relevance         int      `json:"relevance"`
	TechnicalAccuracy int      `json:"technical_accuracy"`
	Clarity           int      `json:"clarity"`
	Confidence        int      `json:"confidence"`
	RoleFit           int      `json:"role_fit"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	MissingKeywords   []string `json:"missing_keywords"`
	SuggestedAnswer   string   `json:"suggested_answer"`
	ImprovementTips   []string `json:"improvement_tips"`
	Feedback          string   `json:"feedback"`
	ShouldAskFollowUp bool     `json:"should_ask_follow_up"`
	FollowUpReason    string   `json:"follow_up_reason,omitempty"`
}

// SkippedEvaluation is the synthetic zero-score evaluation recorded for a skip
func SkippedEvaluation() *Evaluation {
	return &Evaluation{
		Score:    0,
		Feedback: "Question skipped",
	}
}

// ClosedCount returns the number of questions answered or skipped
func (s *InterviewSession) ClosedCount() int {
	n := 0
	for i := range s.Questions {
		if s.Questions[i].Closed() {
			n++
		}
	}
	return n
}

// LastQuestion returns the most recently issued question, or nil
func (s *InterviewSession) LastQuestion() *Question {
	if len(s.Questions) == 0 {
		return nil
	}
	return &s.Questions[len(s.Questions)-1]
}

// QuestionByNumber returns the question with the given sequence number, or nil
func (s *InterviewSession) QuestionByNumber(n int) *Question {
	for i := range s.Questions {
		if s.Questions[i].Number == n {
			return &s.Questions[i]
		}
	}
	return nil
}
