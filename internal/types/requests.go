package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CreateSessionRequest is the request to create a new interview session.
// TotalQuestions is clamped by the engine, so it is only checked for sign here.
type CreateSessionRequest struct {
	InterviewType   InterviewType   `json:"interview_type" validate:"required,oneof=resume-based job-description technical behavioral mixed"`
	TargetRole      string          `json:"target_role" validate:"required,min=2,max=200"`
	ExperienceLevel ExperienceLevel `json:"experience_level" validate:"required,oneof=fresher junior mid senior lead"`
	AnswerMode      AnswerMode      `json:"answer_mode" validate:"omitempty,oneof=text voice mixed live"`
	ResumeID        *uuid.UUID      `json:"resume_id,omitempty"`
	JobDescription  string          `json:"job_description,omitempty" validate:"max=20000"`
	TargetSkills    []string        `json:"target_skills,omitempty" validate:"max=20,dive,min=1,max=100"`
	TotalQuestions  int             `json:"total_questions,omitempty" validate:"gte=0"`
	Plan            string          `json:"-"`
}

// Validate validates the CreateSessionRequest using the validator.
func (r *CreateSessionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// SubmitAnswerRequest is the body of a text answer submission.
type SubmitAnswerRequest struct {
	Answer string     `json:"answer" validate:"max=10000"`
	Mode   AnswerMode `json:"mode,omitempty" validate:"omitempty,oneof=text voice mixed live"`
}

// Validate validates the SubmitAnswerRequest using the validator.
func (r *SubmitAnswerRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
