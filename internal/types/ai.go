package types

// QuestionContext is everything the question generator sees when producing the next question.
type QuestionContext struct {
	InterviewType    InterviewType    `json:"interview_type"`
	Role             string           `json:"role"`
	ExperienceLevel  ExperienceLevel  `json:"experience_level"`
	ResumeText       string           `json:"resume_text,omitempty"`
	JobDescription   string           `json:"job_description,omitempty"`
	TargetSkills     []string         `json:"target_skills,omitempty"`
	PriorQuestions   []string         `json:"prior_questions"`
	PriorAnswers     []string         `json:"prior_answers"`
	TargetDifficulty Difficulty       `json:"target_difficulty"`
	QuestionNumber   int              `json:"question_number"`
	TotalQuestions   int              `json:"total_questions"`
	ModelTier        string           `json:"model_tier"`
	FollowUp         *FollowUpContext `json:"follow_up,omitempty"`
}

// FollowUpContext is set when the generator must dig into the previous answer.
type FollowUpContext struct {
	ParentNumber   int    `json:"parent_number"`
	ParentQuestion string `json:"parent_question"`
	ParentAnswer   string `json:"parent_answer"`
	Reason         string `json:"reason"`
	Category       string `json:"category"`
}

// GeneratedQuestion is the generator output.
type GeneratedQuestion struct {
	Text       string       `json:"question"`
	Type       QuestionType `json:"type"`
	Category   string       `json:"category"`
	Difficulty Difficulty   `json:"difficulty"`
}

// EvaluationContext is the question/answer pair plus the context needed to score it.
type EvaluationContext struct {
	InterviewType   InterviewType   `json:"interview_type"`
	Role            string          `json:"role"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	Question        string          `json:"question"`
	QuestionType    QuestionType    `json:"question_type"`
	Category        string          `json:"category"`
	Difficulty      Difficulty      `json:"difficulty"`
	Answer          string          `json:"answer"`
	AnswerMode      AnswerMode      `json:"answer_mode"`
	ResumeText      string          `json:"resume_text,omitempty"`
	JobDescription  string          `json:"job_description,omitempty"`
	TargetSkills    []string        `json:"target_skills,omitempty"`
	ModelTier       string          `json:"model_tier"`
}

// Transcript is the transcription of a submitted audio answer.
type Transcript struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds"`
	WordCount       int     `json:"word_count"`
}

// Report is the holistic report produced by the report AI.
type Report struct {
	OverallScore       int                  `json:"overall_score"`
	Skills             SkillBreakdown       `json:"skill_breakdown"`
	Topics             []TopicScore         `json:"topic_breakdown"`
	Strengths          []string             `json:"strengths"`
	Weaknesses         []string             `json:"weaknesses"`
	ExpectedKeywords   []string             `json:"expected_keywords"`
	MentionedKeywords  []string             `json:"mentioned_keywords"`
	MissedKeywords     []string             `json:"missed_keywords"`
	ResumeImprovements []string             `json:"resume_improvements"`
	PracticeAreas      []string             `json:"practice_areas"`
	Summary            string               `json:"summary"`
	DetailedFeedback   string               `json:"detailed_feedback"`
	Hiring             HiringRecommendation `json:"hiring_recommendation"`
}

// ReportContext is the full session history handed to the report AI.
type ReportContext struct {
	InterviewType   InterviewType   `json:"interview_type"`
	Role            string          `json:"role"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	JobDescription  string          `json:"job_description,omitempty"`
	TargetSkills    []string        `json:"target_skills,omitempty"`
	Questions       []Question      `json:"questions"`
	Metrics         ResultMetrics   `json:"metrics"`
	ModelTier       string          `json:"model_tier"`
}
