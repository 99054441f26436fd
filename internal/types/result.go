package types

import (
	"time"

	"github.com/google/uuid"
)

// Trend compares a result with the candidate's previous attempt for the same role
type Trend string

// Trends
const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// Recommendation is the hiring recommendation band
type Recommendation string

// Recommendations
const (
	RecommendStrongHire   Recommendation = "strong-hire"
	RecommendHire         Recommendation = "hire"
	RecommendMaybe        Recommendation = "maybe"
	RecommendNoHire       Recommendation = "no-hire"
	RecommendStrongNoHire Recommendation = "strong-no-hire"
)

// ReportSource records whether the narrative came from the report AI or was computed locally
type ReportSource string

// Report sources
const (
	ReportSourceAI    ReportSource = "ai"
	ReportSourceLocal ReportSource = "local"
)

// SkillBreakdown is the five-axis skill score
type SkillBreakdown struct {
	Communication        int `json:"communication"`
	TechnicalKnowledge   int `json:"technical_knowledge"`
	ProblemSolving       int `json:"problem_solving"`
	SituationalAwareness int `json:"situational_awareness"`
	CulturalFit          int `json:"cultural_fit"`
}

// TopicScore is the score for one topic or category
type TopicScore struct {
	Topic     string `json:"topic"`
	Score     int    `json:"score"`
	Questions int    `json:"questions"`
	Feedback  string `json:"feedback,omitempty"`
}

// KeywordSets groups the keywords seen during the interview
type KeywordSets struct {
	Expected  []string `json:"expected"`
	Mentioned []string `json:"mentioned"`
	Missed    []string `json:"missed"`
}

// Recommendations lists improvement suggestions
type Recommendations struct {
	ResumeImprovements []string `json:"resume_improvements"`
	PracticeAreas      []string `json:"practice_areas"`
}

// ResultMetrics are counts and timings gathered from the session
type ResultMetrics struct {
	TotalQuestions     int     `json:"total_questions"`
	AnsweredQuestions  int     `json:"answered_questions"`
	SkippedQuestions   int     `json:"skipped_questions"`
	AvgTimePerQuestion float64 `json:"avg_time_per_question_seconds"`
	TotalDurationSecs  int     `json:"total_duration_seconds"`
	HighScoreAnswers   int     `json:"high_score_answers"`
}

// Comparison places the result against history. Pointer fields are nil when
// no previous attempt exists.
type Comparison struct {
	PreviousScore  *int   `json:"previous_score"`
	ScoreChange    *int   `json:"score_change"`
	PercentileRank int    `json:"percentile_rank"`
	Trend          *Trend `json:"trend"`
}

// HiringRecommendation is the synthesized verdict
type HiringRecommendation struct {
	Decision   Recommendation `json:"decision"`
	Confidence int            `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
}

// InterviewResult is the report for one completed session
type InterviewResult struct {
	ID               uuid.UUID            `json:"id"`
	SessionID        uuid.UUID            `json:"session_id"`
	UserID           uuid.UUID            `json:"user_id"`
	TargetRole       string               `json:"target_role"`
	OverallScore     int                  `json:"overall_score"`
	Skills           SkillBreakdown       `json:"skill_breakdown"`
	Topics           []TopicScore         `json:"topic_breakdown"`
	Strengths        []string             `json:"strengths"`
	Weaknesses       []string             `json:"weaknesses"`
	Keywords         KeywordSets          `json:"keywords"`
	Recommendations  Recommendations      `json:"recommendations"`
	Summary          string               `json:"summary"`
	DetailedFeedback string               `json:"detailed_feedback"`
	Metrics          ResultMetrics        `json:"metrics"`
	Comparison       Comparison           `json:"comparison"`
	Hiring           HiringRecommendation `json:"hiring_recommendation"`
	Source           ReportSource         `json:"report_source"`
	CreatedAt        time.Time            `json:"created_at"`
}
