// Package report builds the final InterviewResult of a completed session: metrics,
// the AI narrative (or a local fallback), trend against the previous attempt and
// percentile within the role cohort.
package report

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/metrics"
	"github.com/jonathan/interview-coach/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// History reads results of other sessions. Roles are matched case-insensitively
// after trimming; excludeSession is never returned.
type History interface {
	LatestResultForRole(ctx context.Context, userID uuid.UUID, role string, excludeSession uuid.UUID) (*types.InterviewResult, error)
	RoleScores(ctx context.Context, role string, excludeSession uuid.UUID) ([]int, error)
}

// Writer produces the holistic AI report.
type Writer interface {
	Write(ctx context.Context, rc types.ReportContext) (*types.Report, error)
}

// Aggregator implements interview.Reporter.
type Aggregator struct {
	writer  Writer
	history History
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewAggregator creates an Aggregator. writer may be nil, in which case every
// result is built locally.
func NewAggregator(writer Writer, history History, logger *zap.Logger, m *metrics.Metrics) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{writer: writer, history: history, logger: logger, metrics: m, now: time.Now}
}

// Build assembles the result for s. Failures of the report AI fall back to a
// local report; history read failures are returned.
func (a *Aggregator) Build(ctx context.Context, s *types.InterviewSession) (*types.InterviewResult, error) {
	m := ComputeMetrics(s)
	role := NormalizeRole(s.Config.TargetRole)

	var (
		mu       sync.Mutex
		aiReport *types.Report
		previous *types.InterviewResult
		cohort   []int
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rep := a.writeReport(gCtx, s, m)
		mu.Lock()
		aiReport = rep
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		prev, err := a.history.LatestResultForRole(gCtx, s.UserID, role, s.ID)
		if err != nil {
			return fmt.Errorf("failed to load previous result: %w", err)
		}
		mu.Lock()
		previous = prev
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		scores, err := a.history.RoleScores(gCtx, role, s.ID)
		if err != nil {
			return fmt.Errorf("failed to load role cohort: %w", err)
		}
		mu.Lock()
		cohort = scores
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	source := types.ReportSourceAI
	if aiReport == nil {
		source = types.ReportSourceLocal
		aiReport = LocalReport(s, m)
	}
	overall := clampScore(aiReport.OverallScore)

	hiring := aiReport.Hiring
	if !validDecision(hiring.Decision) {
		hiring.Decision = DecisionForScore(overall)
	}
	hiring.Confidence = clampScore(hiring.Confidence)

	return &types.InterviewResult{
		ID:           uuid.New(),
		SessionID:    s.ID,
		UserID:       s.UserID,
		TargetRole:   s.Config.TargetRole,
		OverallScore: overall,
		Skills:       clampSkills(aiReport.Skills),
		Topics:       nonNil(aiReport.Topics),
		Strengths:    nonNil(aiReport.Strengths),
		Weaknesses:   nonNil(aiReport.Weaknesses),
		Keywords: types.KeywordSets{
			Expected:  nonNil(aiReport.ExpectedKeywords),
			Mentioned: nonNil(aiReport.MentionedKeywords),
			Missed:    nonNil(aiReport.MissedKeywords),
		},
		Recommendations: types.Recommendations{
			ResumeImprovements: nonNil(aiReport.ResumeImprovements),
			PracticeAreas:      nonNil(aiReport.PracticeAreas),
		},
		Summary:          aiReport.Summary,
		DetailedFeedback: aiReport.DetailedFeedback,
		Metrics:          m,
		Comparison:       Compare(overall, previous, cohort),
		Hiring:           hiring,
		Source:           source,
		CreatedAt:        a.now(),
	}, nil
}

// writeReport calls the report AI and returns nil when it is unavailable or fails.
func (a *Aggregator) writeReport(ctx context.Context, s *types.InterviewSession, m types.ResultMetrics) *types.Report {
	if a.writer == nil {
		return nil
	}
	started := time.Now()
	rep, err := a.writer.Write(ctx, types.ReportContext{
		InterviewType:   s.Config.InterviewType,
		Role:            s.Config.TargetRole,
		ExperienceLevel: s.Config.ExperienceLevel,
		JobDescription:  s.Config.JobDescription,
		TargetSkills:    s.Config.TargetSkills,
		Questions:       s.Questions,
		Metrics:         m,
		ModelTier:       s.Config.ModelTier,
	})
	a.metrics.AICall("report", outcome(err), time.Since(started))
	if err != nil {
		a.metrics.ReportFallback()
		a.logger.Warn("report AI failed, building local result",
			zap.String("session_id", s.ID.String()),
			zap.Error(err))
		return nil
	}
	return rep
}

// NormalizeRole is the cohort key for a target role.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func validDecision(d types.Recommendation) bool {
	switch d {
	case types.RecommendStrongHire, types.RecommendHire, types.RecommendMaybe, types.RecommendNoHire, types.RecommendStrongNoHire:
		return true
	}
	return false
}

func clampScore(v int) int {
	return min(max(v, 0), 100)
}

func clampSkills(s types.SkillBreakdown) types.SkillBreakdown {
	return types.SkillBreakdown{
		Communication:        clampScore(s.Communication),
		TechnicalKnowledge:   clampScore(s.TechnicalKnowledge),
		ProblemSolving:       clampScore(s.ProblemSolving),
		SituationalAwareness: clampScore(s.SituationalAwareness),
		CulturalFit:          clampScore(s.CulturalFit),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
