// Package observability provides formatted output of sessions and results for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/interview-coach/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 64
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads s to width runes
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		return string([]rune(s)[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-n)
}

// PrintResult outputs a human-readable summary of an interview result.
func (p *Printer) PrintResult(r *types.InterviewResult) {
	if r == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Role:      %s\n", r.TargetRole)
	fmt.Fprintf(&sb, "Score:     %d/100\n", r.OverallScore)
	fmt.Fprintf(&sb, "Decision:  %s (confidence %d)\n", r.Hiring.Decision, r.Hiring.Confidence)
	fmt.Fprintf(&sb, "Report:    %s\n", r.Source)
	sb.WriteString("\n")

	sb.WriteString("Skills:\n")
	fmt.Fprintf(&sb, "  communication          %3d\n", r.Skills.Communication)
	fmt.Fprintf(&sb, "  technical knowledge    %3d\n", r.Skills.TechnicalKnowledge)
	fmt.Fprintf(&sb, "  problem solving        %3d\n", r.Skills.ProblemSolving)
	fmt.Fprintf(&sb, "  situational awareness  %3d\n", r.Skills.SituationalAwareness)
	fmt.Fprintf(&sb, "  cultural fit           %3d\n", r.Skills.CulturalFit)
	sb.WriteString("\n")

	if len(r.Topics) > 0 {
		sb.WriteString("Topics:\n")
		for _, t := range r.Topics {
			fmt.Fprintf(&sb, "  %-28s %3d  (%d questions)\n", t.Topic, t.Score, t.Questions)
		}
		sb.WriteString("\n")
	}

	writeList(&sb, "Strengths", r.Strengths)
	writeList(&sb, "Weaknesses", r.Weaknesses)
	writeList(&sb, "Missed keywords", r.Keywords.Missed)
	writeList(&sb, "Practice", r.Recommendations.PracticeAreas)

	m := r.Metrics
	fmt.Fprintf(&sb, "Answered %d of %d, skipped %d, %d strong answers\n",
		m.AnsweredQuestions, m.TotalQuestions, m.SkippedQuestions, m.HighScoreAnswers)
	fmt.Fprintf(&sb, "Duration %ds, %.0fs per question\n", m.TotalDurationSecs, m.AvgTimePerQuestion)

	c := r.Comparison
	if c.PreviousScore != nil && c.ScoreChange != nil {
		trend := ""
		if c.Trend != nil {
			trend = " " + string(*c.Trend)
		}
		fmt.Fprintf(&sb, "Previous %d, change %+d%s\n", *c.PreviousScore, *c.ScoreChange, trend)
	}
	fmt.Fprintf(&sb, "Percentile %d among %s candidates\n", c.PercentileRank, r.TargetRole)

	if r.Summary != "" {
		sb.WriteString("\n")
		for _, line := range wrap(r.Summary, boxWidth-4) {
			sb.WriteString(line + "\n")
		}
	}

	p.printBox("INTERVIEW RESULT", sb.String())
}

// PrintSession outputs the state of a session and one line per question.
func (p *Printer) PrintSession(s *types.InterviewSession) {
	if s == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session:   %s\n", s.ID)
	fmt.Fprintf(&sb, "Status:    %s\n", s.Status)
	fmt.Fprintf(&sb, "Interview: %s, %s %s\n", s.Config.InterviewType, s.Config.ExperienceLevel, s.Config.TargetRole)
	fmt.Fprintf(&sb, "Progress:  %d of %d closed\n", s.ClosedCount(), s.Config.TotalQuestions)
	sb.WriteString("\n")

	for _, q := range s.Questions {
		marker := "Q"
		if q.IsFollowUp {
			marker = "F"
		}
		status := "open"
		switch {
		case q.Skipped:
			status = "skipped"
		case q.Evaluation != nil:
			status = fmt.Sprintf("%d", q.Evaluation.Score)
		}
		fmt.Fprintf(&sb, "%s%-2d %-7s %-6s %s\n", marker, q.Number, status, q.Difficulty, q.Text)
	}

	p.printBox("INTERVIEW SESSION", sb.String())
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(title + ":\n")
	count := min(len(items), maxItemsToShow)
	for _, item := range items[:count] {
		fmt.Fprintf(sb, "  • %s\n", item)
	}
	if len(items) > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-maxItemsToShow)
	}
	sb.WriteString("\n")
}

// wrap splits text into lines of at most width runes on word boundaries
func wrap(text string, width int) []string {
	var (
		lines []string
		line  string
	)
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
