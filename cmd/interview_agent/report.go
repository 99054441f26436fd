package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/observability"
	"github.com/spf13/cobra"
)

var (
	reportSession string
	reportJSON    bool
	reportVerbose bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the stored result of a completed session",
	Long:  `Load a session and its result from the database and print them as text or JSON.`,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportSession, "session", "s", "", "Session ID (required)")
	reportCmd.Flags().BoolVar(&reportJSON, "as-json", false, "Print the result as JSON")
	reportCmd.Flags().BoolVarP(&reportVerbose, "verbose", "v", false, "Also print the session questions")
	_ = reportCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	sessionID, err := uuid.Parse(reportSession)
	if err != nil {
		return fmt.Errorf("invalid session ID %q: %w", reportSession, err)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}
	result, err := a.store.GetResultBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load result: %w", err)
	}
	if result == nil {
		return fmt.Errorf("session %s has no result (status %s)", sessionID, session.Status)
	}

	out := cmd.OutOrStdout()
	if reportJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	p := observability.NewPrinter(out)
	if reportVerbose {
		p.PrintSession(session)
	}
	p.PrintResult(result)
	return nil
}
