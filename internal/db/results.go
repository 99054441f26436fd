package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/interview-coach/internal/types"
)

// GetResultBySession retrieves the result of a completed session
func (db *DB) GetResultBySession(ctx context.Context, sessionID uuid.UUID) (*types.InterviewResult, error) {
	return getResultBySession(ctx, db.pool, sessionID)
}

// LatestResultForRole returns the user's most recent result for role, matched
// case-insensitively, ignoring excludeSession.
func (db *DB) LatestResultForRole(ctx context.Context, userID uuid.UUID, role string, excludeSession uuid.UUID) (*types.InterviewResult, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT document FROM interview_results
		 WHERE user_id = $1 AND LOWER(TRIM(target_role)) = LOWER(TRIM($2)) AND session_id <> $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, role, excludeSession)
	r, err := scanResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest result: %w", err)
	}
	return r, nil
}

// RoleScores returns every stored overall score for role, across all users
func (db *DB) RoleScores(ctx context.Context, role string, excludeSession uuid.UUID) ([]int, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT overall_score FROM interview_results
		 WHERE LOWER(TRIM(target_role)) = LOWER(TRIM($1)) AND session_id <> $2`,
		role, excludeSession)
	if err != nil {
		return nil, fmt.Errorf("failed to query role scores: %w", err)
	}
	scores, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to scan role scores: %w", err)
	}
	return scores, nil
}

func getResultBySession(ctx context.Context, q querier, sessionID uuid.UUID) (*types.InterviewResult, error) {
	row := q.QueryRow(ctx, `SELECT document FROM interview_results WHERE session_id = $1`, sessionID)
	r, err := scanResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return r, nil
}

func scanResult(row pgx.Row) (*types.InterviewResult, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		return nil, err
	}
	var r types.InterviewResult
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &r, nil
}
