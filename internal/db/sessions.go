package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/types"
)

const sessionColumns = `id, user_id, status, config, questions, current_index, started_at,
	completed_at, active_since, duration_secs, version, created_at, updated_at`

// CreateSession inserts a new session at version 1
func (db *DB) CreateSession(ctx context.Context, s *types.InterviewSession) error {
	cfg, questions, err := marshalSession(s)
	if err != nil {
		return err
	}
	s.Version = 1
	_, err = db.pool.Exec(ctx,
		`INSERT INTO interview_sessions (id, user_id, status, target_role, config, questions, current_index,
		     started_at, completed_at, active_since, duration_secs, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.UserID, s.Status, s.Config.TargetRole, cfg, questions, s.CurrentIndex,
		s.StartedAt, s.CompletedAt, s.ActiveSince, s.DurationSecs, s.Version, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*types.InterviewSession, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM interview_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// UpdateSession writes s when its version matches and bumps s.Version
func (db *DB) UpdateSession(ctx context.Context, s *types.InterviewSession) error {
	return updateSession(ctx, db.pool, s)
}

// SaveCompletion stores the completed session and its result in one transaction.
// A result already stored for the session is returned unchanged.
func (db *DB) SaveCompletion(ctx context.Context, s *types.InterviewSession, r *types.InterviewResult) (*types.InterviewResult, error) {
	doc, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := getResultBySession(ctx, tx, s.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := updateSession(ctx, tx, s); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO interview_results (id, session_id, user_id, target_role, overall_score, report_source, document, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (session_id) DO NOTHING`,
		r.ID, r.SessionID, r.UserID, r.TargetRole, r.OverallScore, r.Source, doc, r.CreatedAt,
	)
	if err != nil {
		s.Version--
		return nil, fmt.Errorf("failed to insert result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Lost the insert race; the other writer's result stands
		s.Version--
		_ = tx.Rollback(ctx)
		return db.GetResultBySession(ctx, s.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		s.Version--
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}
	return r, nil
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func updateSession(ctx context.Context, q querier, s *types.InterviewSession) error {
	cfg, questions, err := marshalSession(s)
	if err != nil {
		return err
	}
	var version int
	err = q.QueryRow(ctx,
		`UPDATE interview_sessions SET
		     status = $3, target_role = $4, config = $5, questions = $6, current_index = $7,
		     started_at = $8, completed_at = $9, active_since = $10, duration_secs = $11,
		     version = version + 1, updated_at = $12
		 WHERE id = $1 AND version = $2
		 RETURNING version`,
		s.ID, s.Version, s.Status, s.Config.TargetRole, cfg, questions, s.CurrentIndex,
		s.StartedAt, s.CompletedAt, s.ActiveSince, s.DurationSecs, s.UpdatedAt,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return interview.ErrStoreConflict
		}
		return fmt.Errorf("failed to update session: %w", err)
	}
	s.Version = version
	return nil
}

func marshalSession(s *types.InterviewSession) ([]byte, []byte, error) {
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal session config: %w", err)
	}
	questions := s.Questions
	if questions == nil {
		questions = []types.Question{}
	}
	q, err := json.Marshal(questions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal questions: %w", err)
	}
	return cfg, q, nil
}

func scanSession(row pgx.Row) (*types.InterviewSession, error) {
	var (
		s         types.InterviewSession
		cfg       []byte
		questions []byte
	)
	err := row.Scan(&s.ID, &s.UserID, &s.Status, &cfg, &questions, &s.CurrentIndex, &s.StartedAt,
		&s.CompletedAt, &s.ActiveSince, &s.DurationSecs, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &s.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session config: %w", err)
	}
	if err := json.Unmarshal(questions, &s.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	return &s, nil
}
