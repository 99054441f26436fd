package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetResumeText returns the content of a resume owned by userID, or nil if
// it does not exist or belongs to someone else.
func (db *DB) GetResumeText(ctx context.Context, userID, resumeID uuid.UUID) (*string, error) {
	var content string
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM resumes WHERE id = $1 AND user_id = $2`,
		resumeID, userID,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return &content, nil
}

// CreateResume stores resume text for a user and returns its ID
func (db *DB) CreateResume(ctx context.Context, userID uuid.UUID, title, content string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO resumes (user_id, title, content) VALUES ($1, $2, $3) RETURNING id`,
		userID, title, content,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create resume: %w", err)
	}
	return id, nil
}
