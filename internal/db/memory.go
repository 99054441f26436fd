package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/types"
)

// MemoryStore is an in-process store with the same semantics as DB. It backs
// local runs without PostgreSQL and handler tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID][]byte
	results  map[uuid.UUID]*types.InterviewResult
	resumes  map[uuid.UUID]memoryResume
}

type memoryResume struct {
	userID  uuid.UUID
	content string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID][]byte),
		results:  make(map[uuid.UUID]*types.InterviewResult),
		resumes:  make(map[uuid.UUID]memoryResume),
	}
}

// CreateSession implements interview.Store
func (m *MemoryStore) CreateSession(_ context.Context, s *types.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	s.Version = 1
	return m.putLocked(s)
}

// GetSession implements interview.Store
func (m *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (*types.InterviewSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	var s types.InterviewSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

// UpdateSession implements interview.Store
func (m *MemoryStore) UpdateSession(_ context.Context, s *types.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(s)
}

// SaveCompletion implements interview.Store
func (m *MemoryStore) SaveCompletion(_ context.Context, s *types.InterviewSession, r *types.InterviewResult) (*types.InterviewResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.results[s.ID]; ok {
		return copyResult(existing), nil
	}
	if err := m.updateLocked(s); err != nil {
		return nil, err
	}
	m.results[s.ID] = copyResult(r)
	return copyResult(r), nil
}

// GetResultBySession implements interview.Store
func (m *MemoryStore) GetResultBySession(_ context.Context, sessionID uuid.UUID) (*types.InterviewResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[sessionID]
	if !ok {
		return nil, nil
	}
	return copyResult(r), nil
}

// LatestResultForRole implements report.History
func (m *MemoryStore) LatestResultForRole(_ context.Context, userID uuid.UUID, role string, excludeSession uuid.UUID) (*types.InterviewResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := m.roleResultsLocked(role, excludeSession, &userID)
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return copyResult(matches[0]), nil
}

// RoleScores implements report.History
func (m *MemoryStore) RoleScores(_ context.Context, role string, excludeSession uuid.UUID) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := m.roleResultsLocked(role, excludeSession, nil)
	scores := make([]int, 0, len(matches))
	for _, r := range matches {
		scores = append(scores, r.OverallScore)
	}
	return scores, nil
}

// AddResume stores resume text for a user and returns its ID
func (m *MemoryStore) AddResume(userID uuid.UUID, content string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.resumes[id] = memoryResume{userID: userID, content: content}
	return id
}

// GetResumeText implements interview.ResumeLookup
func (m *MemoryStore) GetResumeText(_ context.Context, userID, resumeID uuid.UUID) (*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resumes[resumeID]
	if !ok || r.userID != userID {
		return nil, nil
	}
	content := r.content
	return &content, nil
}

func (m *MemoryStore) updateLocked(s *types.InterviewSession) error {
	data, ok := m.sessions[s.ID]
	if !ok {
		return interview.ErrStoreConflict
	}
	var cur struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &cur); err != nil {
		return fmt.Errorf("failed to decode session: %w", err)
	}
	if cur.Version != s.Version {
		return interview.ErrStoreConflict
	}
	s.Version++
	if err := m.putLocked(s); err != nil {
		s.Version--
		return err
	}
	return nil
}

func (m *MemoryStore) putLocked(s *types.InterviewSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	m.sessions[s.ID] = data
	return nil
}

func (m *MemoryStore) roleResultsLocked(role string, excludeSession uuid.UUID, userID *uuid.UUID) []*types.InterviewResult {
	role = normalizeRole(role)
	var out []*types.InterviewResult
	for sessionID, r := range m.results {
		if sessionID == excludeSession || normalizeRole(r.TargetRole) != role {
			continue
		}
		if userID != nil && r.UserID != *userID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func copyResult(r *types.InterviewResult) *types.InterviewResult {
	data, err := json.Marshal(r)
	if err != nil {
		panic(err)
	}
	var out types.InterviewResult
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}
