package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/server/middleware"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/jonathan/interview-coach/internal/usage"
	"github.com/jonathan/interview-coach/internal/voice"
	"go.uber.org/zap"
)

// maxJSONBody bounds JSON request bodies; job descriptions dominate
const maxJSONBody = 1 << 20

// handleCreateSession checks the caller's quota and creates a session
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req types.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	req.Plan = middleware.GetPlan(r)

	if s.gate != nil {
		if err := s.gate.Allow(r.Context(), userID, req.Plan); err != nil {
			s.errorResponse(w, r, err)
			return
		}
	}

	session, err := s.engine.Create(r.Context(), userID, req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	if s.gate != nil {
		if err := s.gate.Record(r.Context(), userID); err != nil {
			s.logger.Warn("failed to record session usage",
				zap.String("session_id", session.ID.String()),
				zap.Error(err))
		}
	}
	s.jsonResponse(w, http.StatusCreated, session)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if s.gate == nil {
		s.jsonResponse(w, http.StatusOK, usage.Usage{Plan: middleware.GetPlan(r), Limit: usage.Unlimited, Remaining: usage.Unlimited})
		return
	}
	u, err := s.gate.Usage(r.Context(), userID, middleware.GetPlan(r))
	s.respond(w, r, u, err)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	session, err := s.engine.Get(r.Context(), userID, sessionID)
	s.respond(w, r, session, err)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	out, err := s.engine.Start(r.Context(), userID, sessionID)
	s.respond(w, r, out, err)
}

// handleSubmitAnswer accepts a JSON text answer
func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	number, ok := s.questionNumber(w, r)
	if !ok {
		return
	}

	var req types.SubmitAnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, r, &ErrValidation{Field: "answer", Message: err.Error()})
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = types.AnswerText
	}
	out, err := s.engine.SubmitAnswer(r.Context(), userID, sessionID, number, req.Answer, mode)
	s.respond(w, r, out, err)
}

// handleSubmitVoiceAnswer accepts the raw audio as the request body. The
// Content-Type header names the audio format.
func (s *Server) handleSubmitVoiceAnswer(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	number, ok := s.questionNumber(w, r)
	if !ok {
		return
	}

	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, voice.MaxAudioBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, r, &ErrValidation{Field: "audio", Message: "audio exceeds the maximum size"})
			return
		}
		s.errorResponse(w, r, &ErrValidation{Field: "audio", Message: "failed to read audio body"})
		return
	}
	if len(audio) == 0 {
		s.errorResponse(w, r, &ErrValidation{Field: "audio", Message: "audio body is empty"})
		return
	}

	out, err := s.engine.SubmitVoiceAnswer(r.Context(), userID, sessionID, number, audio, r.Header.Get("Content-Type"))
	s.respond(w, r, out, err)
}

func (s *Server) handleSkipQuestion(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	number, ok := s.questionNumber(w, r)
	if !ok {
		return
	}
	out, err := s.engine.Skip(r.Context(), userID, sessionID, number)
	s.respond(w, r, out, err)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	out, err := s.engine.Advance(r.Context(), userID, sessionID)
	s.respond(w, r, out, err)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	session, err := s.engine.Pause(r.Context(), userID, sessionID)
	s.respond(w, r, session, err)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	session, err := s.engine.Resume(r.Context(), userID, sessionID)
	s.respond(w, r, session, err)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	session, err := s.engine.Abandon(r.Context(), userID, sessionID)
	s.respond(w, r, session, err)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	result, err := s.engine.Complete(r.Context(), userID, sessionID)
	s.respond(w, r, result, err)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	result, err := s.engine.Result(r.Context(), userID, sessionID)
	s.respond(w, r, result, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, data)
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.jsonResponse(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return uuid.Nil, false
	}
	return userID, true
}

func (s *Server) sessionParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := s.userID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, &ErrValidation{Field: "id", Message: "session id must be a UUID"})
		return uuid.Nil, uuid.Nil, false
	}
	return userID, sessionID, true
}

func (s *Server) questionNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 {
		s.errorResponse(w, r, &ErrValidation{Field: "n", Message: "question number must be a positive integer"})
		return 0, false
	}
	return n, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid request body: " + err.Error()}
	}
	return nil
}
