package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/metrics"
	"github.com/jonathan/interview-coach/internal/report"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/jonathan/interview-coach/internal/usage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuestions struct{}

func (stubQuestions) Generate(_ context.Context, qc types.QuestionContext) (*types.GeneratedQuestion, error) {
	return &types.GeneratedQuestion{
		Text:       fmt.Sprintf("Question %d: how would you design a cache for %s?", qc.QuestionNumber, qc.Role),
		Type:       types.QuestionTechnical,
		Category:   "system design",
		Difficulty: qc.TargetDifficulty,
	}, nil
}

type stubEvaluator struct{}

func (stubEvaluator) Evaluate(context.Context, types.EvaluationContext) (*types.Evaluation, error) {
	return &types.Evaluation{
		Score: 72, Relevance: 70, TechnicalAccuracy: 75, Clarity: 70, Confidence: 68, RoleFit: 74,
		Strengths: []string{"structured"},
		Feedback:  "Solid answer.",
	}, nil
}

type stubTranscriber struct {
	mu       sync.Mutex
	mimeType string
}

func (t *stubTranscriber) Transcribe(_ context.Context, _ []byte, mimeType, _ string) (*types.Transcript, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mimeType = mimeType
	return &types.Transcript{Text: "I would put a read-through cache in front of the database.", DurationSeconds: 6, WordCount: 11}, nil
}

type testServer struct {
	handler     http.Handler
	jwt         *JWTService
	store       *db.MemoryStore
	transcriber *stubTranscriber
}

type testOptions struct {
	quotas  map[string]int
	limiter *ratelimit.Config
	health  func(context.Context) error
}

func setupTestServer(t *testing.T, opts testOptions) *testServer {
	t.Helper()
	store := db.NewMemoryStore()
	m := metrics.New(prometheus.NewRegistry())
	tr := &stubTranscriber{}

	engine, err := interview.New(interview.Options{
		Store:       store,
		Resumes:     store,
		Questions:   stubQuestions{},
		Evaluator:   stubEvaluator{},
		Transcriber: tr,
		Reporter:    report.NewAggregator(nil, store, nil, m),
		Gate:        interview.FixedGate(false),
		Metrics:     m,
	})
	require.NoError(t, err)

	counters := usage.NewMemoryCounterStore()
	var limiter *ratelimit.Limiter
	if opts.limiter != nil {
		limiter = ratelimit.NewLimiter(counters, opts.limiter)
	}

	jwtService := setupTestJWTService(t, 24)
	srv, err := New(Config{
		Engine:      engine,
		Gate:        usage.NewGate(counters, opts.quotas),
		RateLimiter: limiter,
		Tokens:      jwtService.AsTokenValidator(),
		Metrics:     m,
		Health:      opts.health,
	})
	require.NoError(t, err)

	return &testServer{handler: srv.Handler(), jwt: jwtService, store: store, transcriber: tr}
}

func (ts *testServer) token(t *testing.T, userID uuid.UUID, plan string) string {
	t.Helper()
	token, err := ts.jwt.GenerateToken(userID, plan)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createRequest() types.CreateSessionRequest {
	return types.CreateSessionRequest{
		InterviewType:   types.InterviewTechnical,
		TargetRole:      "Backend Engineer",
		ExperienceLevel: types.LevelMid,
		TotalQuestions:  5,
	}
}

func TestServer_FullTextInterview(t *testing.T) {
	ts := setupTestServer(t, testOptions{})
	token := ts.token(t, uuid.New(), "basic")

	w := ts.do(t, http.MethodPost, "/sessions", token, createRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decodeBody[types.InterviewSession](t, w)
	assert.Equal(t, types.StatusCreated, session.Status)
	assert.Equal(t, "standard", session.Config.ModelTier)
	base := "/sessions/" + session.ID.String()

	w = ts.do(t, http.MethodPost, base+"/start", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decodeBody[interview.Outcome](t, w)
	require.NotNil(t, out.NextQuestion)
	assert.Equal(t, 1, out.NextQuestion.Number)

	for n := 1; n <= 5; n++ {
		w = ts.do(t, http.MethodPost, fmt.Sprintf("%s/questions/%d/answer", base, n), token,
			types.SubmitAnswerRequest{Answer: "I would use an LRU cache with write-through invalidation."})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		out = decodeBody[interview.Outcome](t, w)
		require.NotNil(t, out.Evaluation)
		assert.Equal(t, 72, out.Evaluation.Score)
	}
	assert.True(t, out.Completed)
	require.NotNil(t, out.Result)

	w = ts.do(t, http.MethodGet, base+"/result", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeBody[types.InterviewResult](t, w)
	assert.Equal(t, session.ID, result.SessionID)
	assert.Equal(t, out.Result.OverallScore, result.OverallScore)

	w = ts.do(t, http.MethodGet, base, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.StatusCompleted, decodeBody[types.InterviewSession](t, w).Status)
}

func TestServer_Lifecycle(t *testing.T) {
	ts := setupTestServer(t, testOptions{})
	token := ts.token(t, uuid.New(), "pro")

	session := decodeBody[types.InterviewSession](t, ts.do(t, http.MethodPost, "/sessions", token, createRequest()))
	base := "/sessions/" + session.ID.String()
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/start", token, nil).Code)

	w := ts.do(t, http.MethodPost, base+"/pause", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.StatusPaused, decodeBody[types.InterviewSession](t, w).Status)

	// answering a paused session is an invalid state
	w = ts.do(t, http.MethodPost, base+"/questions/1/answer", token, types.SubmitAnswerRequest{Answer: "a long enough answer"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_state", decodeBody[ErrorResponse](t, w).Error)

	w = ts.do(t, http.MethodPost, base+"/resume", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, base+"/questions/1/skip", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decodeBody[interview.Outcome](t, w)
	require.NotNil(t, out.NextQuestion)
	assert.Equal(t, 2, out.NextQuestion.Number)

	w = ts.do(t, http.MethodPost, base+"/advance", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "advance with an open question")

	w = ts.do(t, http.MethodPost, base+"/abandon", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.StatusAbandoned, decodeBody[types.InterviewSession](t, w).Status)

	w = ts.do(t, http.MethodPost, base+"/complete", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestServer_VoiceAnswer(t *testing.T) {
	ts := setupTestServer(t, testOptions{})
	token := ts.token(t, uuid.New(), "")

	req := createRequest()
	req.AnswerMode = types.AnswerVoice
	session := decodeBody[types.InterviewSession](t, ts.do(t, http.MethodPost, "/sessions", token, req))
	base := "/sessions/" + session.ID.String()
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/start", token, nil).Code)

	r := httptest.NewRequest(http.MethodPost, base+"/questions/1/voice", bytes.NewReader([]byte("RIFF....WAVEfmt ")))
	r.Header.Set("Content-Type", "audio/webm")
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decodeBody[interview.Outcome](t, w)
	answered := out.Session.QuestionByNumber(1)
	require.NotNil(t, answered)
	assert.Equal(t, types.AnswerVoice, answered.AnswerMode)
	assert.Equal(t, 11, answered.WordCount)
	assert.Equal(t, "audio/webm", ts.transcriber.mimeType)

	// empty body never reaches the engine
	r = httptest.NewRequest(http.MethodPost, base+"/questions/2/voice", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Errors(t *testing.T) {
	ts := setupTestServer(t, testOptions{})
	owner := ts.token(t, uuid.New(), "basic")
	stranger := ts.token(t, uuid.New(), "basic")

	session := decodeBody[types.InterviewSession](t, ts.do(t, http.MethodPost, "/sessions", owner, createRequest()))
	base := "/sessions/" + session.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{name: "no token", method: http.MethodGet, path: base, status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "bad token", method: http.MethodGet, path: base, token: "nope", status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "bad session id", method: http.MethodGet, path: "/sessions/not-a-uuid", token: owner, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "other user's session", method: http.MethodGet, path: base, token: stranger, status: http.StatusNotFound, code: "resource_not_found"},
		{name: "unknown session", method: http.MethodGet, path: "/sessions/" + uuid.NewString(), token: owner, status: http.StatusNotFound, code: "resource_not_found"},
		{name: "bad question number", method: http.MethodPost, path: base + "/questions/zero/answer", token: owner, body: types.SubmitAnswerRequest{Answer: "x"}, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "answer before start", method: http.MethodPost, path: base + "/questions/1/answer", token: owner, body: types.SubmitAnswerRequest{Answer: "long enough answer text"}, status: http.StatusConflict, code: "invalid_state"},
		{name: "invalid config", method: http.MethodPost, path: "/sessions", token: owner, body: types.CreateSessionRequest{InterviewType: "quiz", TargetRole: "x"}, status: http.StatusBadRequest, code: "invalid_configuration"},
		{name: "result before completion", method: http.MethodGet, path: base + "/result", token: owner, status: http.StatusNotFound, code: "resource_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decodeBody[ErrorResponse](t, w).Error)
		})
	}
}

func TestServer_AnswerTooShort(t *testing.T) {
	ts := setupTestServer(t, testOptions{})
	token := ts.token(t, uuid.New(), "basic")

	session := decodeBody[types.InterviewSession](t, ts.do(t, http.MethodPost, "/sessions", token, createRequest()))
	base := "/sessions/" + session.ID.String()
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/start", token, nil).Code)

	w := ts.do(t, http.MethodPost, base+"/questions/1/answer", token, types.SubmitAnswerRequest{Answer: "  short  "})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "answer_too_short", decodeBody[ErrorResponse](t, w).Error)
}

func TestServer_QuotaExceeded(t *testing.T) {
	ts := setupTestServer(t, testOptions{quotas: map[string]int{"free": 1}})
	token := ts.token(t, uuid.New(), "free")

	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/sessions", token, createRequest()).Code)

	w := ts.do(t, http.MethodPost, "/sessions", token, createRequest())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "quota_exceeded", decodeBody[ErrorResponse](t, w).Error)
}

func TestServer_Usage(t *testing.T) {
	ts := setupTestServer(t, testOptions{quotas: map[string]int{"free": 3}})
	token := ts.token(t, uuid.New(), "free")

	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/sessions", token, createRequest()).Code)

	w := ts.do(t, http.MethodGet, "/usage", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	u := decodeBody[usage.Usage](t, w)
	assert.Equal(t, "free", u.Plan)
	assert.Equal(t, int64(1), u.Used)
	assert.Equal(t, 3, u.Limit)
	assert.Equal(t, int64(2), u.Remaining)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/usage", "", nil).Code)
}

func TestServer_FailedCreateDoesNotUseQuota(t *testing.T) {
	ts := setupTestServer(t, testOptions{quotas: map[string]int{"free": 1}})
	token := ts.token(t, uuid.New(), "free")

	bad := createRequest()
	bad.InterviewType = types.InterviewJobDescription
	require.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/sessions", token, bad).Code)

	assert.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/sessions", token, createRequest()).Code)
}

func TestServer_RateLimit(t *testing.T) {
	ts := setupTestServer(t, testOptions{limiter: &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  2,
		DefaultWindow: time.Hour,
	}})
	token := ts.token(t, uuid.New(), "basic")
	path := "/sessions/" + uuid.NewString()

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
	}

	w := ts.do(t, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// health is never limited
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "", nil).Code)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	healthy := true
	ts := setupTestServer(t, testOptions{health: func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("database unreachable")
	}})

	w := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	healthy = false
	w = ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total") || strings.Contains(w.Body.String(), "# HELP"))
}

func TestServer_CORSPreflight(t *testing.T) {
	ts := setupTestServer(t, testOptions{})

	w := ts.do(t, http.MethodOptions, "/sessions", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Engine: &interview.Engine{}})
	assert.Error(t, err)

	_, err = New(Config{Engine: &interview.Engine{}, Tokens: NewJWTService(&config.JWTConfig{Secret: "s", ExpirationHours: 1}).AsTokenValidator()})
	assert.NoError(t, err)
}
