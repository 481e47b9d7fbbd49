package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurseprep-hub/nurseprep-progression/internal/interface/http/handlers"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

func newTestServer(cfg Config) *Server {
	return NewServer(cfg, Dependencies{
		Logger:        logger.New(logger.Options{Output: io.Discard}),
		HealthChecker: handlers.NewNoopHealthChecker(),
	})
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.buildMiddlewareChain(s.router).ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthEndpoints(t *testing.T) {
	s := newTestServer(DefaultConfig())

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		rec := doRequest(s, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_ResponseEnvelope(t *testing.T) {
	s := newTestServer(DefaultConfig())

	rec := doRequest(s, http.MethodGet, "/live", "")

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Meta)
	assert.False(t, resp.Meta.Timestamp.IsZero())
}

func TestServer_RequestIDHeader(t *testing.T) {
	s := newTestServer(DefaultConfig())

	rec := doRequest(s, http.MethodGet, "/live", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec = httptest.NewRecorder()
	s.buildMiddlewareChain(s.router).ServeHTTP(rec, req)
	assert.Equal(t, "client-supplied", rec.Header().Get("X-Request-ID"))
}

func TestServer_UnconfiguredHandlersReturn501(t *testing.T) {
	s := newTestServer(DefaultConfig())

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/v1/sessions", `{"user_id":"user-1"}`},
		{http.MethodPost, "/api/v1/sessions/abc/attempts", `{"user_id":"user-1","question_id":"q1","time_ms":4000}`},
		{http.MethodPost, "/api/v1/sessions/abc/end", `{"user_id":"user-1"}`},
		{http.MethodPost, "/api/v1/users/user-1/daily-quest", ""},
		{http.MethodGet, "/api/v1/users/user-1/progress", ""},
		{http.MethodGet, "/api/v1/users/user-1/boost", ""},
		{http.MethodGet, "/api/v1/users/user-1/next-milestone", ""},
		{http.MethodGet, "/api/v1/leaderboard", ""},
	}

	for _, tt := range tests {
		rec := doRequest(s, tt.method, tt.path, tt.body)
		assert.Equal(t, http.StatusNotImplemented, rec.Code, tt.path)
	}
}

func TestServer_InvalidJSONBody(t *testing.T) {
	s := newTestServer(DefaultConfig())

	rec := doRequest(s, http.MethodPost, "/api/v1/sessions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_request", resp.Error.Code)
}

func TestServer_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	s := newTestServer(cfg)

	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/live", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/live", "").Code)

	rec := doRequest(s, http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl := newRateLimiter(2, 50*time.Millisecond)

	assert.True(t, rl.Allow("ip"))
	assert.True(t, rl.Allow("ip"))
	assert.False(t, rl.Allow("ip"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("ip"))
}

func TestConfig_Address(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 9000}
	assert.Equal(t, "127.0.0.1:9000", cfg.Address())
}
