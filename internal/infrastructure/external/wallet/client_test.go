package wallet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

func newTestClient(baseURL string) *Client {
	cfg := DefaultClientConfig(baseURL)
	cfg.APIKey = "test-key"
	cfg.Timeout = 2 * time.Second
	return NewClient(cfg, logger.New(logger.Options{Output: io.Discard}))
}

func TestClient_AddHints_Success(t *testing.T) {
	var requests int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/wallets/user-1/credits", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req creditRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req.UserID)
		assert.Equal(t, 3, req.Hints)
		assert.Equal(t, "milestone-reward", req.Reason)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(creditResponse{Balance: 5})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	err := client.AddHints(context.Background(), "user-1", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestClient_AddHints_ValidatesInput(t *testing.T) {
	client := newTestClient("http://localhost:0")

	err := client.AddHints(context.Background(), "", 3)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	err = client.AddHints(context.Background(), "user-1", 0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestClient_AddHints_RejectionIsNotRetried(t *testing.T) {
	var requests int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"wallet frozen"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	err := client.AddHints(context.Background(), "user-1", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests), "4xx must not be retried")
}

func TestClient_AddHints_ServerErrorIsRetried(t *testing.T) {
	var requests int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	err := client.AddHints(context.Background(), "user-1", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests), "5xx is retried up to the attempt limit")
}

func TestClient_AddHints_RecoversAfterTransientFailure(t *testing.T) {
	var requests int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(creditResponse{Balance: 7})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	err := client.AddHints(context.Background(), "user-1", 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}
