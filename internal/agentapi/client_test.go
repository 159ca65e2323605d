package agentapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPAgent_PromptPollsUntilCompleted(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/agent/prompt":
			var req submitRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "what is the price of PEPE2", req.Prompt)
			json.NewEncoder(w).Encode(map[string]any{"success": true, "jobId": "job-1", "threadId": "th-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/agent/job/job-1":
			if atomic.AddInt32(&polls, 1) < 3 {
				json.NewEncoder(w).Encode(map[string]any{"status": "processing"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"status": "completed", "response": "PEPE2 is $2.10"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	agent := NewHTTPAgent(server.URL, "secret", "", 5*time.Millisecond, time.Second, zap.NewNop())
	resp, err := agent.Prompt(context.Background(), "what is the price of PEPE2", "")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "PEPE2 is $2.10", resp.Text)
	assert.Equal(t, "th-1", resp.ThreadID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&polls))
}

func TestHTTPAgent_FailedJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]any{"success": true, "jobId": "j"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "failed", "error": "insufficient balance"})
	}))
	defer server.Close()

	agent := NewHTTPAgent(server.URL, "", "", time.Millisecond, time.Second, zap.NewNop())
	_, err := agent.Prompt(context.Background(), "buy", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobFailed))
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestHTTPAgent_RateLimitStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	agent := NewHTTPAgent(server.URL, "", "", time.Millisecond, time.Second, zap.NewNop())
	_, err := agent.Prompt(context.Background(), "scan", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestHTTPAgent_JobTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]any{"success": true, "jobId": "slow"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "pending"})
	}))
	defer server.Close()

	agent := NewHTTPAgent(server.URL, "", "", 5*time.Millisecond, 30*time.Millisecond, zap.NewNop())
	_, err := agent.Prompt(context.Background(), "slow", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockAgent_RulesAndCalls(t *testing.T) {
	m := (&MockAgent{Default: "?"}).
		On("price of", "$1.00").
		OnError("sell", errors.New("market closed"))

	resp, err := m.Prompt(context.Background(), "What is the PRICE OF X", "")
	require.NoError(t, err)
	assert.Equal(t, "$1.00", resp.Text)

	_, err = m.Prompt(context.Background(), "sell all X", "")
	assert.EqualError(t, err, "market closed")

	resp, _ = m.Prompt(context.Background(), "hello", "")
	assert.Equal(t, "?", resp.Text)
	assert.Len(t, m.Calls(), 3)
	assert.Len(t, m.CallsMatching("sell"), 1)
}
