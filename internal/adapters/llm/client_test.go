package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatReply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model": "test-model",
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

func TestChatClient_Complete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)
		assert.Equal(t, "why?", req.Messages[1].Content)

		chatReply(w, `{"score":80}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/v1/", "test-model", WithAPIKey("secret"))
	resp, err := client.Complete(context.Background(), Request{
		Task: "estimate",
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "why?"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"score":80}`, resp.Text)
	assert.Equal(t, "test-model", resp.Model)
	assert.GreaterOrEqual(t, resp.LatencyMs, int64(0))
}

func TestChatClient_Complete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		chatReply(w, "late")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "m", WithTimeout(50*time.Millisecond))
	_, err := client.Complete(context.Background(), Request{Task: "estimate"})

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestChatClient_Complete_Unavailable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "m", WithMaxRetries(0), WithTimeout(2*time.Second))
	_, err := client.Complete(context.Background(), Request{Task: "estimate"})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChatClient_Complete_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "m", WithMaxRetries(1))
	_, err := client.Complete(context.Background(), Request{Task: "tutor"})

	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChatClient_Complete_RecoversOnRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "blip", http.StatusBadGateway)
			return
		}
		chatReply(w, "second time lucky")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "m")
	resp, err := client.Complete(context.Background(), Request{Task: "tutor"})

	require.NoError(t, err)
	assert.Equal(t, "second time lucky", resp.Text)
}

func TestChatClient_Complete_EmptyChoices(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "m", WithMaxRetries(3))
	_, err := client.Complete(context.Background(), Request{Task: "estimate"})

	assert.ErrorIs(t, err, ErrInvalidOutput)
	assert.Equal(t, int32(1), calls.Load(), "malformed output is not retried")
}
