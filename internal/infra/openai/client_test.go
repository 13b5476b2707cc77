package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ai-tutor/internal/core/tutor"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestChatClientComplete(t *testing.T) {
	var req chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "Two plus two is four."}
			}]
		}`))
	}))
	defer srv.Close()

	client, err := NewChatClient("test-key", WithChatBaseURL(srv.URL), WithTemperature(0.2))
	require.NoError(t, err)

	answer, err := client.Complete(context.Background(), []tutor.Message{
		{Role: tutor.MessageRoleSystem, Content: "persona"},
		{Role: tutor.MessageRoleUser, Content: "Hello"},
		{Role: tutor.MessageRoleAssistant, Content: "Hi"},
		{Role: tutor.MessageRoleUser, Content: "What is 2+2?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Two plus two is four.", answer)

	assert.Equal(t, DefaultModel, req.Model)
	assert.InDelta(t, 0.2, req.Temperature, 1e-9)
	require.Len(t, req.Messages, 4)
	roles := make([]string, len(req.Messages))
	for i, m := range req.Messages {
		roles[i] = m.Role
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, "What is 2+2?", req.Messages[3].Content)
}

func TestChatClientDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down"}}`))
	}))
	defer srv.Close()

	client, err := NewChatClient("test-key", WithChatBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []tutor.Message{{Role: tutor.MessageRoleUser, Content: "hi"}})
	assert.Error(t, err)
	assert.True(t, isRateLimitError(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestChatClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	}))
	defer srv.Close()

	client, err := NewChatClient("test-key", WithChatBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []tutor.Message{{Role: tutor.MessageRoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestNewChatClientRequiresAPIKey(t *testing.T) {
	_, err := NewChatClient("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}
