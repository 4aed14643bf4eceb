package ai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *openAIClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient(OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1",
		TextModel:   "gpt-test",
		ImageModel:  "dall-e-3",
		Instruction: "be brief",
		Timeout:     5 * time.Second,
	}, discardLogger())
	require.NoError(t, err)

	client := c.(*openAIClient)
	client.retryDelay = time.Millisecond
	return client
}

func writeChat(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-test",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
}

func TestOpenAIComplete(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeChat(w, "  forty-two \n")
	})

	answer, err := client.Complete(context.Background(), "meaning of life?")
	require.NoError(t, err)
	assert.Equal(t, "forty-two", answer)

	assert.Equal(t, "gpt-test", gotBody["model"])
	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "meaning of life?", messages[1].(map[string]any)["content"])
}

func TestOpenAITranslateUsesTargetLanguage(t *testing.T) {
	t.Parallel()

	var system string
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.NotEmpty(t, body.Messages) {
			system = body.Messages[0].Content
		}
		writeChat(w, "Guten Morgen")
	})

	got, err := client.Translate(context.Background(), "German", "good morning")
	require.NoError(t, err)
	assert.Equal(t, "Guten Morgen", got)
	assert.Contains(t, system, "German")
}

func TestOpenAIEmptyAnswer(t *testing.T) {
	t.Parallel()

	client := newTestOpenAIClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeChat(w, "   ")
	})

	_, err := client.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}
		writeChat(w, "ok")
	})

	got, err := client.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad prompt","type":"invalid_request_error"}}`)
	})

	_, err := client.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIGenerateImage(t *testing.T) {
	t.Parallel()

	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":1,"data":[{"url":"https://images.example/cat.png"}]}`)
	})

	img, err := client.GenerateImage(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, "https://images.example/cat.png", img.URL)
	assert.Empty(t, img.Data)
}

func TestOpenAIGenerateImageBase64(t *testing.T) {
	t.Parallel()

	client := newTestOpenAIClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":1,"data":[{"b64_json":"aGVsbG8="}]}`)
	})

	img, err := client.GenerateImage(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIClient(OpenAIConfig{}, nil)
	assert.Error(t, err)
}
