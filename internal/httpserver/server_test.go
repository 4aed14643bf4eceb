package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/deadlinebot/internal/logger"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRoot(t *testing.T) {
	t.Parallel()

	code, body := get(t, New(":0", fakePinger{}, logger.Discard()).Handler(), "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "deadline bot is running", body)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		pinger Pinger
		code   int
		body   string
	}{
		"healthy":   {fakePinger{}, http.StatusOK, `{"status":"ok"}`},
		"db down":   {fakePinger{err: errors.New("database is locked")}, http.StatusServiceUnavailable, `{"status":"unavailable"}`},
		"no pinger": {nil, http.StatusOK, `{"status":"ok"}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			code, body := get(t, New(":0", tt.pinger, logger.Discard()).Handler(), "/healthz")
			assert.Equal(t, tt.code, code)
			assert.JSONEq(t, tt.body, body)
		})
	}
}

func TestUnknownPath(t *testing.T) {
	t.Parallel()

	code, _ := get(t, New(":0", nil, logger.Discard()).Handler(), "/missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New("127.0.0.1:0", nil, logger.Discard()).Run(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}
