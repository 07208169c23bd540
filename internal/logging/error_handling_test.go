package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeClose(t *testing.T) {
	t.Run("closes response body safely with error logging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"code":"Ok"}`))
		}))
		defer server.Close()

		resp, err := http.Get(server.URL)
		require.NoError(t, err)

		SafeCloseWithLogging(resp.Body, logger, "osrm_response_body")
		assert.NotContains(t, buf.String(), `"level":"ERROR"`)
	})

	t.Run("logs error when close fails", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		SafeCloseWithLogging(&errorCloser{err: assert.AnError}, logger, "websocket_conn")

		output := buf.String()
		assert.Contains(t, output, `"level":"ERROR"`)
		assert.Contains(t, output, `"msg":"failed to close resource"`)
		assert.Contains(t, output, `"operation":"websocket_conn"`)
	})

	t.Run("ignores nil closer", func(t *testing.T) {
		var buf bytes.Buffer
		SafeCloseWithLogging(nil, NewStructuredLogger(&buf, slog.LevelInfo), "nothing")
		assert.Empty(t, buf.String())
	})
}

func TestHandleDeferredError(t *testing.T) {
	t.Run("handles deferred errors in return statements", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		testFunc := func() (err error) {
			defer HandleDeferredError(&err, func() error {
				return assert.AnError
			}, logger, "log_file_close")

			return nil
		}

		err := testFunc()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "log_file_close")
		assert.ErrorIs(t, err, assert.AnError)

		output := buf.String()
		assert.Contains(t, output, `"level":"ERROR"`)
		assert.Contains(t, output, `"msg":"deferred operation failed"`)
	})

	t.Run("preserves original error when deferred operation also fails", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		original := http.ErrServerClosed
		testFunc := func() (err error) {
			defer HandleDeferredError(&err, func() error {
				return assert.AnError
			}, logger, "server_shutdown")

			return original
		}

		err := testFunc()
		assert.Equal(t, original, err)
		assert.Contains(t, buf.String(), `"msg":"deferred operation failed"`)
	})
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	func() {
		defer Recover(logger, "websocket_reader")
		panic("boom")
	}()

	output := buf.String()
	assert.Contains(t, output, `"msg":"recovered from panic"`)
	assert.Contains(t, output, `"error":"boom"`)
	assert.Contains(t, output, `"operation":"websocket_reader"`)
}

type errorCloser struct {
	err error
}

func (e *errorCloser) Close() error {
	return e.err
}
