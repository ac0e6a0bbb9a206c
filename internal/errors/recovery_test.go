package errors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	entries []entry
}

func (l *recordingLogger) Warn(msg string, fields ...map[string]interface{}) {
	l.entries = append(l.entries, entry{"warn", msg, fields[0]})
}

func (l *recordingLogger) Error(msg string, fields ...map[string]interface{}) {
	l.entries = append(l.entries, entry{"error", msg, fields[0]})
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := &recordingLogger{}
	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("snapshot missing")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/best", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, logger.entries, 1)
	assert.Equal(t, "snapshot missing", logger.entries[0].fields["error"])
	assert.Equal(t, "/api/v1/best", logger.entries[0].fields["path"])
	assert.NotEmpty(t, logger.entries[0].fields["stack"])
}

func TestRecoveryMiddlewarePassesThrough(t *testing.T) {
	logger := &recordingLogger{}
	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, logger.entries)
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, ""},
		{http.StatusNotFound, "warn"},
		{http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		logger := &recordingLogger{}
		h := ErrorHandler(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if tt.level == "" {
			assert.Empty(t, logger.entries)
			continue
		}
		require.Len(t, logger.entries, 1)
		assert.Equal(t, tt.level, logger.entries[0].level)
		assert.Equal(t, tt.status, logger.entries[0].fields["status"])
	}
}
