package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/conduit/internal/apperror"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func writeStatus(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, apperror.ErrTooManyRequests) {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestLogger_RecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":{}}`))
	})
	h := chimiddleware.RequestID(Logger(logger)(notFound))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/articles/missing", nil))

	line := buf.String()
	assert.Contains(t, line, "level=WARN")
	assert.Contains(t, line, "status=404")
	assert.Contains(t, line, "path=/api/articles/missing")
	assert.Contains(t, line, "bytes=13")
	assert.Contains(t, line, "request_id=")
}

func TestLogger_DefaultsTo200(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	Logger(logger)(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tags", nil))

	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "status=200")
	assert.False(t, strings.Contains(buf.String(), "request_id="))
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, writeStatus, discardLogger())
	h := rl.Handler(okHandler)

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1:3333"), "same IP, different port shares a bucket")

	assert.Equal(t, http.StatusOK, hit("10.0.0.2:1111"), "other clients are unaffected")
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, writeStatus, discardLogger())
	h := rl.Handler(okHandler)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, writeStatus, discardLogger())
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.getLimiter("old")
	clock = clock.Add(10 * time.Minute)
	rl.getLimiter("fresh")

	assert.Equal(t, 1, rl.Cleanup(5*time.Minute))
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "fresh")
}
