package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/metrics"
	"github.com/mroshb/friend_calendar/internal/security"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"github.com/mroshb/friend_calendar/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuth struct {
	principals map[string]*security.Principal
	err        error
}

func (s stubAuth) Authenticate(_ context.Context, token string) (*security.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.principals[token]; ok {
		return p, nil
	}
	return nil, errors.New(errors.ErrCodeUnauthorized, "bad token")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuth(t *testing.T) {
	auth := stubAuth{principals: map[string]*security.Principal{"good": {UserID: 7, Username: "alice"}}}

	r := gin.New()
	r.Use(Auth(auth))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(200, gin.H{"id": MustPrincipal(c).UserID})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"extra parts", "Bearer good extra", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"good", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			if tt.status == http.StatusOK {
				assert.Equal(t, 7.0, body["id"])
			} else {
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

func TestAuth_StoreFailureIsInternal(t *testing.T) {
	r := gin.New()
	r.Use(Auth(stubAuth{err: errors.New(errors.ErrCodeInternalError, "db down")}))
	r.GET("/me", func(c *gin.Context) { c.Status(200) })

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec)["message"])
}

func TestRateLimiter_Windows(t *testing.T) {
	rl := NewRateLimiter(2, 1, time.Minute)
	defer rl.Stop()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.CheckUserLimit(1))
	assert.True(t, rl.CheckUserLimit(1))
	assert.False(t, rl.CheckUserLimit(1))
	assert.Equal(t, 0, rl.GetUserRemaining(1))
	assert.True(t, rl.CheckUserLimit(2), "limits are per user")

	assert.True(t, rl.CheckIPLimit("10.0.0.1"))
	assert.False(t, rl.CheckIPLimit("10.0.0.1"))

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.CheckUserLimit(1))
	assert.Equal(t, 1, rl.GetUserRemaining(1))
	assert.Equal(t, 1, rl.GetIPRemaining("10.0.0.1"))

	rl.Reset()
	assert.Equal(t, 2, rl.GetUserRemaining(1))
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	defer rl.Stop()
	auth := stubAuth{principals: map[string]*security.Principal{"good": {UserID: 1}}}

	r := gin.New()
	r.GET("/public", rl.Middleware(), func(c *gin.Context) { c.Status(200) })
	r.GET("/private", Auth(auth), rl.Middleware(), func(c *gin.Context) { c.Status(200) })

	serve := func(path string, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, 200, serve("/public", "").Code)
	limited := serve("/public", "")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decode(t, limited)["code"])

	// The authenticated budget is separate from the IP budget.
	assert.Equal(t, 200, serve("/private", "good").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve("/private", "good").Code)
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), AccessLog(metrics.New()), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(204) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "internal server error", decode(t, rec)["message"])

	req := httptest.NewRequest("GET", "/ok", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	auth := stubAuth{principals: map[string]*security.Principal{"good": {UserID: 7}}}
	r := gin.New()
	r.Use(RequestID(), AccessLog(nil))
	r.GET("/me", Auth(auth), func(c *gin.Context) { c.Status(200) })

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("X-Request-ID", "req-42")
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "/me", fields["path"])
	assert.EqualValues(t, 7, fields["user_id"])
}
