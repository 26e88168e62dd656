package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/metrics"
	"github.com/mroshb/friend_calendar/internal/middleware"
	"github.com/mroshb/friend_calendar/internal/repositories"
	"github.com/mroshb/friend_calendar/internal/security"
	"github.com/mroshb/friend_calendar/internal/services"
	"github.com/mroshb/friend_calendar/internal/sheets"
	"github.com/mroshb/friend_calendar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	t      *testing.T
	router *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.NewDB(t)

	userRepo := repositories.NewUserRepository(db)
	friendRepo := repositories.NewFriendRepository(db)
	calendarRepo := repositories.NewCalendarRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	scoreRepo := repositories.NewScoreRepository(db)
	m := metrics.New()
	settings := services.DefaultSettings()

	limiter := middleware.NewRateLimiter(1000, 1000, time.Minute)
	t.Cleanup(limiter.Stop)

	h := NewHandlerManager(
		services.NewAuthService(userRepo, security.NewTokenIssuer(testSecret, time.Hour), nil),
		services.NewFriendService(friendRepo, userRepo, nil, m),
		services.NewCalendarService(calendarRepo, eventRepo, friendRepo, userRepo, nil, m),
		services.NewEventService(eventRepo, calendarRepo, friendRepo, settings),
		services.NewGamificationService(scoreRepo, eventRepo, calendarRepo, userRepo, friendRepo, nil, settings, m),
		m,
		limiter,
	)
	return &server{t: t, router: NewRouter(h)}
}

func (s *server) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// register signs up username and returns its token and id.
func (s *server) register(username string) (string, uint) {
	s.t.Helper()
	rec := s.do("POST", "/api/auth/register", "", gin.H{"username": username, "password": "secret123"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	decodeInto(s.t, rec, &out)
	return out.Token, out.User.ID
}

func (s *server) befriend(tokenA, tokenB string, idB uint) {
	s.t.Helper()
	rec := s.do("POST", "/api/friends/requests", tokenA, gin.H{"userId": idB})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var req struct {
		ID uint `json:"id"`
	}
	decodeInto(s.t, rec, &req)

	rec = s.do("POST", fmt.Sprintf("/api/friends/requests/%d/accept", req.ID), tokenB, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	decodeInto(t, rec, &body)
	return body
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	rec := s.do("GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.do("GET", "/api/users/me", "", nil)
	rec = s.do("GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_request_duration_seconds")
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)
	token, id := s.register("alice")

	rec := s.do("POST", "/api/auth/register", "", gin.H{"username": "alice", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_EXISTS", errorBody(t, rec)["code"])

	rec = s.do("POST", "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do("POST", "/api/auth/login", "", gin.H{"username": "alice", "password": "secret123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do("GET", "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]interface{}
	decodeInto(t, rec, &me)
	assert.Equal(t, float64(id), me["id"])
	assert.NotContains(t, me, "passwordHash")

	rec = s.do("PUT", "/api/users/me", token, gin.H{"bio": "<b>hi</b> there"})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &me)
	assert.Equal(t, "hi there", me["bio"])

	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/users/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/users/me", "garbage", nil).Code)
}

func TestBadInput(t *testing.T) {
	s := newServer(t)
	token, _ := s.register("alice")

	req := httptest.NewRequest("POST", "/api/events", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorBody(t, rec)["code"])

	rec = s.do("PUT", "/api/events/abc", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec)["fields"], "id")

	rec = s.do("POST", "/api/events", token, gin.H{"title": "Late", "date": "2024-05-15", "time": "25:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec)["fields"], "time")

	rec = s.do("POST", "/api/events", token, gin.H{"title": "Late", "date": "2024-05-15", "time": "23:59"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do("GET", "/api/events/1/occurrences?from=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do("GET", "/api/gamification/history?limit=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do("DELETE", "/api/events/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFriendsAndSharing(t *testing.T) {
	s := newServer(t)
	alice, _ := s.register("alice")
	bob, bobID := s.register("bob")
	_, carolID := s.register("carol")

	s.befriend(alice, bob, bobID)

	rec := s.do("GET", "/api/friends", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var friends []map[string]interface{}
	decodeInto(t, rec, &friends)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0]["username"])

	rec = s.do("GET", "/api/friends/search?q=car", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found []map[string]interface{}
	decodeInto(t, rec, &found)
	require.Len(t, found, 1)
	assert.Equal(t, "none", found[0]["relationship"])

	rec = s.do("POST", "/api/calendars", alice, gin.H{"name": "Work"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var cal struct {
		ID uint `json:"id"`
	}
	decodeInto(t, rec, &cal)

	rec = s.do("POST", fmt.Sprintf("/api/calendars/%d/share", cal.ID), alice,
		gin.H{"userIds": []uint{bobID, carolID, 9999}, "permission": "view"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result services.ShareResult
	decodeInto(t, rec, &result)
	assert.Equal(t, []uint{bobID}, result.Shared)
	assert.Equal(t, []uint{carolID}, result.NotFriends)
	assert.Equal(t, []uint{9999}, result.NotFound)

	rec = s.do("POST", fmt.Sprintf("/api/calendars/%d/share", cal.ID), alice,
		gin.H{"userIds": []uint{bobID}, "permission": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do("GET", "/api/calendars", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list services.CalendarList
	decodeInto(t, rec, &list)
	require.Len(t, list.Shared, 1)
	assert.Equal(t, "view", list.Shared[0].Permission)

	rec = s.do("GET", fmt.Sprintf("/api/calendars/%d/sharing", cal.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do("DELETE", fmt.Sprintf("/api/calendars/%d/share/%d", cal.ID, bobID), alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do("GET", fmt.Sprintf("/api/calendars/%d/sharing", cal.ID), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail services.SharingDetail
	decodeInto(t, rec, &detail)
	assert.Empty(t, detail.SharedWith)

	rec = s.do("DELETE", fmt.Sprintf("/api/friends/%d", bobID), alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do("DELETE", fmt.Sprintf("/api/friends/%d", bobID), alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFriendRequestEndpoints(t *testing.T) {
	s := newServer(t)
	alice, aliceID := s.register("alice")
	bob, bobID := s.register("bob")

	rec := s.do("POST", "/api/friends/requests", alice, gin.H{"userId": bobID})
	require.Equal(t, http.StatusCreated, rec.Code)
	var req struct {
		ID uint `json:"id"`
	}
	decodeInto(t, rec, &req)

	rec = s.do("POST", "/api/friends/requests", bob, gin.H{"userId": aliceID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DUPLICATE_REQUEST", errorBody(t, rec)["code"])

	rec = s.do("GET", "/api/friends/requests/incoming", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var incoming []services.RequestView
	decodeInto(t, rec, &incoming)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].User.Username)

	rec = s.do("GET", "/api/friends/requests/outgoing", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do("POST", fmt.Sprintf("/api/friends/requests/%d/accept", req.ID), alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do("POST", fmt.Sprintf("/api/friends/requests/%d/reject", req.ID), bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do("DELETE", fmt.Sprintf("/api/friends/requests/%d", req.ID), alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_PROCESSED", errorBody(t, rec)["code"])
}

func TestEventsAndGamification(t *testing.T) {
	s := newServer(t)
	alice, _ := s.register("alice")
	bob, bobID := s.register("bob")
	s.befriend(alice, bob, bobID)

	today := time.Now().UTC().Format("2006-01-02")
	rec := s.do("POST", "/api/events", alice, gin.H{
		"title":      "Run",
		"date":       today,
		"recurrence": gin.H{"frequency": "daily"},
		"sharedWith": []uint{bobID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var event services.EventView
	decodeInto(t, rec, &event)
	assert.Equal(t, []uint{bobID}, event.SharedWith)

	rec = s.do("GET", "/api/events/shared", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var shared []services.EventView
	decodeInto(t, rec, &shared)
	require.Len(t, shared, 1)
	require.NotNil(t, shared[0].Owner)
	assert.Equal(t, "alice", shared[0].Owner.Username)

	rec = s.do("GET", fmt.Sprintf("/api/events/%d/occurrences?from=%s&to=%s", event.ID, today, today), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var occ services.OccurrenceList
	decodeInto(t, rec, &occ)
	assert.Equal(t, []string{today}, occ.Dates)

	rec = s.do("PUT", fmt.Sprintf("/api/events/%d", event.ID), alice, gin.H{"title": "Morning run"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do("POST", fmt.Sprintf("/api/events/%d/complete", event.ID), bob, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var done services.CompletionResult
	decodeInto(t, rec, &done)
	assert.True(t, done.Completed)
	assert.Equal(t, int64(10), done.PointsAwarded)

	rec = s.do("POST", fmt.Sprintf("/api/events/%d/uncomplete", event.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do("GET", "/api/gamification/leaderboard", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var board []services.LeaderboardEntry
	decodeInto(t, rec, &board)
	require.Len(t, board, 2)
	assert.Equal(t, "bob", board[0].User.Username)
	assert.Equal(t, 1, board[0].Rank)

	rec = s.do("GET", "/api/gamification/history?limit=5", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]interface{}
	decodeInto(t, rec, &history)
	assert.Len(t, history, 1)

	rec = s.do("POST", fmt.Sprintf("/api/events/%d/uncomplete", event.ID), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do("GET", "/api/gamification/stats", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats services.Stats
	decodeInto(t, rec, &stats)
	assert.Equal(t, int64(0), stats.WeeklyPoints)
	assert.Equal(t, int64(0), stats.LifetimePoints)

	rec = s.do("DELETE", fmt.Sprintf("/api/events/%d", event.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do("DELETE", fmt.Sprintf("/api/events/%d", event.ID), alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExportEvents(t *testing.T) {
	s := newServer(t)
	alice, _ := s.register("alice")

	rec := s.do("POST", "/api/events", alice, gin.H{"title": "Dentist", "date": "2024-06-01", "time": "09:30"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do("GET", "/api/events/export", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	rows, err := sheets.ReadEvents(rec.Body)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dentist", rows[0].Title)
	assert.Equal(t, "2024-06-01", rows[0].Date)
	assert.Equal(t, "09:30", rows[0].Time)
}

func TestRateLimitedRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	userRepo := repositories.NewUserRepository(db)
	limiter := middleware.NewRateLimiter(1, 2, time.Minute)
	t.Cleanup(limiter.Stop)

	h := &HandlerManager{
		AuthSvc: services.NewAuthService(userRepo, security.NewTokenIssuer(testSecret, time.Hour), nil),
		Metrics: metrics.New(),
		Limiter: limiter,
	}
	s := &server{t: t, router: NewRouter(h)}

	body := gin.H{"username": "nobody", "password": "whatever"}
	assert.Equal(t, http.StatusUnauthorized, s.do("POST", "/api/auth/login", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do("POST", "/api/auth/login", "", body).Code)
	rec := s.do("POST", "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}
