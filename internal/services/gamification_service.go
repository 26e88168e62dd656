package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mroshb/friend_calendar/internal/metrics"
	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/internal/repositories"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"github.com/mroshb/friend_calendar/pkg/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type CompletionResult struct {
	EventID          uint   `json:"eventId"`
	Completed        bool   `json:"completed"`
	PointsAwarded    int64  `json:"pointsAwarded"`
	PointsReverted   int64  `json:"pointsReverted,omitempty"`
	AlreadyCompleted bool   `json:"alreadyCompleted,omitempty"`
	Stats            *Stats `json:"stats,omitempty"`
}

type Stats struct {
	WeeklyPoints        int64      `json:"weeklyPoints"`
	LifetimePoints      int64      `json:"lifetimePoints"`
	WeekStartDate       time.Time  `json:"weekStartDate"`
	CurrentStreak       int        `json:"currentStreak"`
	LastCompletionDate  *time.Time `json:"lastCompletionDate,omitempty"`
	DailyTasksCompleted int        `json:"dailyTasksCompleted"`
	DailyTaskLimit      int        `json:"dailyTaskLimit"`
}

type LeaderboardEntry struct {
	Rank         int                `json:"rank"`
	User         models.UserSummary `json:"user"`
	WeeklyPoints int64              `json:"weeklyPoints"`
	IsSelf       bool               `json:"isSelf"`
}

type GamificationService struct {
	scoreRepo    *repositories.ScoreRepository
	eventRepo    *repositories.EventRepository
	calendarRepo *repositories.CalendarRepository
	userRepo     *repositories.UserRepository
	friendRepo   *repositories.FriendRepository
	rule         EligibilityRule
	settings     Settings
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewGamificationService wires the scorer. A nil rule uses WindowRule.
func NewGamificationService(
	scoreRepo *repositories.ScoreRepository,
	eventRepo *repositories.EventRepository,
	calendarRepo *repositories.CalendarRepository,
	userRepo *repositories.UserRepository,
	friendRepo *repositories.FriendRepository,
	rule EligibilityRule,
	settings Settings,
	m *metrics.Metrics,
) *GamificationService {
	if rule == nil {
		rule = NewWindowRule(settings)
	}
	return &GamificationService{
		scoreRepo:    scoreRepo,
		eventRepo:    eventRepo,
		calendarRepo: calendarRepo,
		userRepo:     userRepo,
		friendRepo:   friendRepo,
		rule:         rule,
		settings:     settings,
		metrics:      m,
		now:          time.Now,
	}
}

// Complete marks an event done for actorID and awards points when the
// eligibility rule allows. Completing twice is a no-op.
func (s *GamificationService) Complete(ctx context.Context, actorID, eventID uint) (*CompletionResult, error) {
	event, calendar, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !canComplete(event, calendar, actorID) {
		return nil, errors.New(errors.ErrCodeForbidden, "you cannot complete this event")
	}

	now := s.now()
	today := s.settings.today(now)
	weekStart := s.settings.weekStart(now)
	result := &CompletionResult{EventID: eventID, Completed: true}

	_, user, err := s.scoreRepo.CompleteEvent(ctx, eventID, actorID, func(e *models.Event, u *models.User) (*repositories.ScoreChange, error) {
		rollWeek(u, weekStart)
		if e.Completed {
			result.AlreadyCompleted = true
			return nil, nil
		}
		rollDay(u, today)

		var points int64
		if s.rule.Eligible(e, u, today) {
			points = s.settings.PointsPerTask
			u.WeeklyPoints += points
			u.LifetimePoints += points
			u.DailyTasksCount++
			bumpStreak(u, today)
		}

		completedAt := now.UTC()
		e.Completed = true
		e.CompletedAt = &completedAt
		e.CompletedByID = &u.ID
		e.PointsAwarded = points
		result.PointsAwarded = points

		return &repositories.ScoreChange{
			Amount:          points,
			TransactionType: models.TxTypeTaskCompleted,
			Description:     fmt.Sprintf("Completed %q", e.Title),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PointsAwarded(result.PointsAwarded)
	if result.PointsAwarded > 0 {
		logger.Info("Points awarded", "user_id", actorID, "event_id", eventID, "points", result.PointsAwarded)
	}
	result.Stats = s.statsOf(user, today)
	return result, nil
}

// Uncomplete reverses a completion. Only the calendar owner, or the event
// owner for events outside a calendar, may do this. Points come back off
// the user who earned them, never below zero.
func (s *GamificationService) Uncomplete(ctx context.Context, actorID, eventID uint) (*CompletionResult, error) {
	event, calendar, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	owner := event.OwnerID
	if calendar != nil {
		owner = calendar.OwnerID
	}
	if actorID != owner {
		return nil, errors.New(errors.ErrCodeForbidden, "only the owner can uncomplete this event")
	}
	if !event.Completed {
		return nil, errors.New(errors.ErrCodeNotComplete, "event is not completed")
	}

	now := s.now()
	today := s.settings.today(now)
	weekStart := s.settings.weekStart(now)
	var reverted int64

	_, _, err = s.scoreRepo.RevertEvent(ctx, eventID, func(e *models.Event, u *models.User) (*repositories.ScoreChange, error) {
		rollWeek(u, weekStart)
		points := e.PointsAwarded

		// A completion from a past week no longer counts toward this week.
		if e.CompletedAt == nil || !s.settings.today(*e.CompletedAt).Before(weekStart) {
			u.WeeklyPoints = floor(u.WeeklyPoints - points)
		}
		reverted = u.LifetimePoints - floor(u.LifetimePoints-points)
		u.LifetimePoints -= reverted

		if points > 0 && e.CompletedAt != nil && u.DailyTasksDate != nil &&
			u.DailyTasksDate.Equal(s.settings.today(*e.CompletedAt)) && u.DailyTasksDate.Equal(today) && u.DailyTasksCount > 0 {
			u.DailyTasksCount--
		}

		e.Completed = false
		e.CompletedAt = nil
		e.CompletedByID = nil
		e.PointsAwarded = 0

		return &repositories.ScoreChange{
			Amount:          -reverted,
			TransactionType: models.TxTypeTaskReverted,
			Description:     fmt.Sprintf("Uncompleted %q", e.Title),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PointsReverted(reverted)
	return &CompletionResult{EventID: eventID, Completed: false, PointsReverted: reverted}, nil
}

// load fetches the event and, when it has one, its calendar. A dangling
// calendar reference reads as not found.
func (s *GamificationService) load(ctx context.Context, eventID uint) (*models.Event, *models.Calendar, error) {
	event, err := s.eventRepo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if event.CalendarID == nil {
		return event, nil, nil
	}
	calendar, err := s.calendarRepo.GetCalendarByID(ctx, *event.CalendarID)
	if err != nil {
		return nil, nil, err
	}
	return event, calendar, nil
}

func canComplete(event *models.Event, calendar *models.Calendar, userID uint) bool {
	if event.OwnerID == userID || event.IsSharedWith(userID) {
		return true
	}
	return calendar != nil && calendar.CanView(userID)
}

// Stats returns the caller's score, persisting a weekly rollover.
func (s *GamificationService) Stats(ctx context.Context, userID uint) (*Stats, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if rollWeek(user, s.settings.weekStart(now)) {
		if err := s.userRepo.UpdateScore(ctx, user); err != nil {
			return nil, err
		}
	}
	return s.statsOf(user, s.settings.today(now)), nil
}

func (s *GamificationService) statsOf(u *models.User, today time.Time) *Stats {
	stats := &Stats{
		WeeklyPoints:       u.WeeklyPoints,
		LifetimePoints:     u.LifetimePoints,
		WeekStartDate:      u.WeekStartDate,
		CurrentStreak:      u.CurrentStreak,
		LastCompletionDate: u.LastCompletionDate,
		DailyTaskLimit:     s.settings.DailyTaskLimit,
	}
	if u.DailyTasksDate != nil && u.DailyTasksDate.Equal(today) {
		stats.DailyTasksCompleted = u.DailyTasksCount
	}
	// A streak is broken once a full day passes without a completion.
	if u.LastCompletionDate == nil || u.LastCompletionDate.Before(today.AddDate(0, 0, -1)) {
		stats.CurrentStreak = 0
	}
	return stats
}

// Leaderboard ranks the caller and their friends by this week's points.
// Stale weeks are reset in memory only.
func (s *GamificationService) Leaderboard(ctx context.Context, userID uint) ([]LeaderboardEntry, error) {
	friends, err := s.friendRepo.GetFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friends) == 0 {
		return []LeaderboardEntry{}, nil
	}

	self, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	weekStart := s.settings.weekStart(s.now())
	members := append([]models.User{*self}, friends...)
	entries := make([]LeaderboardEntry, 0, len(members))
	for i := range members {
		rollWeek(&members[i], weekStart)
		entries = append(entries, LeaderboardEntry{
			User:         members[i].Summary(),
			WeeklyPoints: members[i].WeeklyPoints,
			IsSelf:       members[i].ID == userID,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].WeeklyPoints > entries[j].WeeklyPoints
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *GamificationService) History(ctx context.Context, userID uint, limit int) ([]models.PointTransaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.scoreRepo.GetTransactionHistory(ctx, userID, limit)
}

// rollWeek zeroes the weekly total when it belongs to an earlier week.
func rollWeek(u *models.User, weekStart time.Time) bool {
	if !u.WeekStartDate.Before(weekStart) {
		return false
	}
	u.WeeklyPoints = 0
	u.WeekStartDate = weekStart
	return true
}

func rollDay(u *models.User, today time.Time) {
	if u.DailyTasksDate == nil || !u.DailyTasksDate.Equal(today) {
		u.DailyTasksCount = 0
		u.DailyTasksDate = &today
	}
}

// bumpStreak extends the streak when the last completion was yesterday,
// keeps it on a second completion today and restarts it otherwise.
func bumpStreak(u *models.User, today time.Time) {
	last := u.LastCompletionDate
	switch {
	case last != nil && last.Equal(today):
		if u.CurrentStreak < 1 {
			u.CurrentStreak = 1
		}
	case last != nil && last.UTC().AddDate(0, 0, 1).Equal(today):
		u.CurrentStreak++
	default:
		u.CurrentStreak = 1
	}
	u.LastCompletionDate = &today
}

func floor(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
