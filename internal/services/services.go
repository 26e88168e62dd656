package services

import (
	"context"
	"time"

	"github.com/mroshb/friend_calendar/internal/config"
	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/internal/security"
	"github.com/mroshb/friend_calendar/internal/validation"
)

// Settings are the scoring and scheduling knobs shared by the services.
type Settings struct {
	PointsPerTask  int64
	GraceDays      int
	DailyTaskLimit int
	MaxOccurrences int
	Location       *time.Location
}

func DefaultSettings() Settings {
	return Settings{
		PointsPerTask:  10,
		GraceDays:      1,
		DailyTaskLimit: 10,
		MaxOccurrences: 366,
		Location:       time.UTC,
	}
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		PointsPerTask:  cfg.PointsPerTask,
		GraceDays:      cfg.CompletionGraceDays,
		DailyTaskLimit: cfg.DailyTaskLimit,
		MaxOccurrences: cfg.MaxOccurrences,
		Location:       cfg.GetLocation(),
	}
}

// today is the current calendar day in the configured zone, as midnight UTC.
func (s Settings) today(now time.Time) time.Time {
	return validation.DateOf(now, s.Location)
}

// weekStart returns the Monday of the ISO week containing now.
func (s Settings) weekStart(now time.Time) time.Time {
	day := s.today(now)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// PrincipalCache is an optional read-through cache for authenticated users.
type PrincipalCache interface {
	Get(ctx context.Context, userID uint) (*security.Principal, bool)
	Set(ctx context.Context, p *security.Principal)
	Delete(ctx context.Context, userID uint)
}

// Notifier delivers best effort out-of-band messages. Implementations must
// not block the request for long and never fail it.
type Notifier interface {
	FriendRequestReceived(ctx context.Context, to, from *models.User)
	FriendRequestAccepted(ctx context.Context, to, by *models.User)
	CalendarShared(ctx context.Context, to []*models.User, owner *models.User, calendar *models.Calendar, permission string)
}

type NopNotifier struct{}

func (NopNotifier) FriendRequestReceived(context.Context, *models.User, *models.User) {}
func (NopNotifier) FriendRequestAccepted(context.Context, *models.User, *models.User) {}
func (NopNotifier) CalendarShared(context.Context, []*models.User, *models.User, *models.Calendar, string) {
}

func summaries(users []models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out
}
