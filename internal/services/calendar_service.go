package services

import (
	"context"

	"github.com/mroshb/friend_calendar/internal/metrics"
	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/internal/repositories"
	"github.com/mroshb/friend_calendar/internal/security"
	"github.com/mroshb/friend_calendar/internal/validation"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"github.com/mroshb/friend_calendar/pkg/logger"
)

type CalendarInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Color       string `json:"color" validate:"omitempty,color6"`
	Description string `json:"description" validate:"max=500"`
}

type CalendarPatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Color       *string `json:"color" validate:"omitempty,color6"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type ShareInput struct {
	UserIDs    []uint `json:"userIds" validate:"required,min=1,max=100,dive,gt=0"`
	Permission string `json:"permission" validate:"required,oneof=view edit"`
}

// ShareResult buckets every requested id into exactly one outcome.
type ShareResult struct {
	Shared        []uint `json:"shared"`
	AlreadyShared []uint `json:"alreadyShared"`
	NotFriends    []uint `json:"notFriends"`
	NotFound      []uint `json:"notFound"`
}

type SharedUser struct {
	models.UserSummary
	Permission string `json:"permission"`
}

type SharingDetail struct {
	CalendarID uint         `json:"calendarId"`
	Name       string       `json:"name"`
	SharedWith []SharedUser `json:"sharedWith"`
}

// CalendarView is a calendar without its events, sharers resolved.
type CalendarView struct {
	models.Calendar
	Owner      *models.UserSummary `json:"owner,omitempty"`
	SharedWith []SharedUser        `json:"sharedWith"`
	Permission string              `json:"permission,omitempty"`
}

type CalendarList struct {
	Owned  []CalendarView `json:"owned"`
	Shared []CalendarView `json:"shared"`
}

type CalendarService struct {
	calendarRepo *repositories.CalendarRepository
	eventRepo    *repositories.EventRepository
	friendRepo   *repositories.FriendRepository
	userRepo     *repositories.UserRepository
	notifier     Notifier
	metrics      *metrics.Metrics
}

func NewCalendarService(
	calendarRepo *repositories.CalendarRepository,
	eventRepo *repositories.EventRepository,
	friendRepo *repositories.FriendRepository,
	userRepo *repositories.UserRepository,
	notifier Notifier,
	m *metrics.Metrics,
) *CalendarService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CalendarService{
		calendarRepo: calendarRepo,
		eventRepo:    eventRepo,
		friendRepo:   friendRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		metrics:      m,
	}
}

func (s *CalendarService) Create(ctx context.Context, ownerID uint, in CalendarInput) (*models.Calendar, error) {
	in.Name = security.SanitizeText(in.Name)
	in.Description = security.SanitizeText(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	calendar := &models.Calendar{
		Name:        in.Name,
		Color:       in.Color,
		Description: in.Description,
		OwnerID:     ownerID,
	}
	if calendar.Color == "" {
		calendar.Color = models.DefaultColor
	}

	if err := s.calendarRepo.CreateCalendar(ctx, calendar); err != nil {
		return nil, err
	}
	return calendar, nil
}

// owned loads a calendar and requires userID to own it.
func (s *CalendarService) owned(ctx context.Context, userID, calendarID uint) (*models.Calendar, error) {
	calendar, err := s.calendarRepo.GetCalendarByID(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if calendar.OwnerID != userID {
		return nil, errors.New(errors.ErrCodeForbidden, "only the calendar owner can do this")
	}
	return calendar, nil
}

func (s *CalendarService) Update(ctx context.Context, userID, calendarID uint, in CalendarPatch) (*models.Calendar, error) {
	for _, field := range []*string{in.Name, in.Description} {
		if field != nil {
			*field = security.SanitizeText(*field)
		}
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	calendar, err := s.owned(ctx, userID, calendarID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		calendar.Name = *in.Name
	}
	if in.Color != nil {
		calendar.Color = *in.Color
	}
	if in.Description != nil {
		calendar.Description = *in.Description
	}

	if err := s.calendarRepo.UpdateCalendar(ctx, calendar); err != nil {
		return nil, err
	}
	return calendar, nil
}

// Delete removes the calendar and every event in it.
func (s *CalendarService) Delete(ctx context.Context, userID, calendarID uint) error {
	if _, err := s.owned(ctx, userID, calendarID); err != nil {
		return err
	}
	if err := s.calendarRepo.DeleteCalendar(ctx, calendarID); err != nil {
		return err
	}
	logger.Info("Calendar deleted", "calendar_id", calendarID, "owner_id", userID)
	return nil
}

// Share grants permission to each friend in the batch. Targets that cannot
// be shared with are reported, not failed.
func (s *CalendarService) Share(ctx context.Context, ownerID, calendarID uint, in ShareInput) (*ShareResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	calendar, err := s.owned(ctx, ownerID, calendarID)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.GetUsersByIDs(ctx, in.UserIDs)
	if err != nil {
		return nil, err
	}
	friendIDs, err := s.friendRepo.GetFriendIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	result := &ShareResult{
		Shared:        []uint{},
		AlreadyShared: []uint{},
		NotFriends:    []uint{},
		NotFound:      []uint{},
	}
	seen := make(map[uint]bool, len(in.UserIDs))
	var shares []models.CalendarShare
	var targets []*models.User

	for _, id := range in.UserIDs {
		switch {
		case users[id] == nil:
			result.NotFound = append(result.NotFound, id)
		case !friendIDs[id]:
			result.NotFriends = append(result.NotFriends, id)
		case seen[id] || calendar.ShareFor(id) != nil:
			result.AlreadyShared = append(result.AlreadyShared, id)
		default:
			result.Shared = append(result.Shared, id)
			shares = append(shares, models.CalendarShare{CalendarID: calendar.ID, UserID: id, Permission: in.Permission})
			targets = append(targets, users[id])
		}
		seen[id] = true
	}

	if err := s.calendarRepo.AddShares(ctx, shares); err != nil {
		return nil, err
	}

	s.metrics.ShareResult("shared", len(result.Shared))
	s.metrics.ShareResult("alreadyShared", len(result.AlreadyShared))
	s.metrics.ShareResult("notFriends", len(result.NotFriends))
	s.metrics.ShareResult("notFound", len(result.NotFound))

	if len(targets) > 0 {
		owner, err := s.userRepo.GetUserByID(ctx, ownerID)
		if err == nil {
			s.notifier.CalendarShared(ctx, targets, owner, calendar, in.Permission)
		}
	}
	return result, nil
}

func (s *CalendarService) Unshare(ctx context.Context, ownerID, calendarID, userID uint) error {
	if _, err := s.owned(ctx, ownerID, calendarID); err != nil {
		return err
	}
	return s.calendarRepo.RemoveShare(ctx, calendarID, userID)
}

func (s *CalendarService) Sharing(ctx context.Context, ownerID, calendarID uint) (*SharingDetail, error) {
	calendar, err := s.owned(ctx, ownerID, calendarID)
	if err != nil {
		return nil, err
	}
	return &SharingDetail{
		CalendarID: calendar.ID,
		Name:       calendar.Name,
		SharedWith: sharedUsers(calendar),
	}, nil
}

// List returns the calendars userID owns and those shared with them.
func (s *CalendarService) List(ctx context.Context, userID uint) (*CalendarList, error) {
	owned, err := s.calendarRepo.GetOwnedCalendars(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := s.calendarRepo.GetSharedCalendars(ctx, userID)
	if err != nil {
		return nil, err
	}

	list := &CalendarList{
		Owned:  make([]CalendarView, 0, len(owned)),
		Shared: make([]CalendarView, 0, len(shared)),
	}
	for i := range owned {
		list.Owned = append(list.Owned, calendarView(&owned[i], nil, ""))
	}
	for i := range shared {
		owner := shared[i].Owner.Summary()
		perm := ""
		if share := shared[i].ShareFor(userID); share != nil {
			perm = share.Permission
		}
		list.Shared = append(list.Shared, calendarView(&shared[i], &owner, perm))
	}
	return list, nil
}

// Events lists a calendar's events for its owner or a sharer.
func (s *CalendarService) Events(ctx context.Context, userID, calendarID uint) ([]models.Event, error) {
	calendar, err := s.calendarRepo.GetCalendarByID(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if !calendar.CanView(userID) {
		return nil, errors.New(errors.ErrCodeForbidden, "you do not have access to this calendar")
	}
	return s.eventRepo.GetEventsByCalendar(ctx, calendarID)
}

func calendarView(c *models.Calendar, owner *models.UserSummary, permission string) CalendarView {
	view := CalendarView{
		Calendar:   *c,
		Owner:      owner,
		SharedWith: sharedUsers(c),
		Permission: permission,
	}
	view.Calendar.Events = nil
	return view
}

func sharedUsers(c *models.Calendar) []SharedUser {
	out := make([]SharedUser, 0, len(c.SharedWith))
	for i := range c.SharedWith {
		out = append(out, SharedUser{
			UserSummary: c.SharedWith[i].User.Summary(),
			Permission:  c.SharedWith[i].Permission,
		})
	}
	return out
}
