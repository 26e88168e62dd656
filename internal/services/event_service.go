package services

import (
	"context"
	"time"

	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/internal/repositories"
	"github.com/mroshb/friend_calendar/internal/security"
	"github.com/mroshb/friend_calendar/internal/validation"
	"github.com/mroshb/friend_calendar/pkg/errors"
)

type RecurrenceInput struct {
	Frequency string `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Interval  int    `json:"interval" validate:"omitempty,min=1"`
	Until     string `json:"until" validate:"omitempty,date"`
}

type CreateEventInput struct {
	Title      string           `json:"title" validate:"required,max=100"`
	Date       string           `json:"date" validate:"required,date"`
	Time       string           `json:"time" validate:"omitempty,clock"`
	EndTime    string           `json:"endTime" validate:"omitempty,clock"`
	AllDay     bool             `json:"allDay"`
	Details    string           `json:"details" validate:"max=500"`
	Location   string           `json:"location" validate:"max=100"`
	Color      string           `json:"color" validate:"omitempty,color6"`
	Recurrence *RecurrenceInput `json:"recurrence"`
	CalendarID *uint            `json:"calendarId"`
	SharedWith []uint           `json:"sharedWith" validate:"max=100"`
}

// UpdateEventInput carries only the fields to change. An empty time or
// endTime clears it; clearRecurrence drops the rule and removeFromCalendar
// detaches the event from its calendar.
type UpdateEventInput struct {
	Title              *string          `json:"title" validate:"omitempty,min=1,max=100"`
	Date               *string          `json:"date" validate:"omitempty,date"`
	Time               *string          `json:"time" validate:"omitempty,len=0|clock"`
	EndTime            *string          `json:"endTime" validate:"omitempty,len=0|clock"`
	AllDay             *bool            `json:"allDay"`
	Details            *string          `json:"details" validate:"omitempty,max=500"`
	Location           *string          `json:"location" validate:"omitempty,max=100"`
	Color              *string          `json:"color" validate:"omitempty,color6"`
	Recurrence         *RecurrenceInput `json:"recurrence"`
	ClearRecurrence    bool             `json:"clearRecurrence" validate:"excluded_with=Recurrence"`
	CalendarID         *uint            `json:"calendarId"`
	RemoveFromCalendar bool             `json:"removeFromCalendar" validate:"excluded_with=CalendarID"`
	SharedWith         *[]uint          `json:"sharedWith" validate:"omitempty,max=100"`
}

// EventView is an event with its share list and, for shared events, its owner.
type EventView struct {
	models.Event
	SharedWith []uint              `json:"sharedWith"`
	Owner      *models.UserSummary `json:"owner,omitempty"`
}

type OccurrenceList struct {
	EventID   uint     `json:"eventId"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Dates     []string `json:"dates"`
	Truncated bool     `json:"truncated"`
}

type EventService struct {
	eventRepo    *repositories.EventRepository
	calendarRepo *repositories.CalendarRepository
	friendRepo   *repositories.FriendRepository
	settings     Settings
	now          func() time.Time
}

func NewEventService(
	eventRepo *repositories.EventRepository,
	calendarRepo *repositories.CalendarRepository,
	friendRepo *repositories.FriendRepository,
	settings Settings,
) *EventService {
	return &EventService{
		eventRepo:    eventRepo,
		calendarRepo: calendarRepo,
		friendRepo:   friendRepo,
		settings:     settings,
		now:          time.Now,
	}
}

func (s *EventService) Create(ctx context.Context, ownerID uint, in CreateEventInput) (*EventView, error) {
	in.Title = security.SanitizeText(in.Title)
	in.Details = security.SanitizeText(in.Details)
	in.Location = security.SanitizeText(in.Location)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	date, _ := validation.ParseDate(in.Date)
	event := &models.Event{
		Title:    in.Title,
		Date:     date,
		Time:     in.Time,
		EndTime:  in.EndTime,
		AllDay:   in.AllDay,
		Details:  in.Details,
		Location: in.Location,
		Color:    in.Color,
		OwnerID:  ownerID,
	}
	if event.Color == "" {
		event.Color = models.DefaultColor
	}
	if in.Recurrence != nil {
		event.Recurrence = recurrenceOf(in.Recurrence)
	}
	if err := checkUntil(event); err != nil {
		return nil, err
	}

	if in.CalendarID != nil {
		if err := s.requireCalendarEdit(ctx, ownerID, *in.CalendarID); err != nil {
			return nil, err
		}
		event.CalendarID = in.CalendarID
	}

	shared, err := s.checkFriends(ctx, ownerID, in.SharedWith)
	if err != nil {
		return nil, err
	}

	if err := s.eventRepo.CreateEvent(ctx, event, shared); err != nil {
		return nil, err
	}
	return eventView(event, nil), nil
}

// Update applies the fields present in the input. The event owner and the
// calendar's owner or editors may update.
func (s *EventService) Update(ctx context.Context, userID, eventID uint, in UpdateEventInput) (*EventView, error) {
	for _, field := range []*string{in.Title, in.Details, in.Location} {
		if field != nil {
			*field = security.SanitizeText(*field)
		}
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OwnerID != userID {
		calendar, err := s.parentCalendar(ctx, event)
		if err != nil {
			return nil, err
		}
		if calendar == nil || !calendar.CanEdit(userID) {
			return nil, errors.New(errors.ErrCodeForbidden, "you cannot edit this event")
		}
	}

	if in.Title != nil {
		event.Title = *in.Title
	}
	if in.Date != nil {
		event.Date, _ = validation.ParseDate(*in.Date)
	}
	if in.Time != nil {
		event.Time = *in.Time
	}
	if in.EndTime != nil {
		event.EndTime = *in.EndTime
	}
	if in.AllDay != nil {
		event.AllDay = *in.AllDay
	}
	if in.Details != nil {
		event.Details = *in.Details
	}
	if in.Location != nil {
		event.Location = *in.Location
	}
	if in.Color != nil {
		event.Color = *in.Color
	}
	if in.Recurrence != nil {
		event.Recurrence = recurrenceOf(in.Recurrence)
	}
	if in.ClearRecurrence {
		event.Recurrence = models.Recurrence{}
	}
	if err := checkUntil(event); err != nil {
		return nil, err
	}

	if in.RemoveFromCalendar && event.CalendarID != nil {
		if event.OwnerID != userID {
			return nil, errors.New(errors.ErrCodeForbidden, "only the event owner can remove it from its calendar")
		}
		event.CalendarID = nil
	}
	if in.CalendarID != nil && (event.CalendarID == nil || *event.CalendarID != *in.CalendarID) {
		if err := s.requireCalendarEdit(ctx, userID, *in.CalendarID); err != nil {
			return nil, err
		}
		event.CalendarID = in.CalendarID
	}

	var shared []uint
	if in.SharedWith != nil {
		// Only the owner's friends may be on the list, whoever edits it.
		if shared, err = s.checkFriends(ctx, event.OwnerID, *in.SharedWith); err != nil {
			return nil, err
		}
	}

	if err := s.eventRepo.UpdateEvent(ctx, event, shared); err != nil {
		return nil, err
	}
	return eventView(event, nil), nil
}

// Delete removes an event. The event owner and the calendar owner may delete.
func (s *EventService) Delete(ctx context.Context, userID, eventID uint) error {
	event, err := s.eventRepo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.OwnerID != userID {
		calendar, err := s.parentCalendar(ctx, event)
		if err != nil {
			return err
		}
		if calendar == nil || calendar.OwnerID != userID {
			return errors.New(errors.ErrCodeForbidden, "you cannot delete this event")
		}
	}
	return s.eventRepo.DeleteEvent(ctx, eventID)
}

// ListMine returns the caller's events by date.
func (s *EventService) ListMine(ctx context.Context, userID uint) ([]EventView, error) {
	events, err := s.eventRepo.GetEventsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]EventView, 0, len(events))
	for i := range events {
		views = append(views, *eventView(&events[i], nil))
	}
	return views, nil
}

// ListShared returns events shared with the caller, with their owners.
func (s *EventService) ListShared(ctx context.Context, userID uint) ([]EventView, error) {
	events, err := s.eventRepo.GetEventsSharedWith(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]EventView, 0, len(events))
	for i := range events {
		owner := events[i].Owner.Summary()
		view := eventView(&events[i], &owner)
		view.SharedWith = nil
		views = append(views, *view)
	}
	return views, nil
}

// Occurrences expands the event's recurrence inside [from, to]. Without
// bounds the window runs from today to the rule's until date, or one year.
func (s *EventService) Occurrences(ctx context.Context, userID, eventID uint, from, to *time.Time) (*OccurrenceList, error) {
	event, err := s.eventRepo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.requireView(ctx, userID, event); err != nil {
		return nil, err
	}

	start := s.settings.today(s.now())
	if from != nil {
		start = *from
	}
	end := start.AddDate(1, 0, 0)
	if event.Recurrence.Until != nil {
		end = event.Recurrence.Until.UTC()
	}
	if to != nil {
		end = *to
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, validation.Field("to", "must not be before from")
	}

	max := s.settings.MaxOccurrences
	dates := event.Occurrences(start, end, max+1)
	list := &OccurrenceList{
		EventID: event.ID,
		From:    start.Format(validation.DateLayout),
		To:      end.Format(validation.DateLayout),
		Dates:   make([]string, 0, len(dates)),
	}
	if len(dates) > max {
		dates = dates[:max]
		list.Truncated = true
	}
	for _, d := range dates {
		list.Dates = append(list.Dates, d.Format(validation.DateLayout))
	}
	return list, nil
}

func (s *EventService) requireView(ctx context.Context, userID uint, event *models.Event) error {
	if event.OwnerID == userID || event.IsSharedWith(userID) {
		return nil
	}
	calendar, err := s.parentCalendar(ctx, event)
	if err != nil {
		return err
	}
	if calendar != nil && calendar.CanView(userID) {
		return nil
	}
	return errors.New(errors.ErrCodeForbidden, "you do not have access to this event")
}

// parentCalendar returns the event's calendar, or nil for loose events.
func (s *EventService) parentCalendar(ctx context.Context, event *models.Event) (*models.Calendar, error) {
	if event.CalendarID == nil {
		return nil, nil
	}
	return s.calendarRepo.GetCalendarByID(ctx, *event.CalendarID)
}

func (s *EventService) requireCalendarEdit(ctx context.Context, userID, calendarID uint) error {
	calendar, err := s.calendarRepo.GetCalendarByID(ctx, calendarID)
	if err != nil {
		return err
	}
	if !calendar.CanEdit(userID) {
		return errors.New(errors.ErrCodeForbidden, "you cannot add events to this calendar")
	}
	return nil
}

// checkFriends dedupes ids and requires each to be a friend of ownerID.
// It runs before anything is written.
func (s *EventService) checkFriends(ctx context.Context, ownerID uint, ids []uint) ([]uint, error) {
	out := make([]uint, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	friends, err := s.friendRepo.GetFriendIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !friends[id] {
			return nil, validation.Field("sharedWith", "may only contain your friends")
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

func recurrenceOf(in *RecurrenceInput) models.Recurrence {
	r := models.Recurrence{Frequency: in.Frequency, Interval: in.Interval}
	if r.Interval == 0 {
		r.Interval = 1
	}
	if in.Until != "" {
		until, _ := validation.ParseDate(in.Until)
		r.Until = &until
	}
	return r
}

func checkUntil(e *models.Event) error {
	if e.Recurrence.Until != nil && e.Recurrence.Until.Before(e.Date) {
		return validation.Field("recurrence.until", "must not be before date")
	}
	return nil
}

func eventView(e *models.Event, owner *models.UserSummary) *EventView {
	return &EventView{
		Event:      *e,
		SharedWith: e.SharedUserIDs(),
		Owner:      owner,
	}
}
