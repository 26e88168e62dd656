package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/internal/response"
	"github.com/mroshb/friend_calendar/internal/services"
	"github.com/mroshb/friend_calendar/internal/sheets"
	"github.com/mroshb/friend_calendar/internal/validation"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"github.com/mroshb/friend_calendar/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *HandlerManager) ListEvents(c *gin.Context) {
	events, err := h.EventSvc.ListMine(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}

func (h *HandlerManager) ListSharedEvents(c *gin.Context) {
	events, err := h.EventSvc.ListShared(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}

func (h *HandlerManager) CreateEvent(c *gin.Context) {
	var in services.CreateEventInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}
	event, err := h.EventSvc.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

func (h *HandlerManager) UpdateEvent(c *gin.Context) {
	eventID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var in services.UpdateEventInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}
	event, err := h.EventSvc.Update(c.Request.Context(), userID(c), eventID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

func (h *HandlerManager) DeleteEvent(c *gin.Context) {
	eventID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.EventSvc.Delete(c.Request.Context(), userID(c), eventID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *HandlerManager) Occurrences(c *gin.Context) {
	eventID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	from, err := dateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.EventSvc.Occurrences(c.Request.Context(), userID(c), eventID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ExportEvents streams the caller's own events as an xlsx workbook.
func (h *HandlerManager) ExportEvents(c *gin.Context) {
	views, err := h.EventSvc.ListMine(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	events := make([]models.Event, len(views))
	for i := range views {
		events[i] = views[i].Event
	}

	filename := fmt.Sprintf("events-%s.xlsx", time.Now().UTC().Format(validation.DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", xlsxContentType)
	c.Status(200)
	if err := sheets.WriteEvents(c.Writer, events); err != nil {
		logger.Error("Failed to write events export", "user_id", userID(c), "error", err)
	}
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := validation.ParseDate(raw)
	if err != nil {
		return nil, errors.Validation("invalid "+name, map[string]string{name: "must be a date in YYYY-MM-DD format"})
	}
	return &d, nil
}
