package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/response"
	"github.com/mroshb/friend_calendar/internal/services"
)

func (h *HandlerManager) ListCalendars(c *gin.Context) {
	list, err := h.CalendarSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *HandlerManager) CreateCalendar(c *gin.Context) {
	var in services.CalendarInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}
	cal, err := h.CalendarSvc.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cal)
}

func (h *HandlerManager) UpdateCalendar(c *gin.Context) {
	calendarID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var in services.CalendarPatch
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}
	cal, err := h.CalendarSvc.Update(c.Request.Context(), userID(c), calendarID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cal)
}

func (h *HandlerManager) DeleteCalendar(c *gin.Context) {
	calendarID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.CalendarSvc.Delete(c.Request.Context(), userID(c), calendarID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *HandlerManager) CalendarEvents(c *gin.Context) {
	calendarID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.CalendarSvc.Events(c.Request.Context(), userID(c), calendarID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}

func (h *HandlerManager) CalendarSharing(c *gin.Context) {
	calendarID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.CalendarSvc.Sharing(c.Request.Context(), userID(c), calendarID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

func (h *HandlerManager) ShareCalendar(c *gin.Context) {
	calendarID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var in services.ShareInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.CalendarSvc.Share(c.Request.Context(), userID(c), calendarID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *HandlerManager) UnshareCalendar(c *gin.Context) {
	calendarID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	target, err := idParam(c, "userId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.CalendarSvc.Unshare(c.Request.Context(), userID(c), calendarID, target); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
