package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/response"
	"github.com/mroshb/friend_calendar/pkg/errors"
)

func (h *HandlerManager) CompleteEvent(c *gin.Context) {
	eventID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.GameSvc.Complete(c.Request.Context(), userID(c), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *HandlerManager) UncompleteEvent(c *gin.Context) {
	eventID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.GameSvc.Uncomplete(c.Request.Context(), userID(c), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *HandlerManager) Stats(c *gin.Context) {
	stats, err := h.GameSvc.Stats(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

func (h *HandlerManager) Leaderboard(c *gin.Context) {
	board, err := h.GameSvc.Leaderboard(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, board)
}

func (h *HandlerManager) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(c, errors.Validation("invalid limit", map[string]string{"limit": "must be a positive integer"}))
			return
		}
		limit = n
	}
	history, err := h.GameSvc.History(c.Request.Context(), userID(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, history)
}
