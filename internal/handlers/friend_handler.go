package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/response"
)

type friendRequestBody struct {
	UserID uint `json:"userId"`
}

func (h *HandlerManager) ListFriends(c *gin.Context) {
	friends, err := h.FriendSvc.ListFriends(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, friends)
}

func (h *HandlerManager) SearchUsers(c *gin.Context) {
	results, err := h.FriendSvc.Search(c.Request.Context(), userID(c), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, results)
}

func (h *HandlerManager) RemoveFriend(c *gin.Context) {
	friendID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.FriendSvc.RemoveFriend(c.Request.Context(), userID(c), friendID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *HandlerManager) SendFriendRequest(c *gin.Context) {
	var body friendRequestBody
	if err := bindJSON(c, &body); err != nil {
		response.Error(c, err)
		return
	}
	req, err := h.FriendSvc.SendRequest(c.Request.Context(), userID(c), body.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

func (h *HandlerManager) IncomingRequests(c *gin.Context) {
	requests, err := h.FriendSvc.Incoming(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, requests)
}

func (h *HandlerManager) OutgoingRequests(c *gin.Context) {
	requests, err := h.FriendSvc.Outgoing(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, requests)
}

func (h *HandlerManager) AcceptFriendRequest(c *gin.Context) {
	h.respond(c, true)
}

func (h *HandlerManager) RejectFriendRequest(c *gin.Context) {
	h.respond(c, false)
}

func (h *HandlerManager) respond(c *gin.Context, accept bool) {
	requestID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	req, err := h.FriendSvc.Respond(c.Request.Context(), requestID, userID(c), accept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req)
}

func (h *HandlerManager) CancelFriendRequest(c *gin.Context) {
	requestID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.FriendSvc.Cancel(c.Request.Context(), requestID, userID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
