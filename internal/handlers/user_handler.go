package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/response"
	"github.com/mroshb/friend_calendar/internal/services"
)

func (h *HandlerManager) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.AuthSvc.Register(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func (h *HandlerManager) Login(c *gin.Context) {
	var in services.LoginInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.AuthSvc.Login(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *HandlerManager) Me(c *gin.Context) {
	user, err := h.AuthSvc.Me(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

func (h *HandlerManager) UpdateMe(c *gin.Context) {
	var in services.ProfileInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.AuthSvc.UpdateProfile(c.Request.Context(), userID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}
