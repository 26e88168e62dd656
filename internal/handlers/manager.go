package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/metrics"
	"github.com/mroshb/friend_calendar/internal/middleware"
	"github.com/mroshb/friend_calendar/internal/services"
	"github.com/mroshb/friend_calendar/pkg/errors"
)

type HandlerManager struct {
	AuthSvc     *services.AuthService
	FriendSvc   *services.FriendService
	CalendarSvc *services.CalendarService
	EventSvc    *services.EventService
	GameSvc     *services.GamificationService
	Metrics     *metrics.Metrics
	Limiter     *middleware.RateLimiter
}

func NewHandlerManager(
	authSvc *services.AuthService,
	friendSvc *services.FriendService,
	calendarSvc *services.CalendarService,
	eventSvc *services.EventService,
	gameSvc *services.GamificationService,
	m *metrics.Metrics,
	limiter *middleware.RateLimiter,
) *HandlerManager {
	return &HandlerManager{
		AuthSvc:     authSvc,
		FriendSvc:   friendSvc,
		CalendarSvc: calendarSvc,
		EventSvc:    eventSvc,
		GameSvc:     gameSvc,
		Metrics:     m,
		Limiter:     limiter,
	}
}

// bindJSON decodes the body into dst. Field rules are checked by the services.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid JSON body")
	}
	return nil
}

// idParam reads a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Validation("invalid "+name, map[string]string{name: "must be a positive integer"})
	}
	return uint(id), nil
}

func userID(c *gin.Context) uint {
	return middleware.MustPrincipal(c).UserID
}
