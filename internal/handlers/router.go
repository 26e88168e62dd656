package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/middleware"
)

// NewRouter wires every HTTP route. Everything under /api is rate limited;
// everything except /api/auth requires a bearer token.
func NewRouter(h *HandlerManager) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(h.Metrics), middleware.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	api := r.Group("/api")

	auth := api.Group("/auth", h.Limiter.Middleware())
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)

	private := api.Group("", middleware.Auth(h.AuthSvc), h.Limiter.Middleware())

	users := private.Group("/users")
	users.GET("/me", h.Me)
	users.PUT("/me", h.UpdateMe)

	events := private.Group("/events")
	events.GET("", h.ListEvents)
	events.POST("", h.CreateEvent)
	events.GET("/shared", h.ListSharedEvents)
	events.GET("/export", h.ExportEvents)
	events.PUT("/:id", h.UpdateEvent)
	events.DELETE("/:id", h.DeleteEvent)
	events.GET("/:id/occurrences", h.Occurrences)
	events.POST("/:id/complete", h.CompleteEvent)
	events.POST("/:id/uncomplete", h.UncompleteEvent)

	calendars := private.Group("/calendars")
	calendars.GET("", h.ListCalendars)
	calendars.POST("", h.CreateCalendar)
	calendars.PUT("/:id", h.UpdateCalendar)
	calendars.DELETE("/:id", h.DeleteCalendar)
	calendars.GET("/:id/events", h.CalendarEvents)
	calendars.GET("/:id/sharing", h.CalendarSharing)
	calendars.POST("/:id/share", h.ShareCalendar)
	calendars.DELETE("/:id/share/:userId", h.UnshareCalendar)

	friends := private.Group("/friends")
	friends.GET("", h.ListFriends)
	friends.GET("/search", h.SearchUsers)
	friends.DELETE("/:id", h.RemoveFriend)
	friends.POST("/requests", h.SendFriendRequest)
	friends.GET("/requests/incoming", h.IncomingRequests)
	friends.GET("/requests/outgoing", h.OutgoingRequests)
	friends.POST("/requests/:id/accept", h.AcceptFriendRequest)
	friends.POST("/requests/:id/reject", h.RejectFriendRequest)
	friends.DELETE("/requests/:id", h.CancelFriendRequest)

	game := private.Group("/gamification")
	game.GET("/stats", h.Stats)
	game.GET("/leaderboard", h.Leaderboard)
	game.GET("/history", h.History)

	return r
}
