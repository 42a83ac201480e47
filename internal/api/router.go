package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker func(ctx context.Context) error

// NewRouter builds the gin engine with all application routes registered.
func NewRouter(api *API, health map[string]HealthChecker) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		report := gin.H{}
		for name, check := range health {
			if err := check(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		c.JSON(status, report)
	})

	v1 := router.Group("/api/v1")
	{
		meetings := v1.Group("/meetings")
		{
			meetings.POST("", api.UploadMeetingHandler)
			meetings.GET("", api.ListMeetingsHandler)
			meetings.GET("/:id", api.GetMeetingHandler)
			meetings.GET("/:id/summary", api.GetMeetingSummaryHandler)
			meetings.GET("/:id/transcript", api.GetMeetingTranscriptHandler)
			meetings.DELETE("/:id", api.DeleteMeetingHandler)
		}

		chats := v1.Group("/chats")
		{
			chats.POST("", api.CreateChatHandler)
			chats.GET("", api.ListChatsHandler)
			chats.GET("/:id", api.GetChatHandler)
			chats.DELETE("/:id", api.DeleteChatHandler)
			chats.POST("/:id/messages", api.SendMessageHandler)
			chats.GET("/:id/summary", api.ChatSummaryHandler)
		}
	}
	return router
}
