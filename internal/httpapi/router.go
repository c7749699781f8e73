package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"streamchat/internal/common"
	"streamchat/internal/httpapi/handlers"
	"streamchat/internal/httpapi/middleware"
)

// NewRouter wires all HTTP routes. Every response except the SSE stream uses
// the {code, message, data} envelope.
func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		common.OK(c, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/validate-key", h.ValidateKey)
		api.POST("/models", h.ListModels)

		api.POST("/chat", h.Chat)
		api.POST("/chat/stream", h.ChatStream)

		newsGroup := api.Group("/news")
		{
			newsGroup.POST("/process-urls", h.ProcessURLs)
			newsGroup.POST("/chunk-text", h.ChunkText)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.CreateSession)
			sessions.GET("", h.ListSessions)
			sessions.GET("/:session_id", h.GetSession)
			sessions.GET("/:session_id/messages", h.ListMessages)
			sessions.DELETE("/:session_id", h.DeleteSession)
			sessions.PATCH("/:session_id", h.RenameSession)
			sessions.POST("/:session_id/duplicate", h.DuplicateSession)
		}
	}

	return r
}
