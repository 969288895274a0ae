package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockview/internal/api/handlers"
)

type Deps struct {
	Interview    *handlers.InterviewHandler
	Session      *handlers.SessionHandler
	Conversation *handlers.ConversationHandler
	Report       *handlers.ReportHandler
	WS           *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/interviews/start", d.Interview.Start)

	r.GET("/session/:session_id", d.Session.Get)
	r.POST("/session/:session_id/reload", d.Session.Reload)
	r.POST("/session/:session_id/end", d.Session.End)
	r.DELETE("/session/:session_id", d.Session.Close)

	r.GET("/conversation/:session_id", d.Conversation.List)
	r.POST("/conversation/:session_id", d.Conversation.Submit)
	r.POST("/conversation/:session_id/retry", d.Conversation.Retry)

	r.GET("/feedback/:session_id", d.Report.Get)

	// WebSocket
	r.GET("/ws/session/:session_id", d.WS.SessionWS)
}
