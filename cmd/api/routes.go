package main

import (
	"database/sql"
	"net/http"
	"time"

	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	api      httpapi.Handlers
	webhooks telephony.WebhookHandler
	media    telephony.MediaStreamHandler
	authN    gin.HandlerFunc
	db       *sql.DB
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks and the media bridge are public by necessity.
	// NOTE: these should be protected by Twilio signature validation in
	// production.
	r.POST("/webhooks/twilio/voice", d.webhooks.HandleInboundVoice)
	r.POST("/webhooks/twilio/status", d.webhooks.HandleStatusCallback)
	r.GET("/webhooks/media/stream", d.media.HandleStream)

	// Greeting audio is fetched by Twilio with an unguessable id; no auth.
	r.GET("/audio/:audio_id", d.api.ServeAudio)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(d.authN)
	{
		v1.POST("/calls", d.api.InitiateCall)
		v1.GET("/calls/:call_id", d.api.GetCall)
		v1.GET("/calls/:call_id/conversation", d.api.GetConversation)
		v1.GET("/calls/:call_id/stream", d.api.StreamTranscripts)
		v1.GET("/agents/:agent_id/conversations", d.api.ListAgentConversations)
	}
}
