package telephony

import (
	"net/http"
	"net/url"
	"time"

	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler converts provider webhooks to normalized events, hands them
// to the sink, and answers in the provider's dialect (TwiML / plain ack).
//
// No business logic here. Webhook processing failures are logged and the
// provider still receives a fast 200 so it does not retry indefinitely.
type WebhookHandler struct {
	Sink EventSink

	// MediaStreamURL is the websocket endpoint the provider bridges call
	// audio to. Correlation query parameters are appended per call.
	MediaStreamURL string

	Now func() time.Time
}

func (h WebhookHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// HandleInboundVoice answers the first webhook of an inbound call with TwiML
// that bridges the call audio to the media endpoint.
func (h WebhookHandler) HandleInboundVoice(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseTwilioVoiceWebhook(c.Request)
	if err != nil || form.CallSid == "" {
		log.Warn("inbound voice webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	agentID := ""
	if h.Sink != nil {
		agentID, err = h.Sink.OnInboundCall(c.Request.Context(), form.ToInboundCallEvent(h.now()))
		if err != nil {
			// The call is already ringing; answer it anyway.
			log.Warn("inbound call registration failed", "call_id", form.CallSid, "err", err)
		}
	}

	script, err := RenderVoiceScript(VoiceScript{
		StreamURL: h.streamURL(agentID),
	})
	if err != nil {
		log.Error("inbound twiml render failed", "call_id", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, script)
}

// HandleStatusCallback ingests a call lifecycle event. The response is always
// a fast plain-text ack; errors are logged, never surfaced to the provider.
func (h WebhookHandler) HandleStatusCallback(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseTwilioStatusCallback(c.Request)
	if err != nil {
		log.Warn("status webhook parse failed", "err", err)
		c.String(http.StatusOK, "ok")
		return
	}

	if form.CallSid != "" && h.Sink != nil {
		if err := h.Sink.OnStatusEvent(c.Request.Context(), form.ToStatusEvent(h.now())); err != nil {
			log.Error("status event processing failed", "call_id", form.CallSid, "err", err)
		}
	}

	c.String(http.StatusOK, "ok")
}

func (h WebhookHandler) streamURL(agentID string) string {
	q := url.Values{}
	q.Set("source", "twilio")
	if agentID != "" {
		q.Set("agentId", agentID)
	}
	return h.MediaStreamURL + "?" + q.Encode()
}
