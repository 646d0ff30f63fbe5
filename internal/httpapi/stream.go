package httpapi

import (
	"io"

	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// streamBufferSize bounds how far a slow SSE consumer may lag. The bus pushes
// into this buffer without blocking; overflow events are dropped and logged
// so one stalled dashboard cannot slow delivery to anyone else.
const streamBufferSize = 64

// StreamTranscripts relays live transcript events for one call as
// server-sent events: an immediate meta event, then every bus event in
// publish order, then a terminal done event when the call's stream completes.
// Disconnecting unsubscribes synchronously.
func (h Handlers) StreamTranscripts(c *gin.Context) {
	log := logger.FromGin(c)
	callID := c.Param("call_id")

	events := make(chan any, streamBufferSize)
	done := make(chan struct{})

	sub := h.Bus.Subscribe(callID,
		func(payload any) {
			select {
			case events <- payload:
			default:
				log.Warn("slow transcript consumer, event dropped", "call_id", callID)
			}
		},
		func() { close(done) },
	)
	defer sub.Cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("message", gin.H{"type": "meta", "call_id": callID})
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case payload := <-events:
			c.SSEvent("message", payload)
			return true
		case <-done:
			// Drain events published before completion, then finish.
			for {
				select {
				case payload := <-events:
					c.SSEvent("message", payload)
				default:
					c.SSEvent("message", gin.H{"type": "done"})
					return false
				}
			}
		}
	})
}
