package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"voiceagent-platform/internal/audio"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/conversations"
	"voiceagent-platform/internal/transcript"
	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ConversationLister exposes persisted call history for the dashboard.
type ConversationLister interface {
	ListAgentConversations(ctx context.Context, agentID string, f conversations.ListFilter) ([]conversations.Conversation, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Orchestrator *calls.Orchestrator
	Registry     *calls.Registry
	Bus          *transcript.Bus
	Audio        *audio.Store
	History      ConversationLister
}

type initiateCallRequest struct {
	AgentID     string `json:"agent_id"`
	PhoneNumber string `json:"phone_number"`
}

// InitiateCall places an outbound call.
func (h Handlers) InitiateCall(c *gin.Context) {
	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	placed, err := h.Orchestrator.InitiateCall(c.Request.Context(), req.AgentID, req.PhoneNumber)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, placed)
}

// GetCall returns the registry snapshot for a call. When the registry no
// longer holds the call and agent_id is supplied, the provider is queried
// directly with the agent's credentials.
func (h Handlers) GetCall(c *gin.Context) {
	callID := c.Param("call_id")

	session, err := h.Registry.Get(callID)
	if err == nil {
		c.JSON(http.StatusOK, session)
		return
	}

	agentID := c.Query("agent_id")
	if !errors.Is(err, calls.ErrNotFound) || agentID == "" {
		abortWithError(c, err)
		return
	}

	snap, err := h.Orchestrator.FetchProviderStatus(c.Request.Context(), agentID, callID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetConversation returns the stored transcript. Unknown call ids yield an
// empty list, not an error.
func (h Handlers) GetConversation(c *gin.Context) {
	callID := c.Param("call_id")
	c.JSON(http.StatusOK, gin.H{
		"call_id":  callID,
		"messages": h.Registry.GetConversation(callID),
	})
}

// ListAgentConversations returns an agent's persisted call history.
func (h Handlers) ListAgentConversations(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history not configured"})
		return
	}
	agentID := c.Param("agent_id")
	f := conversations.ListFilter{Status: c.Query("status")}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		f.Limit = n
	}

	out, err := h.History.ListAgentConversations(c.Request.Context(), agentID, f)
	if err != nil {
		logger.FromGin(c).Error("conversation history query failed", "agent_id", agentID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent_id": agentID, "conversations": out})
}

// ServeAudio returns raw generated greeting audio. The provider fetches this
// URL to play the greeting; it is public by necessity and artifact ids are
// unguessable.
func (h Handlers) ServeAudio(c *gin.Context) {
	artifact, err := h.Audio.Get(c.Param("audio_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "audio not found"})
		return
	}

	raw, err := base64.StdEncoding.DecodeString(artifact.BytesBase64)
	if err != nil {
		logger.FromGin(c).Error("audio artifact decode failed", "audio_id", artifact.AudioID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audio decode failed"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, artifact.ContentType, raw)
}

// abortWithError maps the call-subsystem error taxonomy to HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, calls.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, calls.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, calls.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, calls.ErrInvalidConfiguration):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, calls.ErrTooManyCalls):
		status = http.StatusTooManyRequests
	case errors.Is(err, calls.ErrUpstream):
		status = http.StatusBadGateway
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
