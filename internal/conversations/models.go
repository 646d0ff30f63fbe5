package conversations

import (
	"time"

	"voiceagent-platform/internal/calls"
)

// Conversation is the persisted summary of one call. The conversations table
// is the durable mirror of the in-memory registry: writes to it are
// best-effort and never block or roll back in-memory call state.
type Conversation struct {
	ID     string `json:"id"`
	CallID string `json:"call_id"`

	AgentID   string          `json:"agent_id"`
	Direction calls.Direction `json:"direction"`
	Status    string          `json:"status"`

	FromNumber string `json:"from"`
	ToNumber   string `json:"to"`

	DurationSeconds int        `json:"duration_seconds,omitempty"`
	AnsweredAt      *time.Time `json:"answered_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter narrows conversation history queries.
type ListFilter struct {
	Status string
	Limit  int
}
