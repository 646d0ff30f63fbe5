package conversations

import (
	"context"
	"sort"
	"sync"
	"time"

	"voiceagent-platform/internal/calls"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory conversation mirror for tests and early
// development.
type MemoryRepo struct {
	mu    sync.Mutex
	byID  map[string]*Conversation
	clock func() time.Time

	// FailWrites makes every write return an error; used to test that the
	// mirror stays best-effort.
	FailWrites error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: map[string]*Conversation{}, clock: time.Now}
}

func (r *MemoryRepo) RecordCallStart(ctx context.Context, callID, agentID string, direction calls.Direction, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return r.FailWrites
	}
	if _, ok := r.byID[callID]; ok {
		return nil
	}
	now := r.clock().UTC()
	r.byID[callID] = &Conversation{
		ID:         uuid.NewString(),
		CallID:     callID,
		AgentID:    agentID,
		Direction:  direction,
		Status:     string(calls.CallStatusInitiated),
		FromNumber: from,
		ToNumber:   to,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return nil
}

func (r *MemoryRepo) RecordStatusUpdate(ctx context.Context, callID string, status calls.CallStatus, meta calls.StatusMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return r.FailWrites
	}
	c, ok := r.byID[callID]
	if !ok {
		return nil
	}
	c.Status = string(status)
	if meta.AnsweredAt != nil && c.AnsweredAt == nil {
		t := meta.AnsweredAt.UTC()
		c.AnsweredAt = &t
	}
	if meta.EndedAt != nil && c.EndedAt == nil {
		t := meta.EndedAt.UTC()
		c.EndedAt = &t
	}
	if meta.DurationSeconds != nil && c.DurationSeconds == 0 {
		c.DurationSeconds = *meta.DurationSeconds
	}
	c.UpdatedAt = r.clock().UTC()
	return nil
}

func (r *MemoryRepo) ListAgentConversations(ctx context.Context, agentID string, f ListFilter) ([]Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Conversation, 0)
	for _, c := range r.byID {
		if c.AgentID != agentID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Get returns the stored conversation for assertions in tests.
func (r *MemoryRepo) Get(callID string) (Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[callID]
	if !ok {
		return Conversation{}, false
	}
	return *c, true
}
