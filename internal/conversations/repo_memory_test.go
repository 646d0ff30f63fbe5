package conversations

import (
	"context"
	"testing"
	"time"

	"voiceagent-platform/internal/calls"
)

func TestMemoryRepoLifecycle(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	if err := r.RecordCallStart(ctx, "CA1", "agent-1", calls.DirectionOutbound, "+15550001111", "+15550002222"); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Duplicate starts are absorbed, mirroring the on-conflict insert.
	if err := r.RecordCallStart(ctx, "CA1", "agent-1", calls.DirectionOutbound, "+15550001111", "+15550002222"); err != nil {
		t.Fatalf("duplicate start: %v", err)
	}

	now := time.Now().UTC()
	dur := 30
	err := r.RecordStatusUpdate(ctx, "CA1", calls.CallStatusCompleted, calls.StatusMetadata{EndedAt: &now, DurationSeconds: &dur})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	c, ok := r.Get("CA1")
	if !ok {
		t.Fatalf("conversation missing")
	}
	if c.Status != "completed" || c.EndedAt == nil || c.DurationSeconds != 30 {
		t.Fatalf("unexpected conversation: %+v", c)
	}

	// Updates for unmirrored calls are no-ops, not errors.
	if err := r.RecordStatusUpdate(ctx, "unknown", calls.CallStatusFailed, calls.StatusMetadata{}); err != nil {
		t.Fatalf("unknown update: %v", err)
	}
}

func TestMemoryRepoListFilters(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	cur := time.Unix(1700000000, 0).UTC()
	r.clock = func() time.Time { return cur }

	for i, id := range []string{"CA1", "CA2", "CA3"} {
		cur = cur.Add(time.Duration(i) * time.Minute)
		if err := r.RecordCallStart(ctx, id, "agent-1", calls.DirectionOutbound, "+15550001111", "+15550002222"); err != nil {
			t.Fatalf("start %s: %v", id, err)
		}
	}
	if err := r.RecordCallStart(ctx, "CA-other", "agent-2", calls.DirectionInbound, "+15550009999", "+15550001111"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.RecordStatusUpdate(ctx, "CA2", calls.CallStatusCompleted, calls.StatusMetadata{}); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, err := r.ListAgentConversations(ctx, "agent-1", ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(out))
	}
	// Newest first.
	if out[0].CallID != "CA3" {
		t.Fatalf("expected newest first, got %s", out[0].CallID)
	}

	out, err = r.ListAgentConversations(ctx, "agent-1", ListFilter{Status: "completed"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].CallID != "CA2" {
		t.Fatalf("status filter failed: %+v", out)
	}

	out, err = r.ListAgentConversations(ctx, "agent-1", ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("limit ignored, got %d", len(out))
	}
}
