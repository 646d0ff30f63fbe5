package calls

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TranscriptSink is the registry's view of the transcript bus.
//
// Publish must never block on slow consumers; the bus owns delivery bounds.
// Complete signals end-of-stream to current subscribers for a call.
type TranscriptSink interface {
	Publish(callID string, payload any)
	Complete(callID string)
}

// TranscriptEvent is the payload the registry publishes for every appended
// transcript entry.
type TranscriptEvent struct {
	Type      string    `json:"type"`
	CallID    string    `json:"call_id"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  int64     `json:"sequence,omitempty"`
}

// Registry is the in-memory table of live and recently-terminated calls.
//
// Locking: the registry map is guarded by mu; each session carries its own
// mutex so concurrent updates to different calls never serialize against each
// other. No I/O happens while a session lock is held; the bus publish runs
// after the lock is released.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session

	bus   TranscriptSink
	clock func() time.Time

	// retention bounds how long terminal sessions are kept before the
	// janitor evicts them. Live sessions are never evicted.
	retention time.Duration
}

type session struct {
	mu         sync.Mutex
	data       CallSession
	terminalAt time.Time
}

const defaultRetention = time.Hour

func NewRegistry(bus TranscriptSink) *Registry {
	return &Registry{
		sessions:  make(map[string]*session),
		bus:       bus,
		clock:     time.Now,
		retention: defaultRetention,
	}
}

// SetRetention overrides how long terminal sessions are retained.
func (r *Registry) SetRetention(d time.Duration) {
	if d > 0 {
		r.retention = d
	}
}

func (r *Registry) RegisterOutboundCall(callID, agentID, from, to string) (CallSession, error) {
	return r.register(callID, agentID, DirectionOutbound, from, to)
}

// RegisterInboundCall registers a call first seen via an inbound webhook.
// The agent association may be unset until routing resolves it.
func (r *Registry) RegisterInboundCall(callID, from, to string) (CallSession, error) {
	return r.register(callID, "", DirectionInbound, from, to)
}

func (r *Registry) register(callID, agentID string, dir Direction, from, to string) (CallSession, error) {
	if callID == "" {
		return CallSession{}, fmt.Errorf("register call: call_id required: %w", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[callID]; ok {
		return CallSession{}, fmt.Errorf("register call %s: %w", callID, ErrConflict)
	}
	s := &session{data: CallSession{
		CallID:     callID,
		AgentID:    agentID,
		Direction:  dir,
		Status:     CallStatusInitiated,
		FromNumber: from,
		ToNumber:   to,
		CreatedAt:  r.clock().UTC(),
	}}
	r.sessions[callID] = s
	return s.snapshot(), nil
}

// MapCallToAgent records the call -> agent association. It is an idempotent
// upsert used when inbound routing resolves the agent after registration.
func (r *Registry) MapCallToAgent(callID, agentID string) error {
	s, ok := r.lookup(callID)
	if !ok {
		return fmt.Errorf("map call %s: %w", callID, ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AgentID = agentID
	return nil
}

// StatusChange reports the outcome of ApplyStatus.
type StatusChange struct {
	// Applied is false when the status did not advance (duplicate or
	// out-of-order delivery); that is a no-op, not an error.
	Applied  bool
	Terminal bool
	Session  CallSession
}

// ApplyStatus transitions the call's status. Statuses that do not advance the
// forward-only ordering are ignored so duplicate or reordered webhook
// deliveries never regress state.
func (r *Registry) ApplyStatus(callID string, status CallStatus, meta StatusMetadata) (StatusChange, error) {
	if !status.Valid() {
		return StatusChange{}, fmt.Errorf("apply status %q: %w", status, ErrInvalidArgument)
	}
	s, ok := r.lookup(callID)
	if !ok {
		return StatusChange{}, fmt.Errorf("apply status for call %s: %w", callID, ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !advances(s.data.Status, status) {
		return StatusChange{Applied: false, Terminal: s.data.Status.Terminal(), Session: s.data.clone()}, nil
	}

	s.data.Status = status
	if meta.AnsweredAt != nil && s.data.AnsweredAt == nil {
		t := meta.AnsweredAt.UTC()
		s.data.AnsweredAt = &t
	}
	if status.Terminal() {
		s.terminalAt = r.clock().UTC()
		if meta.EndedAt != nil && s.data.EndedAt == nil {
			t := meta.EndedAt.UTC()
			s.data.EndedAt = &t
		}
		if meta.DurationSeconds != nil && s.data.DurationSeconds == nil {
			d := *meta.DurationSeconds
			s.data.DurationSeconds = &d
		}
	}
	return StatusChange{Applied: true, Terminal: status.Terminal(), Session: s.data.clone()}, nil
}

// AppendTranscript stores the entry in sequence order and forwards it to the
// transcript bus. Publication is never skipped, even for terminal calls, so
// late fragments still reach live observers.
func (r *Registry) AppendTranscript(callID string, e TranscriptEntry) error {
	s, ok := r.lookup(callID)
	if !ok {
		return fmt.Errorf("append transcript for call %s: %w", callID, ErrNotFound)
	}

	s.mu.Lock()
	if e.Timestamp.IsZero() {
		e.Timestamp = r.clock().UTC()
	}
	s.data.Transcript = insertBySequence(s.data.Transcript, e)
	s.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(callID, TranscriptEvent{
			Type:      "transcript",
			CallID:    callID,
			Speaker:   e.Speaker,
			Text:      e.Text,
			Timestamp: e.Timestamp,
			Sequence:  e.Sequence,
		})
	}
	return nil
}

// insertBySequence keeps sequence-numbered entries sorted by sequence while
// unnumbered entries stay in arrival order at the tail.
func insertBySequence(entries []TranscriptEntry, e TranscriptEntry) []TranscriptEntry {
	if e.Sequence <= 0 {
		return append(entries, e)
	}
	// Walk back from the tail; fragments almost always arrive in order.
	i := len(entries)
	for i > 0 && entries[i-1].Sequence > 0 && entries[i-1].Sequence > e.Sequence {
		i--
	}
	entries = append(entries, TranscriptEntry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	return entries
}

func (r *Registry) Get(callID string) (CallSession, error) {
	s, ok := r.lookup(callID)
	if !ok {
		return CallSession{}, fmt.Errorf("call %s: %w", callID, ErrNotFound)
	}
	return s.snapshot(), nil
}

// GetConversation returns the stored transcript for a call. Unknown ids yield
// an empty slice; transcript consumers tolerate "no data yet".
func (r *Registry) GetConversation(callID string) []TranscriptEntry {
	s, ok := r.lookup(callID)
	if !ok {
		return []TranscriptEntry{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TranscriptEntry, len(s.data.Transcript))
	copy(out, s.data.Transcript)
	return out
}

func (r *Registry) lookup(callID string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[callID]
	return s, ok
}

// RunJanitor evicts terminal sessions older than the retention window until
// ctx is canceled. Intended to run as a single background goroutine.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sweep(); n > 0 {
				slog.Debug("call registry sweep", "evicted", n)
			}
		}
	}
}

func (r *Registry) sweep() int {
	cutoff := r.clock().Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		expired := s.data.Status.Terminal() && !s.terminalAt.IsZero() && s.terminalAt.Before(cutoff)
		s.mu.Unlock()
		if expired {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (s *session) snapshot() CallSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone()
}

func (c CallSession) clone() CallSession {
	out := c
	out.Transcript = make([]TranscriptEntry, len(c.Transcript))
	copy(out.Transcript, c.Transcript)
	if c.AnsweredAt != nil {
		t := *c.AnsweredAt
		out.AnsweredAt = &t
	}
	if c.EndedAt != nil {
		t := *c.EndedAt
		out.EndedAt = &t
	}
	if c.DurationSeconds != nil {
		d := *c.DurationSeconds
		out.DurationSeconds = &d
	}
	return out
}
