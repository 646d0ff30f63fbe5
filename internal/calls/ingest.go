package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/pkg/logger"
)

// AgentResolver maps a dialed number to the agent that answers it. Inbound
// routing data is owned by the surrounding application, so the resolver is
// injected.
type AgentResolver func(ctx context.Context, toNumber string) (string, error)

// Ingestor normalizes asynchronous provider and media-bridge events and
// applies them to the registry and transcript bus. It implements
// telephony.EventSink.
//
// Idempotency: providers may deliver status events more than once and out of
// order; re-applying an already-reached or earlier status is a no-op.
type Ingestor struct {
	registry *Registry
	bus      TranscriptSink
	recorder ConversationRecorder
	gate     ConcurrencyGate
	resolver AgentResolver

	clock func() time.Time
}

func NewIngestor(registry *Registry, bus TranscriptSink) *Ingestor {
	return &Ingestor{
		registry: registry,
		bus:      bus,
		clock:    time.Now,
	}
}

// WithRecorder attaches the best-effort persistence mirror.
func (in *Ingestor) WithRecorder(r ConversationRecorder) *Ingestor {
	in.recorder = r
	return in
}

// WithGate attaches the per-agent concurrency gate released on terminal
// transitions of outbound calls.
func (in *Ingestor) WithGate(g ConcurrencyGate) *Ingestor {
	in.gate = g
	return in
}

// WithAgentResolver attaches inbound number -> agent resolution.
func (in *Ingestor) WithAgentResolver(r AgentResolver) *Ingestor {
	in.resolver = r
	return in
}

// canonicalStatus maps the provider's status vocabulary onto the canonical
// state set. Unknown vocabulary is reported, not guessed.
func canonicalStatus(provider string) (CallStatus, bool) {
	switch provider {
	case "queued", "initiated":
		return CallStatusInitiated, true
	case "ringing":
		return CallStatusRinging, true
	case "in-progress", "answered":
		return CallStatusInProgress, true
	case "completed":
		return CallStatusCompleted, true
	case "busy":
		return CallStatusBusy, true
	case "no-answer":
		return CallStatusNoAnswer, true
	case "failed", "canceled":
		return CallStatusFailed, true
	default:
		return "", false
	}
}

func normalizeSpeaker(s string) Speaker {
	switch s {
	case "caller", "user", "human":
		return SpeakerCaller
	case "agent", "assistant", "bot":
		return SpeakerAgent
	default:
		return SpeakerSystem
	}
}

// OnStatusEvent applies a lifecycle callback. Derived metadata: answeredAt
// when entering in-progress with an answered signal, endedAt and duration
// when entering a terminal state. The mirror write is best-effort.
func (in *Ingestor) OnStatusEvent(ctx context.Context, ev telephony.StatusEvent) error {
	log := logger.From(ctx)

	status, ok := canonicalStatus(ev.ProviderStatus)
	if !ok {
		log.Warn("unknown provider status ignored", "call_id", ev.CallID, "provider_status", ev.ProviderStatus)
		return nil
	}

	now := in.clock().UTC()
	meta := StatusMetadata{}
	if status == CallStatusInProgress && ev.AnsweredBy != "" {
		meta.AnsweredAt = &now
	}
	if status.Terminal() {
		meta.EndedAt = &now
		if ev.DurationSeconds > 0 {
			d := ev.DurationSeconds
			meta.DurationSeconds = &d
		}
	}

	change, err := in.registry.ApplyStatus(ev.CallID, status, meta)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Status events can race call registration; drop, don't fail.
			log.Warn("status event for unknown call dropped", "call_id", ev.CallID, "status", status)
			return nil
		}
		return fmt.Errorf("apply status: %w", err)
	}
	if !change.Applied {
		log.Debug("stale status event ignored", "call_id", ev.CallID, "status", status)
		return nil
	}

	if in.recorder != nil {
		if err := in.recorder.RecordStatusUpdate(ctx, ev.CallID, status, meta); err != nil {
			// In-memory state is authoritative for the live call; a mirror
			// failure never rolls it back.
			log.Warn("conversation mirror update failed", "call_id", ev.CallID, "err", err)
		}
	}

	if change.Terminal {
		if in.bus != nil {
			in.bus.Complete(ev.CallID)
		}
		if in.gate != nil && change.Session.Direction == DirectionOutbound && change.Session.AgentID != "" {
			if err := in.gate.Release(ctx, change.Session.AgentID); err != nil {
				log.Warn("concurrency gate release failed", "agent_id", change.Session.AgentID, "err", err)
			}
		}
		log.Info("call ended",
			"call_id", ev.CallID, "status", status,
			"duration_seconds", ev.DurationSeconds)
	}
	return nil
}

// OnTranscriptFragment stores and publishes one recognized-speech fragment.
// Fragments for unknown calls are logged and dropped: media events may race
// call registration by a few milliseconds.
func (in *Ingestor) OnTranscriptFragment(ctx context.Context, f telephony.TranscriptFrame) error {
	if f.CallID == "" || f.Text == "" {
		return nil
	}

	entry := TranscriptEntry{
		Speaker:   normalizeSpeaker(f.Speaker),
		Text:      f.Text,
		Timestamp: in.clock().UTC(),
		Sequence:  f.Sequence,
	}
	if err := in.registry.AppendTranscript(f.CallID, entry); err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.From(ctx).Warn("transcript fragment for unknown call dropped", "call_id", f.CallID)
			return nil
		}
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// OnInboundCall registers a call first seen via webhook and resolves the
// answering agent. Duplicate webhooks for an already-registered call are
// tolerated.
func (in *Ingestor) OnInboundCall(ctx context.Context, ev telephony.InboundCallEvent) (string, error) {
	log := logger.From(ctx)

	_, err := in.registry.RegisterInboundCall(ev.CallID, ev.From, ev.To)
	if err != nil && !errors.Is(err, ErrConflict) {
		return "", fmt.Errorf("register inbound call: %w", err)
	}
	registered := err == nil

	agentID := ""
	if in.resolver != nil {
		agentID, err = in.resolver(ctx, ev.To)
		if err != nil {
			log.Warn("inbound agent resolution failed", "call_id", ev.CallID, "to", ev.To, "err", err)
			agentID = ""
		} else if agentID != "" {
			if err := in.registry.MapCallToAgent(ev.CallID, agentID); err != nil {
				log.Warn("inbound agent mapping failed", "call_id", ev.CallID, "err", err)
			}
		}
	}

	if registered && in.recorder != nil {
		if err := in.recorder.RecordCallStart(ctx, ev.CallID, agentID, DirectionInbound, ev.From, ev.To); err != nil {
			log.Warn("conversation mirror write failed", "call_id", ev.CallID, "err", err)
		}
	}
	return agentID, nil
}

// OnStreamStop ends the live transcript stream for a call. The registry entry
// stays; late fragments are still accepted and published.
func (in *Ingestor) OnStreamStop(ctx context.Context, callID string) {
	if in.bus != nil {
		in.bus.Complete(callID)
	}
}
