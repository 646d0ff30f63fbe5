package calls

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/audio"
	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/internal/tts"
	"voiceagent-platform/pkg/logger"
)

// ConversationRecorder mirrors call summaries to durable storage. Writes are
// best-effort: a failure is logged and never affects in-memory call state.
type ConversationRecorder interface {
	RecordCallStart(ctx context.Context, callID, agentID string, direction Direction, from, to string) error
	RecordStatusUpdate(ctx context.Context, callID string, status CallStatus, meta StatusMetadata) error
}

// ConcurrencyGate caps how many calls an agent may have in flight at once.
type ConcurrencyGate interface {
	Acquire(ctx context.Context, agentID string) (bool, error)
	Release(ctx context.Context, agentID string) error
}

// maxGreetingChars keeps spoken greetings short when derived from a prompt.
const maxGreetingChars = 240

// Orchestrator coordinates outbound call placement: greeting preparation
// (with graceful TTS degradation), call script construction, provider
// submission and registration in the call registry.
//
// External collaborator calls (TTS, telephony, persistence) all happen
// outside any registry critical section.
type Orchestrator struct {
	registry  *Registry
	directory agents.Directory
	provider  telephony.Provider
	audio     *audio.Store

	// synth may be nil; greeting synthesis then degrades to the provider's
	// native text-to-speech.
	synth    tts.Synthesizer
	recorder ConversationRecorder
	gate     ConcurrencyGate

	// serverURL is this service's public base URL; empty disables status
	// callbacks and hosted greeting audio.
	serverURL      string
	mediaStreamURL string
}

// OrchestratorDeps wires the orchestrator. Registry, Directory, Provider and
// AudioStore are required; the rest are optional.
type OrchestratorDeps struct {
	Registry   *Registry
	Directory  agents.Directory
	Provider   telephony.Provider
	AudioStore *audio.Store

	Synthesizer tts.Synthesizer
	Recorder    ConversationRecorder
	Gate        ConcurrencyGate

	ServerURL      string
	MediaStreamURL string
}

func NewOrchestrator(d OrchestratorDeps) (*Orchestrator, error) {
	if d.Registry == nil || d.Directory == nil || d.Provider == nil || d.AudioStore == nil {
		return nil, errors.New("calls: orchestrator requires registry, directory, provider and audio store")
	}
	if strings.TrimSpace(d.MediaStreamURL) == "" {
		return nil, errors.New("calls: orchestrator requires a media stream url")
	}
	return &Orchestrator{
		registry:       d.Registry,
		directory:      d.Directory,
		provider:       d.Provider,
		audio:          d.AudioStore,
		synth:          d.Synthesizer,
		recorder:       d.Recorder,
		gate:           d.Gate,
		serverURL:      strings.TrimRight(d.ServerURL, "/"),
		mediaStreamURL: d.MediaStreamURL,
	}, nil
}

// PlacedCall is the caller-visible result of a successful initiation.
type PlacedCall struct {
	CallID         string `json:"call_id"`
	ProviderStatus string `json:"provider_status"`
	From           string `json:"from"`
	To             string `json:"to"`
}

// InitiateCall places an outbound call from the agent's number to
// phoneNumber. Call placement is not retried automatically; the caller
// decides whether to retry on ErrUpstream.
func (o *Orchestrator) InitiateCall(ctx context.Context, agentID, phoneNumber string) (PlacedCall, error) {
	log := logger.From(ctx)

	if strings.TrimSpace(agentID) == "" {
		return PlacedCall{}, fmt.Errorf("agent_id required: %w", ErrInvalidArgument)
	}
	if !ValidE164(phoneNumber) {
		return PlacedCall{}, fmt.Errorf("phone number must be E.164 (+1234567890): %w", ErrInvalidArgument)
	}

	agent, err := o.directory.GetAgentConfig(ctx, agentID)
	if err != nil {
		if errors.Is(err, agents.ErrNotFound) {
			return PlacedCall{}, fmt.Errorf("agent %s: %w", agentID, ErrNotFound)
		}
		return PlacedCall{}, fmt.Errorf("resolve agent %s: %w", agentID, err)
	}
	if !agent.Twilio.Complete() {
		return PlacedCall{}, fmt.Errorf("agent %s: %w", agentID, ErrInvalidConfiguration)
	}

	greeting := o.prepareGreeting(ctx, agent)

	streamQuery := url.Values{}
	streamQuery.Set("source", "twilio")
	streamQuery.Set("agentId", agentID)
	script, err := telephony.RenderVoiceScript(telephony.VoiceScript{
		Greeting:  greeting,
		StreamURL: o.mediaStreamURL + "?" + streamQuery.Encode(),
	})
	if err != nil {
		return PlacedCall{}, fmt.Errorf("build call script: %w", err)
	}

	if o.gate != nil {
		ok, err := o.gate.Acquire(ctx, agentID)
		if err != nil {
			// Cap infrastructure trouble must not block calling.
			log.Warn("concurrency gate unavailable, allowing call", "agent_id", agentID, "err", err)
		} else if !ok {
			return PlacedCall{}, fmt.Errorf("agent %s: %w", agentID, ErrTooManyCalls)
		}
	}

	statusCallback := ""
	if o.serverURL != "" {
		statusCallback = o.serverURL + "/webhooks/twilio/status"
	} else {
		log.Warn("server url not configured, status callbacks disabled")
	}

	res, err := o.provider.PlaceCall(ctx, telephony.PlaceCallRequest{
		Credentials: telephony.Credentials{
			AccountSID: agent.Twilio.AccountSID,
			AuthToken:  agent.Twilio.AuthToken,
		},
		From:              agent.Twilio.PhoneNumber,
		To:                phoneNumber,
		Script:            script,
		StatusCallbackURL: statusCallback,
	})
	if err != nil {
		o.releaseGate(ctx, agentID)
		return PlacedCall{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	// The call is in flight from here on; registration and persistence
	// problems are logged, not returned.
	if _, err := o.registry.RegisterOutboundCall(res.CallID, agentID, agent.Twilio.PhoneNumber, phoneNumber); err != nil {
		log.Error("call registration failed", "call_id", res.CallID, "err", err)
	}
	if o.recorder != nil {
		if err := o.recorder.RecordCallStart(ctx, res.CallID, agentID, DirectionOutbound, agent.Twilio.PhoneNumber, phoneNumber); err != nil {
			log.Warn("conversation mirror write failed", "call_id", res.CallID, "err", err)
		}
	}

	log.Info("outbound call placed",
		"call_id", res.CallID, "agent_id", agentID,
		"to", phoneNumber, "provider_status", res.ProviderStatus)

	return PlacedCall{
		CallID:         res.CallID,
		ProviderStatus: res.ProviderStatus,
		From:           agent.Twilio.PhoneNumber,
		To:             phoneNumber,
	}, nil
}

// prepareGreeting derives the greeting text and attempts synthesis. Synthesis
// failure is a degraded success, never a placement failure: the script falls
// back to the provider's native text-to-speech.
func (o *Orchestrator) prepareGreeting(ctx context.Context, agent agents.AgentConfig) telephony.Greeting {
	log := logger.From(ctx)

	text := greetingText(agent)
	if text == "" {
		return telephony.Greeting{Mode: telephony.GreetingNone}
	}

	if o.synth == nil || o.serverURL == "" {
		return telephony.Greeting{Mode: telephony.GreetingSay, Text: text}
	}

	audioB64, err := o.synth.Synthesize(ctx, text, tts.VoiceParams{
		VoiceID:         agent.Voice.VoiceID,
		Stability:       agent.Voice.Stability,
		SimilarityBoost: agent.Voice.SimilarityBoost,
		Speed:           agent.Voice.Speed,
	})
	if err != nil || audioB64 == "" {
		log.Warn("greeting synthesis failed, using provider speech", "agent_id", agent.AgentID, "err", err)
		return telephony.Greeting{Mode: telephony.GreetingSay, Text: text}
	}

	audioID := o.audio.Store(audioB64, "audio/mpeg")
	return telephony.Greeting{
		Mode:     telephony.GreetingPlay,
		Text:     text,
		AudioURL: o.serverURL + "/audio/" + audioID,
	}
}

// greetingText prefers the configured greeting, else the first sentence of
// the system prompt, bounded so spoken greetings stay short.
func greetingText(agent agents.AgentConfig) string {
	if g := strings.TrimSpace(agent.Voice.Greeting); g != "" {
		return g
	}
	prompt := agent.SystemPrompt
	if prompt == "" {
		return ""
	}
	first := prompt
	if i := strings.IndexAny(prompt, ".\n"); i >= 0 {
		first = prompt[:i]
	}
	first = strings.TrimSpace(first)
	if runes := []rune(first); len(runes) > maxGreetingChars {
		first = string(runes[:maxGreetingChars])
	}
	return first
}

// FetchProviderStatus fetches the provider's current view of a call using the
// owning agent's credentials. Used when the registry no longer holds the call.
func (o *Orchestrator) FetchProviderStatus(ctx context.Context, agentID, callID string) (telephony.CallSnapshot, error) {
	if agentID == "" || callID == "" {
		return telephony.CallSnapshot{}, fmt.Errorf("agent_id and call_id required: %w", ErrInvalidArgument)
	}
	agent, err := o.directory.GetAgentConfig(ctx, agentID)
	if err != nil {
		if errors.Is(err, agents.ErrNotFound) {
			return telephony.CallSnapshot{}, fmt.Errorf("agent %s: %w", agentID, ErrNotFound)
		}
		return telephony.CallSnapshot{}, fmt.Errorf("resolve agent %s: %w", agentID, err)
	}
	if agent.Twilio.AccountSID == "" || agent.Twilio.AuthToken == "" {
		return telephony.CallSnapshot{}, fmt.Errorf("agent %s: %w", agentID, ErrInvalidConfiguration)
	}

	snap, err := o.provider.FetchCall(ctx, telephony.FetchCallRequest{
		Credentials: telephony.Credentials{
			AccountSID: agent.Twilio.AccountSID,
			AuthToken:  agent.Twilio.AuthToken,
		},
		CallID: callID,
	})
	if err != nil {
		return telephony.CallSnapshot{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return snap, nil
}

func (o *Orchestrator) releaseGate(ctx context.Context, agentID string) {
	if o.gate == nil {
		return
	}
	if err := o.gate.Release(ctx, agentID); err != nil {
		logger.From(ctx).Warn("concurrency gate release failed", "agent_id", agentID, "err", err)
	}
}
