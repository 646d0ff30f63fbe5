package telephony

import (
	"context"
	"time"
)

// Provider is the provider-agnostic telephony contract used by call
// orchestration.
//
// Rules:
// - No provider SDK or REST calls outside telephony adapters.
// - Request/response types stay provider-agnostic; webhook payload shapes are
//   normalized in this package before reaching the rest of the core.
type Provider interface {
	Name() string
	PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error)
	FetchCall(ctx context.Context, req FetchCallRequest) (CallSnapshot, error)
}

// Credentials identify the account a call is placed with. Agents carry their
// own provider credentials, so these travel per request.
type Credentials struct {
	AccountSID string
	AuthToken  string
}

type PlaceCallRequest struct {
	Credentials

	// From and To are E.164.
	From string
	To   string

	// Script is the provider call script (TwiML for Twilio) executed when
	// the callee answers.
	Script string

	// StatusCallbackURL, when set, asks the provider to POST lifecycle
	// events back to us. Empty disables callbacks.
	StatusCallbackURL string
}

type PlaceCallResult struct {
	// CallID is the provider-assigned identifier, stable for the call's
	// lifetime.
	CallID string

	// ProviderStatus is the provider's initial status vocabulary, unmapped.
	ProviderStatus string
}

type FetchCallRequest struct {
	Credentials
	CallID string
}

// CallSnapshot is a point-in-time provider view of a call.
type CallSnapshot struct {
	CallID          string `json:"call_id"`
	ProviderStatus  string `json:"status"`
	From            string `json:"from"`
	To              string `json:"to"`
	Direction       string `json:"direction,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// StatusEvent is a normalized lifecycle callback from the provider.
// ProviderStatus keeps the provider vocabulary; the webhook ingestor maps it
// to the canonical state set.
type StatusEvent struct {
	CallID         string
	ProviderStatus string

	From string
	To   string

	// AnsweredBy is non-empty when the provider detected who picked up
	// (human, machine). Its presence marks the answered transition.
	AnsweredBy string

	// DurationSeconds is reported by the provider on terminal events only.
	DurationSeconds int

	OccurredAt time.Time
}

// InboundCallEvent is the first webhook for a call we did not place.
type InboundCallEvent struct {
	CallID     string
	From       string
	To         string
	OccurredAt time.Time
}

// TranscriptFrame is one recognized-speech fragment from the media bridge.
type TranscriptFrame struct {
	CallID  string
	Speaker string
	Text    string

	// Sequence is the bridge's per-call fragment counter; <= 0 when the
	// bridge did not number the fragment.
	Sequence int64
}

// EventSink consumes normalized provider and media-bridge events. The webhook
// and websocket handlers in this package translate boundary payloads into
// these calls and make no decisions themselves.
type EventSink interface {
	// OnInboundCall registers the session and returns the resolved agent id
	// ("" when routing could not resolve one yet).
	OnInboundCall(ctx context.Context, ev InboundCallEvent) (agentID string, err error)
	OnStatusEvent(ctx context.Context, ev StatusEvent) error
	OnTranscriptFragment(ctx context.Context, f TranscriptFrame) error
	OnStreamStop(ctx context.Context, callID string)
}
