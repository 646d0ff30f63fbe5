package telephony

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseTwilioStatusCallback(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("CallStatus", "completed")
	form.Set("CallDuration", "42")
	form.Set("AnsweredBy", "human")
	form.Set("From", " +15550001111 ")
	form.Set("To", "+15550002222")

	req := httptest.NewRequest("POST", "/webhooks/twilio/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parsed, err := ParseTwilioStatusCallback(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.CallSid != "CA123" || parsed.CallStatus != "completed" {
		t.Fatalf("unexpected form: %+v", parsed)
	}
	if parsed.From != "+15550001111" {
		t.Fatalf("from not trimmed: %q", parsed.From)
	}

	fallback := time.Unix(1700000000, 0).UTC()
	ev := parsed.ToStatusEvent(fallback)
	if ev.CallID != "CA123" || ev.ProviderStatus != "completed" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.DurationSeconds != 42 || ev.AnsweredBy != "human" {
		t.Fatalf("unexpected event fields: %+v", ev)
	}
	if !ev.OccurredAt.Equal(fallback) {
		t.Fatalf("expected fallback time without Timestamp field")
	}
}

func TestStatusCallbackTimestampOverridesFallback(t *testing.T) {
	f := TwilioStatusForm{
		CallSid:    "CA123",
		CallStatus: "ringing",
		Timestamp:  "Tue, 14 Nov 2023 22:13:20 +0000",
	}
	ev := f.ToStatusEvent(time.Unix(0, 0))
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	if !ev.OccurredAt.Equal(want) {
		t.Fatalf("expected provider timestamp, got %v", ev.OccurredAt)
	}

	// Garbage durations decode to zero, never an error.
	f.CallDuration = "n/a"
	if ev := f.ToStatusEvent(time.Now()); ev.DurationSeconds != 0 {
		t.Fatalf("expected zero duration, got %d", ev.DurationSeconds)
	}
}

func TestParseTwilioVoiceWebhook(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CAinbound")
	form.Set("From", "+15550009999")
	form.Set("To", "+15550001111")
	form.Set("Direction", "inbound")

	req := httptest.NewRequest("POST", "/webhooks/twilio/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parsed, err := ParseTwilioVoiceWebhook(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	now := time.Now().UTC()
	ev := parsed.ToInboundCallEvent(now)
	if ev.CallID != "CAinbound" || ev.From != "+15550009999" || ev.To != "+15550001111" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if !ev.OccurredAt.Equal(now) {
		t.Fatalf("unexpected time: %v", ev.OccurredAt)
	}
}
