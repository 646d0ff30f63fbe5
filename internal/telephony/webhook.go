package telephony

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Twilio delivers webhooks as application/x-www-form-urlencoded. These
// parsers capture the subset of fields the core consumes and normalize them
// into provider-agnostic events; Twilio field names must not leak past this
// file.

// TwilioStatusForm is a call status callback.
// Ref: https://www.twilio.com/docs/voice/api/call-resource#statuscallback
type TwilioStatusForm struct {
	CallSid      string
	CallStatus   string
	CallDuration string
	AnsweredBy   string
	From         string
	To           string
	Timestamp    string
	SequenceNumber string
}

func ParseTwilioStatusCallback(r *http.Request) (TwilioStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioStatusForm{}, err
	}
	return TwilioStatusForm{
		CallSid:        r.PostFormValue("CallSid"),
		CallStatus:     r.PostFormValue("CallStatus"),
		CallDuration:   r.PostFormValue("CallDuration"),
		AnsweredBy:     r.PostFormValue("AnsweredBy"),
		From:           strings.TrimSpace(r.PostFormValue("From")),
		To:             strings.TrimSpace(r.PostFormValue("To")),
		Timestamp:      r.PostFormValue("Timestamp"),
		SequenceNumber: r.PostFormValue("SequenceNumber"),
	}, nil
}

func (f TwilioStatusForm) ToStatusEvent(occurredAt time.Time) StatusEvent {
	duration, _ := strconv.Atoi(f.CallDuration)
	if ts, err := time.Parse(time.RFC1123Z, f.Timestamp); err == nil {
		occurredAt = ts
	}
	return StatusEvent{
		CallID:          f.CallSid,
		ProviderStatus:  f.CallStatus,
		From:            f.From,
		To:              f.To,
		AnsweredBy:      f.AnsweredBy,
		DurationSeconds: duration,
		OccurredAt:      occurredAt,
	}
}

// TwilioVoiceForm is the inbound-call webhook.
type TwilioVoiceForm struct {
	CallSid    string
	From       string
	To         string
	Direction  string
	CallStatus string
}

func ParseTwilioVoiceWebhook(r *http.Request) (TwilioVoiceForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioVoiceForm{}, err
	}
	return TwilioVoiceForm{
		CallSid:    r.PostFormValue("CallSid"),
		From:       strings.TrimSpace(r.PostFormValue("From")),
		To:         strings.TrimSpace(r.PostFormValue("To")),
		Direction:  r.PostFormValue("Direction"),
		CallStatus: r.PostFormValue("CallStatus"),
	}, nil
}

func (f TwilioVoiceForm) ToInboundCallEvent(occurredAt time.Time) InboundCallEvent {
	return InboundCallEvent{
		CallID:     f.CallSid,
		From:       f.From,
		To:         f.To,
		OccurredAt: occurredAt,
	}
}
