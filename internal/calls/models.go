package calls

import (
	"errors"
	"regexp"
	"time"
)

// CallSession tracks one phone call from placement (or first inbound webhook)
// to termination.
//
// Status invariant: status only moves forward in the ordering
// initiated < ringing < in-progress < terminal. Once terminal, status,
// EndedAt and DurationSeconds are frozen; transcript entries may still
// arrive briefly after termination and are accepted.
//
// Provider-specific vocabulary (Twilio CallSid, CallStatus strings) must be
// normalized by the webhook ingestor before it reaches this model.

type CallSession struct {
	CallID  string `json:"call_id"`
	AgentID string `json:"agent_id,omitempty"`

	Direction Direction  `json:"direction"`
	Status    CallStatus `json:"status"`

	FromNumber string `json:"from"`
	ToNumber   string `json:"to"`

	CreatedAt       time.Time  `json:"created_at"`
	AnsweredAt      *time.Time `json:"answered_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`

	// Transcript is append-only; entries carrying a sequence number are kept
	// in sequence order regardless of arrival order.
	Transcript []TranscriptEntry `json:"transcript"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type CallStatus string

const (
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusNoAnswer   CallStatus = "no-answer"
)

// statusRank encodes the forward-only ordering. All terminal outcomes share a
// rank so no terminal state can replace another.
var statusRank = map[CallStatus]int{
	CallStatusInitiated:  1,
	CallStatusRinging:    2,
	CallStatusInProgress: 3,
	CallStatusCompleted:  4,
	CallStatusFailed:     4,
	CallStatusBusy:       4,
	CallStatusNoAnswer:   4,
}

func (s CallStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s CallStatus) Terminal() bool {
	return statusRank[s] == 4
}

// advances reports whether moving from -> to is a forward transition.
// Duplicate and out-of-order statuses do not advance.
func advances(from, to CallStatus) bool {
	return statusRank[to] > statusRank[from]
}

type Speaker string

const (
	SpeakerCaller Speaker = "caller"
	SpeakerAgent  Speaker = "agent"
	SpeakerSystem Speaker = "system"
)

// TranscriptEntry is one utterance or system note attributed to a call.
// Sequence <= 0 means the media bridge did not number the fragment; such
// entries are stored in arrival order.
type TranscriptEntry struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  int64     `json:"sequence,omitempty"`
}

// StatusMetadata carries derived timestamps for a status transition.
// Fields already set on the session are never overwritten.
type StatusMetadata struct {
	AnsweredAt      *time.Time
	EndedAt         *time.Time
	DurationSeconds *int
}

// Error taxonomy for the call subsystem. Handlers map these with errors.Is.
var (
	ErrInvalidArgument      = errors.New("calls: invalid argument")
	ErrNotFound             = errors.New("calls: not found")
	ErrConflict             = errors.New("calls: already registered")
	ErrInvalidConfiguration = errors.New("calls: agent telephony configuration incomplete")
	ErrUpstream             = errors.New("calls: upstream provider failure")
	ErrTooManyCalls         = errors.New("calls: agent concurrent call limit reached")
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidE164 reports whether s is an E.164 phone number (+14155550123).
func ValidE164(s string) bool {
	return e164Pattern.MatchString(s)
}
