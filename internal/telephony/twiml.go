package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// Minimal TwiML builder for voice call scripts. No provider SDK dependency;
// only the verbs this service emits are modeled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type twimlSay struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type twimlConnect struct {
	XMLName xml.Name    `xml:"Connect"`
	Stream  twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL string `xml:"url,attr"`
}

// GreetingMode selects how the greeting is spoken, if at all.
type GreetingMode string

const (
	// GreetingNone omits the greeting verb entirely.
	GreetingNone GreetingMode = "none"
	// GreetingPlay plays pre-synthesized audio fetched from AudioURL.
	GreetingPlay GreetingMode = "play"
	// GreetingSay uses the provider's native text-to-speech; this is the
	// degraded path when synthesis is unavailable.
	GreetingSay GreetingMode = "say"
)

const (
	defaultSayVoice    = "alice"
	defaultSayLanguage = "en-US"
)

// Greeting is the explicit result of greeting preparation, including the
// degraded-success variant (GreetingSay after a synthesis failure).
type Greeting struct {
	Mode     GreetingMode
	Text     string
	AudioURL string
}

// VoiceScript describes a call script: optional greeting, then bridge the
// call audio to the real-time media endpoint.
type VoiceScript struct {
	Greeting Greeting

	// StreamURL is the websocket endpoint of the media bridge, including
	// correlation query parameters (source, agent id).
	StreamURL string
}

// RenderVoiceScript encodes the script as TwiML.
func RenderVoiceScript(s VoiceScript) (string, error) {
	if strings.TrimSpace(s.StreamURL) == "" {
		return "", errors.New("telephony: stream url required for voice script")
	}

	var r twimlResponse
	switch s.Greeting.Mode {
	case GreetingNone, "":
	case GreetingPlay:
		if strings.TrimSpace(s.Greeting.AudioURL) == "" {
			return "", errors.New("telephony: audio url required for play greeting")
		}
		r.Verbs = append(r.Verbs, twimlPlay{URL: s.Greeting.AudioURL})
	case GreetingSay:
		if strings.TrimSpace(s.Greeting.Text) == "" {
			return "", errors.New("telephony: text required for say greeting")
		}
		r.Verbs = append(r.Verbs, twimlSay{Voice: defaultSayVoice, Language: defaultSayLanguage, Text: s.Greeting.Text})
	default:
		return "", errors.New("telephony: unknown greeting mode")
	}
	r.Verbs = append(r.Verbs, twimlConnect{Stream: twimlStream{URL: s.StreamURL}})

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
