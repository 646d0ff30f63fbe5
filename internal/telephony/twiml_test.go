package telephony

import (
	"strings"
	"testing"
)

func TestRenderVoiceScriptPlayGreeting(t *testing.T) {
	out, err := RenderVoiceScript(VoiceScript{
		Greeting: Greeting{
			Mode:     GreetingPlay,
			Text:     "Hello there.",
			AudioURL: "https://api.example.com/audio/abc",
		},
		StreamURL: "wss://api.example.com/webhooks/media/stream?source=twilio",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<Play>https://api.example.com/audio/abc</Play>") {
		t.Fatalf("missing play verb:\n%s", out)
	}
	if !strings.Contains(out, `<Stream url="wss://api.example.com/webhooks/media/stream?source=twilio">`) {
		t.Fatalf("missing stream verb:\n%s", out)
	}
	if strings.Index(out, "<Play>") > strings.Index(out, "<Connect>") {
		t.Fatalf("greeting must precede the bridge:\n%s", out)
	}
}

func TestRenderVoiceScriptSayGreeting(t *testing.T) {
	out, err := RenderVoiceScript(VoiceScript{
		Greeting:  Greeting{Mode: GreetingSay, Text: "Hi & welcome"},
		StreamURL: "wss://example.com/ws",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `<Say voice="alice" language="en-US">Hi &amp; welcome</Say>`) {
		t.Fatalf("missing say verb:\n%s", out)
	}
}

func TestRenderVoiceScriptNoGreeting(t *testing.T) {
	out, err := RenderVoiceScript(VoiceScript{StreamURL: "wss://example.com/ws"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<Say") || strings.Contains(out, "<Play") {
		t.Fatalf("expected no greeting verb:\n%s", out)
	}
	if !strings.Contains(out, "<Connect>") {
		t.Fatalf("missing connect verb:\n%s", out)
	}
}

func TestRenderVoiceScriptValidation(t *testing.T) {
	if _, err := RenderVoiceScript(VoiceScript{}); err == nil {
		t.Fatalf("expected error without stream url")
	}
	if _, err := RenderVoiceScript(VoiceScript{
		Greeting:  Greeting{Mode: GreetingPlay},
		StreamURL: "wss://example.com/ws",
	}); err == nil {
		t.Fatalf("expected error for play greeting without audio url")
	}
	if _, err := RenderVoiceScript(VoiceScript{
		Greeting:  Greeting{Mode: GreetingSay},
		StreamURL: "wss://example.com/ws",
	}); err == nil {
		t.Fatalf("expected error for say greeting without text")
	}
	if _, err := RenderVoiceScript(VoiceScript{
		Greeting:  Greeting{Mode: "shout", Text: "x"},
		StreamURL: "wss://example.com/ws",
	}); err == nil {
		t.Fatalf("expected error for unknown greeting mode")
	}
}
