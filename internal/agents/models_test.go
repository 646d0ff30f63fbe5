package agents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestTwilioConfigComplete(t *testing.T) {
	c := TwilioConfig{AccountSID: "AC1", AuthToken: "tok", PhoneNumber: "+15550001111"}
	if !c.Complete() {
		t.Fatalf("expected complete config")
	}
	for _, broken := range []TwilioConfig{
		{AuthToken: "tok", PhoneNumber: "+15550001111"},
		{AccountSID: "AC1", PhoneNumber: "+15550001111"},
		{AccountSID: "AC1", AuthToken: "tok"},
		{AccountSID: " ", AuthToken: "tok", PhoneNumber: "+15550001111"},
	} {
		if broken.Complete() {
			t.Fatalf("expected incomplete config: %+v", broken)
		}
	}
}

func TestConfigDocumentDecoding(t *testing.T) {
	// The CRUD layer stores camelCase JSON documents.
	var tw TwilioConfig
	if err := json.Unmarshal([]byte(`{"accountSid":"AC1","authToken":"tok","phoneNumber":"+15550001111"}`), &tw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tw.AccountSID != "AC1" || tw.PhoneNumber != "+15550001111" {
		t.Fatalf("unexpected config: %+v", tw)
	}

	var v VoiceSettings
	if err := json.Unmarshal([]byte(`{"voiceId":"voice-1","greeting":"Hi.","stability":0.4}`), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.VoiceID != "voice-1" || v.Greeting != "Hi." || v.Stability != 0.4 {
		t.Fatalf("unexpected settings: %+v", v)
	}
}

func TestMemoryDirectory(t *testing.T) {
	d := NewMemoryDirectory()
	d.Put(AgentConfig{
		AgentID: "agent-1",
		Twilio:  TwilioConfig{AccountSID: "AC1", AuthToken: "tok", PhoneNumber: "+15550001111"},
	})

	ctx := context.Background()
	if _, err := d.GetAgentConfig(ctx, "agent-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := d.GetAgentConfig(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	id, err := d.ResolveAgentByNumber(ctx, "+15550001111")
	if err != nil || id != "agent-1" {
		t.Fatalf("resolve: %q %v", id, err)
	}
	if _, err := d.ResolveAgentByNumber(ctx, "+15550009999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
