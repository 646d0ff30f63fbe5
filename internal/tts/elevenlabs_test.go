package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSynthesize(t *testing.T) {
	var gotPath, gotKey string
	var gotBody synthesisRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3bytes"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient(srv.URL, "key-1")
	out, err := c.Synthesize(context.Background(), "Hello there.", VoiceParams{VoiceID: "voice-1", Stability: 0.5})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if out != base64.StdEncoding.EncodeToString([]byte("mp3bytes")) {
		t.Fatalf("unexpected audio: %q", out)
	}

	if gotPath != "/v1/text-to-speech/voice-1" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotKey != "key-1" {
		t.Fatalf("api key header missing, got %q", gotKey)
	}
	if gotBody.Text != "Hello there." || gotBody.VoiceSettings == nil || gotBody.VoiceSettings.Stability != 0.5 {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
}

func TestSynthesizeDefaultVoice(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient(srv.URL, "key-1")
	if _, err := c.Synthesize(context.Background(), "hi", VoiceParams{VoiceID: "default"}); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if gotPath != "/v1/text-to-speech/"+defaultVoiceID {
		t.Fatalf("expected default voice, got %q", gotPath)
	}
}

func TestSynthesizeFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer srv.Close()

	c := NewElevenLabsClient(srv.URL, "bad-key")
	if _, err := c.Synthesize(context.Background(), "hi", VoiceParams{}); err == nil {
		t.Fatalf("expected error on non-200")
	}

	if _, err := c.Synthesize(context.Background(), "", VoiceParams{}); err == nil {
		t.Fatalf("expected error on empty text")
	}

	unkeyed := NewElevenLabsClient(srv.URL, "")
	if _, err := unkeyed.Synthesize(context.Background(), "hi", VoiceParams{}); err == nil {
		t.Fatalf("expected error without api key")
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer empty.Close()
	c = NewElevenLabsClient(empty.URL, "key")
	if _, err := c.Synthesize(context.Background(), "hi", VoiceParams{}); err == nil {
		t.Fatalf("expected error on empty audio body")
	}
}
