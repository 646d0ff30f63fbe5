// Package tts wraps the external speech-synthesis service. Synthesis is an
// opaque collaborator: callers get base64 audio bytes or an error, and the
// orchestrator degrades gracefully when synthesis fails.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// VoiceParams tune one synthesis request.
type VoiceParams struct {
	VoiceID         string
	Stability       float64
	SimilarityBoost float64
	Speed           float64
}

// Synthesizer converts text to speech and returns the audio base64-encoded.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, params VoiceParams) (string, error)
}

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

	// maxAudioBytes bounds how much synthesized audio we buffer; greetings
	// are short clips.
	maxAudioBytes = 10 << 20
)

// ElevenLabsClient calls the ElevenLabs text-to-speech REST API.
// No SDK dependency; the adapter speaks plain HTTP.
type ElevenLabsClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewElevenLabsClient(baseURL, apiKey string) *ElevenLabsClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &ElevenLabsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type synthesisRequest struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarity_boost,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, params VoiceParams) (string, error) {
	if text == "" {
		return "", fmt.Errorf("tts: text is required")
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("tts: api key not configured")
	}

	voiceID := params.VoiceID
	if voiceID == "" || voiceID == "default" {
		voiceID = defaultVoiceID
	}

	body := synthesisRequest{Text: text}
	if params.Stability != 0 || params.SimilarityBoost != 0 || params.Speed != 0 {
		body.VoiceSettings = &voiceSettings{
			Stability:       params.Stability,
			SimilarityBoost: params.SimilarityBoost,
			Speed:           params.Speed,
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("tts: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("tts: synthesis failed: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return "", fmt.Errorf("tts: read audio: %w", err)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("tts: empty synthesis result")
	}
	return base64.StdEncoding.EncodeToString(audio), nil
}
