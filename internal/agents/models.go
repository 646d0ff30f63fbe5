package agents

import "strings"

// AgentConfig is the voice-agent configuration the call subsystem consumes.
// Agent records are owned by the surrounding CRUD application; this package
// only reads them.
type AgentConfig struct {
	AgentID      string        `json:"agent_id"`
	Name         string        `json:"name"`
	SystemPrompt string        `json:"system_prompt"`
	Twilio       TwilioConfig  `json:"twilio_config"`
	Voice        VoiceSettings `json:"voice_settings"`
}

// TwilioConfig holds the per-agent telephony credentials. Calls are placed
// with the agent's own account, not a platform-wide one.
type TwilioConfig struct {
	AccountSID  string `json:"accountSid"`
	AuthToken   string `json:"authToken"`
	PhoneNumber string `json:"phoneNumber"`
}

// Complete reports whether the config is sufficient to place a call.
func (c TwilioConfig) Complete() bool {
	return strings.TrimSpace(c.AccountSID) != "" &&
		strings.TrimSpace(c.AuthToken) != "" &&
		strings.TrimSpace(c.PhoneNumber) != ""
}

// VoiceSettings tune speech synthesis for the agent's greeting.
type VoiceSettings struct {
	VoiceID         string  `json:"voiceId"`
	Greeting        string  `json:"greeting"`
	Stability       float64 `json:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarityBoost,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}
