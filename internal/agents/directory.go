package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("agents: agent not found")

// Directory resolves agent configuration. The agents table is owned by the
// surrounding application; implementations must treat it as read-only.
type Directory interface {
	GetAgentConfig(ctx context.Context, agentID string) (AgentConfig, error)
}

// PostgresDirectory reads agent configuration from the shared agents table.
// twilio_config and voice_settings are JSONB columns written by the CRUD
// layer; absent or null columns decode to zero values.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) GetAgentConfig(ctx context.Context, agentID string) (AgentConfig, error) {
	if d.db == nil {
		return AgentConfig{}, errors.New("agents: db not configured")
	}

	const q = `
		SELECT id, COALESCE(name, ''), COALESCE(system_prompt, ''),
		       COALESCE(twilio_config, '{}'::jsonb)::text,
		       COALESCE(voice_settings, '{}'::jsonb)::text
		FROM agents
		WHERE id = $1`

	var (
		cfg       AgentConfig
		twilioRaw string
		voiceRaw  string
	)
	row := d.db.QueryRowContext(ctx, q, agentID)
	if err := row.Scan(&cfg.AgentID, &cfg.Name, &cfg.SystemPrompt, &twilioRaw, &voiceRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AgentConfig{}, fmt.Errorf("agent %s: %w", agentID, ErrNotFound)
		}
		return AgentConfig{}, fmt.Errorf("agents: load %s: %w", agentID, err)
	}

	if err := json.Unmarshal([]byte(twilioRaw), &cfg.Twilio); err != nil {
		return AgentConfig{}, fmt.Errorf("agents: decode twilio_config for %s: %w", agentID, err)
	}
	if err := json.Unmarshal([]byte(voiceRaw), &cfg.Voice); err != nil {
		return AgentConfig{}, fmt.Errorf("agents: decode voice_settings for %s: %w", agentID, err)
	}
	return cfg, nil
}

// ResolveAgentByNumber maps a dialed Twilio number to the agent configured
// with it. Numbers are stored inside the twilio_config JSONB document.
func (d *PostgresDirectory) ResolveAgentByNumber(ctx context.Context, phoneNumber string) (string, error) {
	if d.db == nil {
		return "", errors.New("agents: db not configured")
	}

	const q = `
		SELECT id FROM agents
		WHERE twilio_config->>'phoneNumber' = $1
		LIMIT 1`

	var agentID string
	if err := d.db.QueryRowContext(ctx, q, phoneNumber).Scan(&agentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("number %s: %w", phoneNumber, ErrNotFound)
		}
		return "", fmt.Errorf("agents: resolve number %s: %w", phoneNumber, err)
	}
	return agentID, nil
}
