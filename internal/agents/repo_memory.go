package agents

import (
	"context"
	"fmt"
	"sync"
)

// MemoryDirectory is an in-memory agent directory for tests and early
// development.
type MemoryDirectory struct {
	mu     sync.Mutex
	agents map[string]AgentConfig
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{agents: map[string]AgentConfig{}}
}

func (d *MemoryDirectory) Put(cfg AgentConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agents[cfg.AgentID] = cfg
}

func (d *MemoryDirectory) GetAgentConfig(ctx context.Context, agentID string) (AgentConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg, ok := d.agents[agentID]
	if !ok {
		return AgentConfig{}, fmt.Errorf("agent %s: %w", agentID, ErrNotFound)
	}
	return cfg, nil
}

func (d *MemoryDirectory) ResolveAgentByNumber(ctx context.Context, phoneNumber string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, cfg := range d.agents {
		if cfg.Twilio.PhoneNumber == phoneNumber {
			return id, nil
		}
	}
	return "", fmt.Errorf("number %s: %w", phoneNumber, ErrNotFound)
}
