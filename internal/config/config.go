package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harun/sessionkey/pkg/session"
)

// Config represents the session addressing configuration
type Config struct {
	// Session key shaping
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Agents
	Agents []AgentConfig `json:"agents" mapstructure:"agents"`

	// Bindings route inbound traffic to agents
	Bindings []BindingConfig `json:"bindings" mapstructure:"bindings"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// SessionConfig holds session key settings shared by all agents
type SessionConfig struct {
	MainKey      string `json:"main_key" mapstructure:"main_key"`
	DMScope      string `json:"dm_scope" mapstructure:"dm_scope"` // main, per-peer, per-channel-peer, per-account-channel-peer
	ThreadSuffix bool   `json:"thread_suffix" mapstructure:"thread_suffix"`

	// IdentityLinks keeps the declaration order of the file; the loader
	// fills it from the raw JSON because maps lose order.
	IdentityLinks session.IdentityLinks `json:"-" mapstructure:"-"`
}

// AgentConfig represents an agent that owns sessions
type AgentConfig struct {
	ID      string `json:"id" mapstructure:"id"`
	Name    string `json:"name" mapstructure:"name"`
	Default bool   `json:"default" mapstructure:"default"`
	MainKey string `json:"main_key" mapstructure:"main_key"`
	DMScope string `json:"dm_scope" mapstructure:"dm_scope"` // overrides session.dm_scope
}

// BindingConfig maps a channel/account/peer selector to an agent
type BindingConfig struct {
	AgentID   string `json:"agent_id" mapstructure:"agent_id"`
	Channel   string `json:"channel" mapstructure:"channel"`
	AccountID string `json:"account_id" mapstructure:"account_id"` // "*" matches any non-empty account
	Peer      string `json:"peer" mapstructure:"peer"`
	Default   bool   `json:"default" mapstructure:"default"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			MainKey:      session.DefaultMainKey,
			DMScope:      string(session.DMScopeMain),
			ThreadSuffix: true,
		},
		Agents: []AgentConfig{
			{
				ID:      session.DefaultAgentID,
				Name:    "Main Agent",
				Default: true,
			},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// DefaultAgentID returns the normalized id of the agent marked default, or
// the first agent, or "main".
func (c *Config) DefaultAgentID() string {
	for _, agent := range c.Agents {
		if agent.Default {
			return session.NormalizeAgentID(agent.ID)
		}
	}
	if len(c.Agents) > 0 {
		return session.NormalizeAgentID(c.Agents[0].ID)
	}
	return session.DefaultAgentID
}

// Agent returns the agent whose normalized id matches id.
func (c *Config) Agent(id string) (AgentConfig, bool) {
	normalized := session.NormalizeAgentID(id)
	for _, agent := range c.Agents {
		if session.NormalizeAgentID(agent.ID) == normalized {
			return agent, true
		}
	}
	return AgentConfig{}, false
}

// DMScopeFor returns the effective DM scope of an agent.
func (c *Config) DMScopeFor(agentID string) session.DMScope {
	if agent, ok := c.Agent(agentID); ok && strings.TrimSpace(agent.DMScope) != "" {
		if scope, err := session.ParseDMScope(agent.DMScope); err == nil {
			return scope
		}
	}
	scope, err := session.ParseDMScope(c.Session.DMScope)
	if err != nil {
		return session.DMScopeMain
	}
	return scope
}

// MainKeyFor returns the effective main key of an agent.
func (c *Config) MainKeyFor(agentID string) string {
	if agent, ok := c.Agent(agentID); ok && strings.TrimSpace(agent.MainKey) != "" {
		return session.NormalizeMainKey(agent.MainKey)
	}
	return session.NormalizeMainKey(c.Session.MainKey)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := session.ParseDMScope(c.Session.DMScope); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent must be configured")
	}

	seen := make(map[string]string, len(c.Agents))
	defaults := 0
	for i, agent := range c.Agents {
		if strings.TrimSpace(agent.ID) == "" {
			return fmt.Errorf("agent %d: ID is required", i)
		}
		normalized := session.NormalizeAgentID(agent.ID)
		if prev, dup := seen[normalized]; dup {
			return fmt.Errorf("agent %s: normalizes to %q, already used by agent %s", agent.ID, normalized, prev)
		}
		seen[normalized] = agent.ID
		if agent.DMScope != "" {
			if _, err := session.ParseDMScope(agent.DMScope); err != nil {
				return fmt.Errorf("agent %s: %w", agent.ID, err)
			}
		}
		if agent.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("only one agent may be marked default, got %d", defaults)
	}

	for i, binding := range c.Bindings {
		if strings.TrimSpace(binding.AgentID) == "" {
			return fmt.Errorf("binding %d: agent_id is required", i)
		}
		if _, ok := seen[session.NormalizeAgentID(binding.AgentID)]; !ok {
			return fmt.Errorf("binding %d: unknown agent %s", i, binding.AgentID)
		}
	}

	for _, link := range c.Session.IdentityLinks {
		if strings.TrimSpace(link.Canonical) == "" {
			return fmt.Errorf("identity link with empty canonical name")
		}
	}

	return nil
}
