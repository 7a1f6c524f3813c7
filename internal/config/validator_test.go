package config

import (
	"testing"

	"github.com/harun/sessionkey/pkg/session"
	"github.com/stretchr/testify/assert"
)

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()

	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogLevel(level))
	}
	assert.Error(t, v.ValidateLogLevel("trace"))
	assert.Error(t, v.ValidateLogLevel(""))
}

func TestValidateDMScope(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateDMScope(""))
	assert.NoError(t, v.ValidateDMScope("per-account-channel-peer"))
	assert.Error(t, v.ValidateDMScope("per-guild"))
}

func TestValidateAgentID(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateAgentID("support"))
	assert.NoError(t, v.ValidateAgentID("Support"))
	assert.Error(t, v.ValidateAgentID(""))

	err := v.ValidateAgentID("support team")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "support-team")
}

func TestValidateIdentityLinks(t *testing.T) {
	v := NewValidator()

	t.Run("no overlap", func(t *testing.T) {
		errs := v.ValidateIdentityLinks(session.IdentityLinks{
			{Canonical: "alice", Aliases: []string{"u1", "slack:u1"}},
			{Canonical: "bob", Aliases: []string{"u2"}},
		})
		assert.Empty(t, errs)
	})

	t.Run("shadowed alias", func(t *testing.T) {
		errs := v.ValidateIdentityLinks(session.IdentityLinks{
			{Canonical: "alice", Aliases: []string{"U1"}},
			{Canonical: "bob", Aliases: []string{" u1 "}},
		})
		if assert.Len(t, errs, 1) {
			assert.Contains(t, errs[0].Error(), "shadowed by alice")
		}
	})

	t.Run("empty canonical", func(t *testing.T) {
		errs := v.ValidateIdentityLinks(session.IdentityLinks{{Canonical: " ", Aliases: []string{"u1"}}})
		assert.Len(t, errs, 1)
	})
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	t.Run("valid default", func(t *testing.T) {
		assert.Empty(t, v.ValidateConfig(DefaultConfig()))
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Level = "loud"
		cfg.Agents = []AgentConfig{{ID: "my agent"}}
		cfg.Session.IdentityLinks = session.IdentityLinks{
			{Canonical: "a", Aliases: []string{"x"}},
			{Canonical: "b", Aliases: []string{"x"}},
		}

		errs := v.ValidateConfig(cfg)
		assert.Len(t, errs, 3)
	})
}
