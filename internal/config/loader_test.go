package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/sessionkey/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "sessionkey.json")
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0644))
	return configPath
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.configPath)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("load default config when file doesn't exist", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nonexistent.json")

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "main", cfg.Session.DMScope)
		assert.Len(t, cfg.Agents, 1)
	})

	t.Run("load config from file", func(t *testing.T) {
		configPath := writeConfig(t, `{
			"session": {
				"dm_scope": "per-channel-peer",
				"main_key": "home",
				"thread_suffix": false
			},
			"agents": [
				{"id": "support", "name": "Support"},
				{"id": "ops", "default": true, "dm_scope": "per-peer"}
			],
			"bindings": [
				{"agent_id": "support", "channel": "slack"}
			],
			"logging": {"level": "debug"}
		}`)

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "per-channel-peer", cfg.Session.DMScope)
		assert.Equal(t, "home", cfg.Session.MainKey)
		assert.False(t, cfg.Session.ThreadSuffix)
		require.Len(t, cfg.Agents, 2)
		assert.Equal(t, "support", cfg.Agents[0].ID)
		assert.False(t, cfg.Agents[0].Default, "file agents must not inherit default agent fields")
		assert.Equal(t, "Support", cfg.Agents[0].Name)
		assert.Equal(t, "ops", cfg.DefaultAgentID())
		require.Len(t, cfg.Bindings, 1)
		assert.Equal(t, "slack", cfg.Bindings[0].Channel)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("identity links keep file order", func(t *testing.T) {
		configPath := writeConfig(t, `{
			"session": {
				"dm_scope": "per-peer",
				"identity_links": {
					"zed": ["u1", "slack:u1"],
					"alice": ["u1", "telegram:42"],
					"bob": []
				}
			}
		}`)

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, session.IdentityLinks{
			{Canonical: "zed", Aliases: []string{"u1", "slack:u1"}},
			{Canonical: "alice", Aliases: []string{"u1", "telegram:42"}},
			{Canonical: "bob", Aliases: []string{}},
		}, cfg.Session.IdentityLinks)

		linked, ok := cfg.Session.IdentityLinks.Resolve("slack", "U1")
		assert.True(t, ok)
		assert.Equal(t, "zed", linked)
	})

	t.Run("set default paths", func(t *testing.T) {
		configPath := writeConfig(t, `{"session": {}}`)

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.NotEmpty(t, cfg.DataDir)
		assert.True(t, cfg.Session.ThreadSuffix)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		configPath := writeConfig(t, "invalid json")

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})

	t.Run("schema rejects unknown dm scope", func(t *testing.T) {
		configPath := writeConfig(t, `{"session": {"dm_scope": "per-thread"}}`)

		_, err := NewLoader(configPath).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema validation")
	})

	t.Run("schema rejects non-string aliases", func(t *testing.T) {
		configPath := writeConfig(t, `{"session": {"identity_links": {"alice": [1, 2]}}}`)

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})

	t.Run("schema rejects agent without id", func(t *testing.T) {
		configPath := writeConfig(t, `{"agents": [{"name": "nameless"}]}`)

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoadConvenience(t *testing.T) {
	configPath := writeConfig(t, `{"session": {"dm_scope": "per-peer"}}`)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, session.DMScopePerPeer, cfg.DMScopeFor(cfg.DefaultAgentID()))
}
