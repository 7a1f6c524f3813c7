package cli

import (
	"encoding/json"
	"testing"

	"github.com/harun/sessionkey/pkg/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteCommand(t *testing.T) {
	configPath := writeTestConfig(t, testConfig)

	t.Run("binding match", func(t *testing.T) {
		out, err := runCLI(t, configPath, "", "route", "--channel", "slack", "--kind", "channel", "--peer", "C1", "--thread", "99")
		require.NoError(t, err)

		var route routing.Route
		require.NoError(t, json.Unmarshal([]byte(out), &route))
		assert.Equal(t, "support", route.AgentID)
		assert.Equal(t, routing.MatchedByChannel, route.MatchedBy)
		assert.Equal(t, "agent:support:slack:channel:c1:thread:99", route.SessionKey)
		assert.Equal(t, "agent:support:slack:channel:c1", route.ParentSessionKey)
		assert.Equal(t, "99", route.ThreadID)
		assert.Equal(t, "slack:default:channel:c1", route.GroupHistoryKey)
	})

	t.Run("default agent", func(t *testing.T) {
		out, err := runCLI(t, configPath, "", "route", "--channel", "telegram", "--peer", "42")
		require.NoError(t, err)

		var route routing.Route
		require.NoError(t, json.Unmarshal([]byte(out), &route))
		assert.Equal(t, "main", route.AgentID)
		assert.Equal(t, routing.MatchedByDefault, route.MatchedBy)
		assert.Equal(t, "agent:main:telegram:dm:42", route.SessionKey)
		assert.Equal(t, "agent:main:main", route.MainSessionKey)
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := runCLI(t, configPath, "", "route", "--channel", "telegram", "--kind", "forum")
		assert.Error(t, err)
	})
}
