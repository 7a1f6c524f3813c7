package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/harun/sessionkey/internal/config"
	"github.com/harun/sessionkey/pkg/routing"
	"github.com/harun/sessionkey/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResults(t *testing.T, out string) []replayResult {
	t.Helper()
	var results []replayResult
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var r replayResult
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		results = append(results, r)
	}
	return results
}

func TestReplayer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.DMScope = "per-peer"
	resolver, err := routing.NewResolver(cfg)
	require.NoError(t, err)

	r := newReplayer(resolver)
	r.now = func() time.Time { return time.UnixMilli(1700000000000) }
	ctx := context.Background()

	first, err := r.handle(ctx, replayEvent{
		InboundContext: routing.InboundContext{Channel: "telegram", PeerID: "42"},
		CLIProvider:    "claude-cli",
		CLISessionID:   " sess-1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "agent:main:dm:42", first.Route.SessionKey)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, "sess-1", first.CLISessionID)
	require.NotNil(t, first.State.SystemSent)
	assert.True(t, *first.State.SystemSent)
	require.NotNil(t, first.State.ClaudeCLISessionID)
	assert.Equal(t, "sess-1", *first.State.ClaudeCLISessionID)
	require.NotNil(t, first.State.AbortedLastRun)
	assert.False(t, *first.State.AbortedLastRun)

	second, err := r.handle(ctx, replayEvent{
		InboundContext: routing.InboundContext{Channel: "telegram", PeerID: "42"},
		Heartbeat:      "HEARTBEAT_OK",
		Abort:          true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Empty(t, second.CLISessionID)
	assert.Equal(t, "HEARTBEAT_OK", *second.State.LastHeartbeatText)
	assert.Equal(t, int64(1700000000000), *second.State.LastHeartbeatSentAt)
	assert.True(t, *second.State.AbortedLastRun)
	assert.Equal(t, map[string]string{"claude-cli": "sess-1"}, second.State.CLISessionIDs)

	assert.Equal(t, "sess-1", r.cli.Get("agent:main:dm:42", "claude-cli"))
	assert.Empty(t, r.cli.Get("agent:main:dm:42", "codex"))

	legacy, err := r.handle(ctx, replayEvent{
		InboundContext: routing.InboundContext{Channel: "slack", PeerID: "U1"},
		CLISessionID:   "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "agent:main:dm:u1", legacy.Route.SessionKey)
	assert.Equal(t, "abc", legacy.CLISessionID)
	assert.Equal(t, map[string]string{"claude-cli": "abc"}, legacy.State.CLISessionIDs)
	require.NotNil(t, legacy.State.ClaudeCLISessionID)
	assert.Equal(t, "abc", *legacy.State.ClaudeCLISessionID)

	reset, err := r.handle(ctx, replayEvent{
		InboundContext: routing.InboundContext{Channel: "telegram", PeerID: "42"},
		Reset:          true,
	})
	require.NoError(t, err)
	assert.True(t, reset.State.IsEmpty())
	assert.False(t, r.store.Has("agent:main:dm:42"))
	assert.NotContains(t, r.sessions, "agent:main:dm:42")
	assert.Contains(t, r.sessions, "agent:main:dm:u1")
}

func TestReplayCommand(t *testing.T) {
	configPath := writeTestConfig(t, testConfig)

	events := strings.Join([]string{
		`# comment lines and blanks are skipped`,
		``,
		`{"channel":"slack","peer_kind":"group","peer_id":"G1","cli_provider":"z.ai","cli_session_id":"zs-1"}`,
		`{"channel":"telegram","peer_id":"111"}`,
	}, "\n")

	out, err := runCLI(t, configPath, events, "replay", "--metrics")
	require.NoError(t, err)

	results := decodeResults(t, out)
	require.Len(t, results, 2)

	assert.Equal(t, "agent:support:slack:group:g1", results[0].Route.SessionKey)
	assert.Equal(t, "slack:default:group:g1", results[0].Route.GroupHistoryKey)
	assert.Equal(t, "zs-1", results[0].CLISessionID)
	assert.Equal(t, map[string]string{"zai": "zs-1"}, results[0].State.CLISessionIDs)
	assert.Nil(t, results[0].State.ClaudeCLISessionID)

	assert.Equal(t, "agent:main:telegram:dm:alice", results[1].Route.SessionKey)
	assert.Equal(t, "alice", results[1].Route.LinkedPeerID)

	assert.Contains(t, out, "route_resolutions_total")
	assert.Contains(t, out, "runtime_state_entries")
}

func TestReplayCommandErrors(t *testing.T) {
	configPath := writeTestConfig(t, testConfig)

	t.Run("malformed line", func(t *testing.T) {
		_, err := runCLI(t, configPath, "{not json}\n", "replay")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 1")
	})

	t.Run("unknown peer kind", func(t *testing.T) {
		_, err := runCLI(t, configPath, `{"channel":"x","peer_kind":"forum"}`+"\n", "replay")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := runCLI(t, configPath, "", "replay", "/nonexistent/events.jsonl")
		assert.Error(t, err)
	})
}

func TestReplayResultState(t *testing.T) {
	// RuntimeState serializes with the runtime's camelCase field names.
	data, err := json.Marshal(replayResult{State: session.RuntimeState{SystemSent: session.Bool(true)}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"systemSent":true`)
}
