package session

import (
	"fmt"
	"strings"

	"github.com/harun/sessionkey/internal/observability"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	agentKeyPrefix = "agent:"

	subagentIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	subagentIDLength   = 12
)

var threadSessionMarkers = []string{":thread:", ":topic:"}

// ParsedKey is the structured form of "agent:{agentId}:{rest}".
type ParsedKey struct {
	AgentID string
	Rest    string
}

// String re-serializes the parsed key.
func (p ParsedKey) String() string {
	return agentKeyPrefix + p.AgentID + ":" + p.Rest
}

// ParseAgentSessionKey splits an agent-scoped key into agent id and rest.
// Repeated delimiters collapse. ok is false when the key is not a
// well-formed agent key; callers treat that as "use the raw string".
func ParseAgentSessionKey(sessionKey string) (ParsedKey, bool) {
	raw := strings.TrimSpace(sessionKey)
	if raw == "" {
		return ParsedKey{}, false
	}

	parts := make([]string, 0, 4)
	for _, part := range strings.Split(raw, ":") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) < 3 || parts[0] != "agent" {
		observability.RecordSessionKeyParseFailure()
		return ParsedKey{}, false
	}

	agentID := strings.TrimSpace(parts[1])
	rest := strings.Join(parts[2:], ":")
	if agentID == "" || strings.TrimSpace(rest) == "" {
		observability.RecordSessionKeyParseFailure()
		return ParsedKey{}, false
	}

	return ParsedKey{AgentID: agentID, Rest: rest}, true
}

func hasRestPrefix(sessionKey, prefix string) bool {
	raw := strings.TrimSpace(sessionKey)
	if raw == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(raw), prefix) {
		return true
	}
	parsed, ok := ParseAgentSessionKey(raw)
	if !ok {
		return false
	}
	return strings.HasPrefix(strings.ToLower(parsed.Rest), prefix)
}

// IsSubagentSessionKey reports whether the key addresses a spawned subagent.
func IsSubagentSessionKey(sessionKey string) bool {
	return hasRestPrefix(sessionKey, "subagent:")
}

// BuildSubagentSessionKey builds a fresh "agent:{agentId}:subagent:{id}" key
// for a child run spawned by agentID.
func BuildSubagentSessionKey(agentID string) (string, error) {
	id, err := gonanoid.Generate(subagentIDAlphabet, subagentIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate subagent id: %w", err)
	}
	observability.RecordSessionKeyBuilt("subagent")
	return agentKeyPrefix + NormalizeAgentID(agentID) + ":subagent:" + id, nil
}

// IsAcpSessionKey reports whether the key was created by the protocol layer.
func IsAcpSessionKey(sessionKey string) bool {
	return hasRestPrefix(sessionKey, "acp:")
}

// ResolveThreadParentSessionKey returns the key a thread session hangs off.
// The rightmost ":thread:" or ":topic:" marker wins.
func ResolveThreadParentSessionKey(sessionKey string) (string, bool) {
	raw := strings.TrimSpace(sessionKey)
	if raw == "" {
		return "", false
	}

	// ASCII-only folding keeps byte offsets aligned with raw.
	normalized := asciiLower(raw)
	idx := -1
	for _, marker := range threadSessionMarkers {
		if candidate := strings.LastIndex(normalized, marker); candidate > idx {
			idx = candidate
		}
	}
	if idx <= 0 {
		return "", false
	}

	parent := strings.TrimSpace(raw[:idx])
	if parent == "" {
		return "", false
	}
	return parent, true
}

// ToAgentRequestSessionKey strips the "agent:{agentId}:" prefix. Keys that
// are not agent-scoped are returned trimmed but otherwise unchanged.
func ToAgentRequestSessionKey(storeKey string) string {
	raw := strings.TrimSpace(storeKey)
	if raw == "" {
		return ""
	}
	if parsed, ok := ParseAgentSessionKey(raw); ok {
		return parsed.Rest
	}
	return raw
}

// ResolveAgentIDFromSessionKey returns the normalized agent id of the key,
// or the default agent id when the key is not agent-scoped.
func ResolveAgentIDFromSessionKey(sessionKey string) string {
	parsed, ok := ParseAgentSessionKey(sessionKey)
	if !ok {
		return NormalizeAgentID(DefaultAgentID)
	}
	return NormalizeAgentID(parsed.AgentID)
}

// BuildAgentMainSessionKey builds "agent:{agentId}:{mainKey}".
func BuildAgentMainSessionKey(agentID, mainKey string) string {
	observability.RecordSessionKeyBuilt("main")
	return agentKeyPrefix + NormalizeAgentID(agentID) + ":" + NormalizeMainKey(mainKey)
}

// ToAgentStoreSessionKey wraps a request key into the agent key space.
// Already agent-scoped keys pass through lowercased, so applying it to its
// own output is a no-op.
func ToAgentStoreSessionKey(agentID, requestKey, mainKey string) string {
	raw := strings.TrimSpace(requestKey)
	if raw == "" || raw == DefaultMainKey {
		return BuildAgentMainSessionKey(agentID, mainKey)
	}

	lowered := strings.ToLower(raw)
	if strings.HasPrefix(lowered, agentKeyPrefix) {
		return lowered
	}
	observability.RecordSessionKeyBuilt("request")
	return agentKeyPrefix + NormalizeAgentID(agentID) + ":" + lowered
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
