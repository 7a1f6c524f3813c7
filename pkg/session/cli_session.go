package session

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// LegacyCLIProvider is the only provider whose id is mirrored into
// RuntimeState.ClaudeCLISessionID.
const LegacyCLIProvider = "claude-cli"

var providerAliases = map[string]string{
	"z.ai":         "zai",
	"z-ai":         "zai",
	"opencode-zen": "opencode",
	"qwen":         "qwen-portal",
	"kimi-code":    "kimi-coding",
}

// NormalizeProviderID returns the canonical provider id.
func NormalizeProviderID(provider string) string {
	normalized := normalizeToken(provider)
	if alias, ok := providerAliases[normalized]; ok {
		return alias
	}
	return normalized
}

// CLISessions associates external CLI tool session ids with session keys,
// per provider. The ids are runtime state and never persisted.
type CLISessions struct {
	store *RuntimeStore
}

// NewCLISessions creates an adapter over store.
func NewCLISessions(store *RuntimeStore) *CLISessions {
	return &CLISessions{store: store}
}

// Get returns the tool session id for provider, or "" when unknown. Only
// the legacy provider falls back to the single legacy field.
func (c *CLISessions) Get(sessionKey, provider string) string {
	if sessionKey == "" {
		return ""
	}

	state := c.store.Get(sessionKey)
	normalized := NormalizeProviderID(provider)
	if id := strings.TrimSpace(state.CLISessionIDs[normalized]); id != "" {
		return id
	}
	if normalized == LegacyCLIProvider && state.ClaudeCLISessionID != nil {
		return strings.TrimSpace(*state.ClaudeCLISessionID)
	}
	return ""
}

// Set records the tool session id for provider. Empty keys and blank ids
// are ignored.
func (c *CLISessions) Set(sessionKey, provider, sessionID string) {
	if sessionKey == "" {
		return
	}
	trimmed := strings.TrimSpace(sessionID)
	if trimmed == "" {
		return
	}

	normalized := NormalizeProviderID(provider)
	c.store.Mutate(sessionKey, func(state RuntimeState) RuntimeState {
		ids := make(map[string]string, len(state.CLISessionIDs)+1)
		for k, v := range state.CLISessionIDs {
			ids[k] = v
		}
		ids[normalized] = trimmed

		patch := RuntimeState{CLISessionIDs: ids}
		if normalized == LegacyCLIProvider {
			patch.ClaudeCLISessionID = String(trimmed)
		}
		return state.Merge(patch)
	})

	log.Debug().
		Str("session_key", sessionKey).
		Str("provider", normalized).
		Str("cli_session_id", trimmed).
		Msg("CLI session recorded")
}
