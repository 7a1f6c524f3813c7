package session

import (
	"regexp"
	"strings"
)

const (
	DefaultAgentID   = "main"
	DefaultMainKey   = "main"
	DefaultAccountID = "default"

	maxIdentifierLen = 64
)

var (
	validIDPattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	invalidIDChars   = regexp.MustCompile(`[^a-z0-9_-]+`)
	leadingDashRuns  = regexp.MustCompile(`^-+`)
	trailingDashRuns = regexp.MustCompile(`-+$`)
)

// normalizeIdentifier coerces value into a path-safe, shell-friendly token.
// Agent ids, account ids and sanitize share this transform; only the
// fallback differs.
func normalizeIdentifier(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	// Match after lowering so case-insensitive matching never admits
	// non-ASCII runes that fold to ASCII letters.
	lowered := strings.ToLower(trimmed)
	if validIDPattern.MatchString(lowered) {
		return lowered
	}

	out := invalidIDChars.ReplaceAllString(lowered, "-")
	out = leadingDashRuns.ReplaceAllString(out, "")
	out = trailingDashRuns.ReplaceAllString(out, "")
	if len(out) > maxIdentifierLen {
		out = out[:maxIdentifierLen]
	}
	if out == "" {
		return fallback
	}
	return out
}

// NormalizeAgentID returns a path-safe agent id, defaulting to "main".
func NormalizeAgentID(value string) string {
	return normalizeIdentifier(value, DefaultAgentID)
}

// SanitizeAgentID is NormalizeAgentID under the name older call sites use.
func SanitizeAgentID(value string) string {
	return normalizeIdentifier(value, DefaultAgentID)
}

// NormalizeAccountID returns a path-safe account id, defaulting to "default".
func NormalizeAccountID(value string) string {
	return normalizeIdentifier(value, DefaultAccountID)
}

// NormalizeMainKey lowercases the main key, defaulting to "main".
func NormalizeMainKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return DefaultMainKey
	}
	return strings.ToLower(trimmed)
}

func normalizeToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
