package session

import (
	"fmt"
	"strings"

	"github.com/harun/sessionkey/internal/observability"
)

// DMScope controls how direct-message sessions are partitioned.
type DMScope string

const (
	DMScopeMain                  DMScope = "main"
	DMScopePerPeer               DMScope = "per-peer"
	DMScopePerChannelPeer        DMScope = "per-channel-peer"
	DMScopePerAccountChannelPeer DMScope = "per-account-channel-peer"
)

// PeerKind is the kind of conversation a peer key addresses.
type PeerKind string

const (
	PeerKindDM      PeerKind = "dm"
	PeerKindGroup   PeerKind = "group"
	PeerKindChannel PeerKind = "channel"
)

const unknownSegment = "unknown"

// ParseDMScope validates a configured scope. Empty means main.
func ParseDMScope(value string) (DMScope, error) {
	switch scope := DMScope(normalizeToken(value)); scope {
	case "":
		return DMScopeMain, nil
	case DMScopeMain, DMScopePerPeer, DMScopePerChannelPeer, DMScopePerAccountChannelPeer:
		return scope, nil
	default:
		return "", fmt.Errorf("invalid dm scope %q (must be one of: main, per-peer, per-channel-peer, per-account-channel-peer)", value)
	}
}

// ParsePeerKind validates a peer kind. Empty means dm.
func ParsePeerKind(value string) (PeerKind, error) {
	switch kind := PeerKind(normalizeToken(value)); kind {
	case "":
		return PeerKindDM, nil
	case PeerKindDM, PeerKindGroup, PeerKindChannel:
		return kind, nil
	default:
		return "", fmt.Errorf("invalid peer kind %q (must be one of: dm, group, channel)", value)
	}
}

func (s DMScope) orDefault() DMScope {
	if parsed, err := ParseDMScope(string(s)); err == nil {
		return parsed
	}
	return DMScopeMain
}

func (k PeerKind) orDefault() PeerKind {
	if parsed, err := ParsePeerKind(string(k)); err == nil {
		return parsed
	}
	return PeerKindDM
}

// PeerKeyParams carries the raw identity a channel adapter knows about a peer.
type PeerKeyParams struct {
	AgentID       string
	MainKey       string
	Channel       string
	AccountID     string
	PeerKind      PeerKind
	PeerID        string
	IdentityLinks IdentityLinks
	DMScope       DMScope
}

// PeerKeyResult is a peer key plus how it was derived.
type PeerKeyResult struct {
	Key string
	// LinkedPeerID is the canonical identity-link name, if one matched.
	LinkedPeerID string
	// FellBackToMain is set when a per-peer scope collapsed to the main key
	// because the peer id was empty.
	FellBackToMain bool
}

// BuildAgentPeerSessionKey builds the session key for a DM, group or channel.
func BuildAgentPeerSessionKey(params PeerKeyParams) string {
	return BuildAgentPeerSessionKeyDetailed(params).Key
}

// BuildAgentPeerSessionKeyDetailed is BuildAgentPeerSessionKey, also
// reporting identity-link matches and main-key fallbacks.
func BuildAgentPeerSessionKeyDetailed(params PeerKeyParams) PeerKeyResult {
	agentID := NormalizeAgentID(params.AgentID)
	channel := normalizeToken(params.Channel)

	kind := params.PeerKind.orDefault()
	if kind != PeerKindDM {
		if channel == "" {
			channel = unknownSegment
		}
		peerID := strings.TrimSpace(params.PeerID)
		if peerID == "" {
			peerID = unknownSegment
		}
		observability.RecordSessionKeyBuilt(string(kind))
		return PeerKeyResult{
			Key: fmt.Sprintf("agent:%s:%s:%s:%s", agentID, channel, kind, strings.ToLower(peerID)),
		}
	}

	scope := params.DMScope.orDefault()
	if scope == DMScopeMain {
		return PeerKeyResult{Key: BuildAgentMainSessionKey(params.AgentID, params.MainKey)}
	}

	var result PeerKeyResult
	peerID := strings.TrimSpace(params.PeerID)
	if linked, ok := params.IdentityLinks.Resolve(params.Channel, peerID); ok {
		peerID = linked
		result.LinkedPeerID = linked
	}
	peerID = strings.ToLower(peerID)

	if peerID == "" {
		result.Key = BuildAgentMainSessionKey(params.AgentID, params.MainKey)
		result.FellBackToMain = true
		return result
	}

	if channel == "" {
		channel = unknownSegment
	}
	switch scope {
	case DMScopePerAccountChannelPeer:
		result.Key = fmt.Sprintf("agent:%s:%s:%s:dm:%s", agentID, channel, NormalizeAccountID(params.AccountID), peerID)
	case DMScopePerChannelPeer:
		result.Key = fmt.Sprintf("agent:%s:%s:dm:%s", agentID, channel, peerID)
	default:
		result.Key = fmt.Sprintf("agent:%s:dm:%s", agentID, peerID)
	}
	observability.RecordSessionKeyBuilt(string(scope))
	return result
}

// GroupHistoryParams identifies a group or channel independent of agent.
type GroupHistoryParams struct {
	Channel   string
	AccountID string
	PeerKind  PeerKind
	PeerID    string
}

// BuildGroupHistoryKey builds "{channel}:{accountId}:{kind}:{peerId}". The
// key is not agent-prefixed: history is shared by every agent that handles
// the group. Kinds other than channel are recorded as group.
func BuildGroupHistoryKey(params GroupHistoryParams) string {
	channel := normalizeToken(params.Channel)
	if channel == "" {
		channel = unknownSegment
	}
	kind := PeerKindGroup
	if params.PeerKind.orDefault() == PeerKindChannel {
		kind = PeerKindChannel
	}
	peerID := normalizeToken(params.PeerID)
	if peerID == "" {
		peerID = unknownSegment
	}
	observability.RecordSessionKeyBuilt("group_history")
	return fmt.Sprintf("%s:%s:%s:%s", channel, NormalizeAccountID(params.AccountID), kind, peerID)
}

// ThreadKeyParams describes a sub-thread of BaseSessionKey.
type ThreadKeyParams struct {
	BaseSessionKey   string
	ThreadID         string
	ParentSessionKey string
	// DisableSuffix keeps the base key unchanged; thread identity then lives
	// only in the returned parent reference.
	DisableSuffix bool
}

// ThreadKeys is the outcome of thread key resolution.
type ThreadKeys struct {
	SessionKey       string
	ParentSessionKey string
}

// ResolveThreadSessionKeys appends ":thread:{threadId}" to the base key.
// Without a thread id the base key is returned with no parent.
func ResolveThreadSessionKeys(params ThreadKeyParams) ThreadKeys {
	threadID := strings.TrimSpace(params.ThreadID)
	if threadID == "" {
		return ThreadKeys{SessionKey: params.BaseSessionKey}
	}

	sessionKey := params.BaseSessionKey
	if !params.DisableSuffix {
		sessionKey = sessionKey + ":thread:" + strings.ToLower(threadID)
		observability.RecordSessionKeyBuilt("thread")
	}
	return ThreadKeys{SessionKey: sessionKey, ParentSessionKey: params.ParentSessionKey}
}
