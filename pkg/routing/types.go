package routing

import "github.com/harun/sessionkey/pkg/session"

// MatchedBy names the binding tier that selected the agent
type MatchedBy string

const (
	MatchedByPeer       MatchedBy = "binding.peer"
	MatchedByAccount    MatchedBy = "binding.account"
	MatchedByAccountAny MatchedBy = "binding.account_any"
	MatchedByChannel    MatchedBy = "binding.channel"
	MatchedByBinding    MatchedBy = "binding.default"
	MatchedByDefault    MatchedBy = "default"
)

// InboundContext describes where an inbound message came from
type InboundContext struct {
	Channel   string           `json:"channel"`
	AccountID string           `json:"account_id,omitempty"`
	PeerKind  session.PeerKind `json:"peer_kind,omitempty"` // dm when empty
	PeerID    string           `json:"peer_id,omitempty"`
	ThreadID  string           `json:"thread_id,omitempty"`
}

// Route is the outcome of resolving an inbound message to a session
type Route struct {
	AgentID          string    `json:"agent_id"`
	SessionKey       string    `json:"session_key"`
	MainSessionKey   string    `json:"main_session_key"`
	ParentSessionKey string    `json:"parent_session_key,omitempty"`
	ThreadID         string    `json:"thread_id,omitempty"`
	GroupHistoryKey  string    `json:"group_history_key,omitempty"`
	LinkedPeerID     string    `json:"linked_peer_id,omitempty"`
	MatchedBy        MatchedBy `json:"matched_by"`

	// FellBackToMain reports a direct message that collapsed to the main
	// session because no peer id was available, not because of the scope.
	FellBackToMain bool `json:"fell_back_to_main,omitempty"`
}
