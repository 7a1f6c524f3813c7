// Package session addresses conversations and holds their transient state.
//
// Session keys follow "agent:{agentId}:{rest}" where rest is one of:
//   - "main" for the agent's default session
//   - "subagent:{id}" for a spawned subagent
//   - "acp:{...}" for a protocol-originated session
//   - "dm:{peer}", "{channel}:dm:{peer}" or "{channel}:{account}:dm:{peer}"
//   - "{channel}:group:{peer}" or "{channel}:channel:{peer}"
//
// followed optionally by ":thread:{id}" or ":topic:{id}".
//
// Invariants:
// - Builders are pure and deterministic; blank inputs take documented defaults.
// - Parse failures are reported with ok=false, never as errors.
// - RuntimeStore state lives only in process memory and is never persisted.
//
// Usage:
//
//	key := session.BuildAgentPeerSessionKey(session.PeerKeyParams{
//		AgentID: "bot", Channel: "slack", PeerID: "U1",
//		DMScope: session.DMScopePerChannelPeer,
//	})
//	store := session.NewRuntimeStore()
//	store.Update(key, session.RuntimeState{SystemSent: session.Bool(true)})
//	session.NewCLISessions(store).Set(key, "claude-cli", "abc")
package session
