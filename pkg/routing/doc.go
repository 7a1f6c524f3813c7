// Package routing resolves inbound channel messages to an agent and the
// session keys that agent uses for the conversation.
//
// Agent selection follows binding tiers, most specific first:
//
//	peer > exact account > any account ("*") > channel > default binding
//
// When no binding matches, the configured default agent is used.
package routing
