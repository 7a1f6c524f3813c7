package routing

import (
	"fmt"
	"strings"

	"github.com/harun/sessionkey/internal/config"
	"github.com/harun/sessionkey/internal/observability"
	"github.com/harun/sessionkey/pkg/session"
	"github.com/rs/zerolog/log"
)

const (
	bindingRankUnspecified  = 100
	bindingRankChannel      = 200
	bindingRankAccountAny   = 250
	bindingRankAccountExact = 300
	bindingRankPeer         = 600
)

type binding struct {
	agentID   string
	channel   string
	accountID string
	peer      string
	isDefault bool
}

// Resolver maps inbound messages to an agent and its session keys
type Resolver struct {
	cfg      *config.Config
	bindings []binding
}

// NewResolver validates cfg and prepares its bindings
func NewResolver(cfg *config.Config) (*Resolver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	bindings := make([]binding, 0, len(cfg.Bindings))
	for _, b := range cfg.Bindings {
		bindings = append(bindings, binding{
			agentID:   session.NormalizeAgentID(b.AgentID),
			channel:   normalizedString(b.Channel),
			accountID: normalizedString(b.AccountID),
			peer:      normalizedString(b.Peer),
			isDefault: b.Default,
		})
	}
	return &Resolver{cfg: cfg, bindings: bindings}, nil
}

// ResolveAgent picks the agent for in. The highest binding tier wins;
// ties go to the binding declared first.
func (r *Resolver) ResolveAgent(in InboundContext) (string, MatchedBy) {
	bestRank := -1
	var best binding
	for _, b := range r.bindings {
		rank, matched := bindingPrecedenceScore(b, in)
		if matched && rank > bestRank {
			bestRank = rank
			best = b
		}
	}
	if bestRank < 0 {
		return r.cfg.DefaultAgentID(), MatchedByDefault
	}
	return best.agentID, matchedByRank(bestRank)
}

// Resolve routes in to an agent and builds every key the runtime needs
func (r *Resolver) Resolve(in InboundContext) Route {
	agentID, matchedBy := r.ResolveAgent(in)
	mainKey := r.cfg.MainKeyFor(agentID)

	kind, err := session.ParsePeerKind(string(in.PeerKind))
	if err != nil {
		log.Warn().Err(err).Str("channel", in.Channel).Msg("Unknown peer kind, treating as direct message")
		kind = session.PeerKindDM
	}

	peer := session.BuildAgentPeerSessionKeyDetailed(session.PeerKeyParams{
		AgentID:       agentID,
		MainKey:       mainKey,
		Channel:       in.Channel,
		AccountID:     in.AccountID,
		PeerKind:      kind,
		PeerID:        in.PeerID,
		IdentityLinks: r.cfg.Session.IdentityLinks,
		DMScope:       r.cfg.DMScopeFor(agentID),
	})

	route := Route{
		AgentID:        agentID,
		SessionKey:     peer.Key,
		MainSessionKey: session.BuildAgentMainSessionKey(agentID, mainKey),
		LinkedPeerID:   peer.LinkedPeerID,
		MatchedBy:      matchedBy,
		FellBackToMain: peer.FellBackToMain,
	}

	// With the suffix disabled the session key stays on the base
	// conversation; the thread survives only as ThreadID plus the parent.
	if threadID := strings.TrimSpace(in.ThreadID); threadID != "" {
		threads := session.ResolveThreadSessionKeys(session.ThreadKeyParams{
			BaseSessionKey:   peer.Key,
			ThreadID:         threadID,
			ParentSessionKey: peer.Key,
			DisableSuffix:    !r.cfg.Session.ThreadSuffix,
		})
		route.SessionKey = threads.SessionKey
		route.ParentSessionKey = threads.ParentSessionKey
		route.ThreadID = strings.ToLower(threadID)
	}

	if kind != session.PeerKindDM {
		route.GroupHistoryKey = session.BuildGroupHistoryKey(session.GroupHistoryParams{
			Channel:   in.Channel,
			AccountID: in.AccountID,
			PeerKind:  kind,
			PeerID:    in.PeerID,
		})
	}

	observability.RecordRouteResolution(string(matchedBy))
	log.Debug().
		Str("agent_id", route.AgentID).
		Str("session_key", route.SessionKey).
		Str("matched_by", string(route.MatchedBy)).
		Bool("fell_back_to_main", route.FellBackToMain).
		Msg("Inbound message routed")

	return route
}

// bindingPrecedenceScore ranks b by its most specific selector. Every
// selector present on b must match. A binding without selectors only
// applies when marked default, at the lowest tier.
func bindingPrecedenceScore(b binding, in InboundContext) (int, bool) {
	rank := bindingRankUnspecified
	hasSelector := false

	if b.channel != "" {
		hasSelector = true
		if b.channel != normalizedString(in.Channel) {
			return 0, false
		}
		rank = bindingRankChannel
	}

	if b.accountID != "" {
		hasSelector = true
		value := normalizedString(in.AccountID)
		if b.accountID == "*" {
			if value == "" {
				return 0, false
			}
			rank = bindingRankAccountAny
		} else {
			if b.accountID != value {
				return 0, false
			}
			rank = bindingRankAccountExact
		}
	}

	if b.peer != "" {
		hasSelector = true
		if b.peer != normalizedString(in.PeerID) {
			return 0, false
		}
		rank = bindingRankPeer
	}

	if !hasSelector && !b.isDefault {
		return 0, false
	}
	return rank, true
}

func matchedByRank(rank int) MatchedBy {
	switch rank {
	case bindingRankPeer:
		return MatchedByPeer
	case bindingRankAccountExact:
		return MatchedByAccount
	case bindingRankAccountAny:
		return MatchedByAccountAny
	case bindingRankChannel:
		return MatchedByChannel
	default:
		return MatchedByBinding
	}
}

func normalizedString(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}
